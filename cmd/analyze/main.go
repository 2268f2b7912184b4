// Command analyze runs the feedback pipeline on a local recording and prints
// the transcript and the analysis.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"github.com/bryanwahyu/speech-coach/internal/app"
	"github.com/bryanwahyu/speech-coach/internal/config"
	"github.com/bryanwahyu/speech-coach/internal/domain/feedback"
	"github.com/bryanwahyu/speech-coach/internal/logger"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}
	fs.StringVar(&path, "config", path, "path to the YAML config file")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: analyze [-config config.yaml] <audio-file>")
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 1
	}
	audioPath := fs.Arg(0)
	if _, err := os.Stat(audioPath); err != nil {
		fmt.Fprintf(stderr, "audio file not found: %s\n", audioPath)
		return 1
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(stderr, "config load error: %v\n", err)
		return 1
	}
	log := logger.NewWithOutput(stderr, cfg.Logging.Level, "text")

	a, err := app.New(context.Background(), cfg, log, nil)
	if err != nil {
		fmt.Fprintf(stderr, "init error: %v\n", err)
		return 1
	}
	defer a.Close()

	// normalized audio goes to a temp dir, never next to the user's file
	scratch, err := os.MkdirTemp("", "speech-coach-")
	if err != nil {
		fmt.Fprintf(stderr, "scratch dir: %v\n", err)
		return 1
	}
	defer os.RemoveAll(scratch)
	a.Pipeline.ScratchDir = scratch

	res := a.Pipeline.Process(context.Background(), audioPath)
	printResult(stdout, res)
	if res.Failed() {
		return 1
	}
	return 0
}

func printResult(w io.Writer, res feedback.Result) {
	if res.Failed() {
		fmt.Fprintln(w, res.Error)
		return
	}
	fmt.Fprintln(w, "=== TRANSCRIPT ===")
	fmt.Fprintln(w, res.Transcript)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== ANALYSIS ===")
	fmt.Fprintln(w, res.Analysis)
}
