package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bryanwahyu/speech-coach/internal/app"
	"github.com/bryanwahyu/speech-coach/internal/config"
	"github.com/bryanwahyu/speech-coach/internal/infra/httpserver"
	"github.com/bryanwahyu/speech-coach/internal/logger"
	"github.com/bryanwahyu/speech-coach/internal/metrics"
)

func main() {
	_ = godotenv.Load()

	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}
	flag.StringVar(&path, "config", path, "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	m := metrics.New()
	ctx := context.Background()

	a, err := app.New(ctx, cfg, log, m)
	if err != nil {
		log.WithError(err).Fatal("init error")
	}
	defer a.Close()

	handler := httpserver.NewRouter(a.Pipeline, a.Feedback, httpserver.Options{
		UploadDir:      cfg.Server.UploadDir,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Checks:         a.Checks,
		Metrics:        m,
		Logger:         log,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.WithField("addr", addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.WithError(err).Error("shutdown error")
	}
}
