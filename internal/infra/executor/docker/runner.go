// Package docker runs ffmpeg inside a container for hosts that do not have
// the binary installed.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bryanwahyu/speech-coach/internal/infra/audio"
)

const DefaultImage = "linuxserver/ffmpeg:latest"

// Decoder implements audio.Decoder with `docker run`. The input directory is
// mounted read-only and PCM is read from the container's stdout.
type Decoder struct {
	Binary string
	Image  string
}

func NewDecoder(image string) *Decoder {
	if image == "" {
		image = DefaultImage
	}
	return &Decoder{Binary: "docker", Image: image}
}

func (d *Decoder) Decode(ctx context.Context, path string, sampleRate int) ([]int16, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	cmd := exec.CommandContext(ctx, d.Binary, d.args(abs, sampleRate)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("docker ffmpeg: %w", err)
		}
		return nil, fmt.Errorf("docker ffmpeg: %w: %s", err, msg)
	}
	return audio.PCMToSamples(stdout.Bytes()), nil
}

func (d *Decoder) args(absPath string, sampleRate int) []string {
	return []string{
		"run", "--rm", "--network", "none",
		"-v", fmt.Sprintf("%s:/in:ro", filepath.Dir(absPath)),
		d.Image,
		"-nostdin", "-hide_banner", "-loglevel", "error",
		"-i", "/in/" + filepath.Base(absPath),
		"-vn",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ac", strconv.Itoa(audio.CanonicalChannels),
		"-ar", strconv.Itoa(sampleRate),
		"pipe:1",
	}
}

// Available reports whether the docker CLI can be found.
func (d *Decoder) Available() error {
	if _, err := exec.LookPath(d.Binary); err != nil {
		return fmt.Errorf("docker not found: %w", err)
	}
	return nil
}
