package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// FFmpegDecoder shells out to the ffmpeg binary and reads raw s16le PCM from
// its stdout.
type FFmpegDecoder struct {
	Path string
}

func NewFFmpegDecoder(path string) *FFmpegDecoder {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpegDecoder{Path: path}
}

func (d *FFmpegDecoder) Decode(ctx context.Context, path string, sampleRate int) ([]int16, error) {
	cmd := exec.CommandContext(ctx, d.Path,
		"-nostdin", "-hide_banner", "-loglevel", "error",
		"-i", path,
		"-vn",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ac", strconv.Itoa(CanonicalChannels),
		"-ar", strconv.Itoa(sampleRate),
		"pipe:1",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("ffmpeg: %w", err)
		}
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, msg)
	}
	return PCMToSamples(stdout.Bytes()), nil
}

// Available reports whether the ffmpeg binary can be found.
func (d *FFmpegDecoder) Available() error {
	if _, err := exec.LookPath(d.Path); err != nil {
		return fmt.Errorf("ffmpeg not found at %q: %w", d.Path, err)
	}
	return nil
}
