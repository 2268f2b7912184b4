package docker

import (
	"context"
	"strings"
	"testing"
)

func TestArgs(t *testing.T) {
	d := NewDecoder("")
	got := strings.Join(d.args("/data/uploads/abc.webm", 16000), " ")

	for _, want := range []string{
		"run --rm --network none",
		"-v /data/uploads:/in:ro",
		DefaultImage,
		"-i /in/abc.webm",
		"-f s16le",
		"-ac 1",
		"-ar 16000",
		"pipe:1",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("args %q missing %q", got, want)
		}
	}
}

func TestDecodeMissingBinary(t *testing.T) {
	d := &Decoder{Binary: "docker-does-not-exist-here", Image: "x"}
	if err := d.Available(); err == nil {
		t.Fatal("expected Available to fail")
	}
	if _, err := d.Decode(context.Background(), "in.webm", 16000); err == nil {
		t.Fatal("expected decode to fail")
	}
}
