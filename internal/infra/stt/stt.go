// Package stt holds what the transcription adapters share.
package stt

import (
	"fmt"
	"os"
	"strings"

	"github.com/bryanwahyu/speech-coach/internal/domain/feedback"
	"github.com/bryanwahyu/speech-coach/internal/infra/audio"
)

// Waveform is a canonical WAV file loaded into memory.
type Waveform struct {
	Raw    []byte // the whole file, header included
	PCM    []byte // data chunk only
	Format audio.Format
}

// LoadWaveform reads wavPath in full and checks it is mono 16-bit PCM.
func LoadWaveform(op, wavPath string) (*Waveform, error) {
	raw, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, feedback.E(feedback.KindRecognition, op, "waveform is unreadable", err)
	}
	f, pcm, err := audio.ParseWAV(raw)
	if err != nil {
		return nil, feedback.E(feedback.KindDecode, op, "waveform is not a WAV file", err)
	}
	if !f.IsCanonical(int(f.SampleRate)) || len(pcm) == 0 {
		return nil, feedback.E(feedback.KindDecode, op,
			fmt.Sprintf("unsupported waveform: %d ch, %d bit, format %d", f.Channels, f.BitsPerSample, f.AudioFormat), nil)
	}
	return &Waveform{Raw: raw, PCM: pcm, Format: f}, nil
}

// NoSpeech is returned when an engine answers without any hypothesis.
func NoSpeech(op string) error {
	return feedback.E(feedback.KindRecognition, op, "speech could not be recognized", nil)
}

// BaseLanguage turns a BCP-47 tag like "en-US" into its ISO-639-1 part.
func BaseLanguage(tag string) string {
	tag = strings.TrimSpace(tag)
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}
