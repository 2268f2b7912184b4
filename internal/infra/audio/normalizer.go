package audio

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/bryanwahyu/speech-coach/internal/domain/feedback"
)

// Decoder turns an audio file of any container/codec into mono s16 samples
// at the requested sample rate.
type Decoder interface {
	Decode(ctx context.Context, path string, sampleRate int) ([]int16, error)
}

// Normalizer writes the canonical waveform for an uploaded recording.
type Normalizer struct {
	Decoder    Decoder
	SampleRate int
	Logger     logrus.FieldLogger
}

func NewNormalizer(dec Decoder, sampleRate int, log logrus.FieldLogger) *Normalizer {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Normalizer{Decoder: dec, SampleRate: sampleRate, Logger: log}
}

// Normalize reads inputPath and writes a mono 16-bit PCM WAV to outputPath.
// Already-canonical WAV input is re-encoded without invoking the decoder.
func (n *Normalizer) Normalize(ctx context.Context, inputPath, outputPath string) error {
	const op = "Normalizer.Normalize"

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return feedback.E(feedback.KindDecode, op, "input audio is unreadable", err)
	}

	var samples []int16
	if f, pcm, perr := ParseWAV(data); perr == nil && f.IsCanonical(n.SampleRate) {
		samples = PCMToSamples(pcm)
	} else {
		if n.Decoder == nil {
			return feedback.E(feedback.KindDecode, op, "no decoder configured for non-canonical input", nil)
		}
		samples, err = n.Decoder.Decode(ctx, inputPath, n.SampleRate)
		if err != nil {
			return feedback.E(feedback.KindDecode, op, "could not decode input audio", err)
		}
	}
	if len(samples) == 0 {
		return feedback.E(feedback.KindDecode, op, "input audio contains no samples", nil)
	}

	wav, err := EncodeWAV(samples, n.SampleRate)
	if err != nil {
		return feedback.E(feedback.KindDecode, op, "could not encode waveform", err)
	}
	if err := os.WriteFile(outputPath, wav, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outputPath, err)
	}

	if n.Logger != nil {
		n.Logger.WithFields(logrus.Fields{
			"input":   inputPath,
			"output":  outputPath,
			"seconds": Duration(samples, n.SampleRate),
			"rate_hz": n.SampleRate,
		}).Debug("audio normalized")
	}
	return nil
}
