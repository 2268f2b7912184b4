package google

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	speechpb "cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/bryanwahyu/speech-coach/internal/domain/feedback"
	"github.com/bryanwahyu/speech-coach/internal/infra/audio"
)

func canonicalWAV(t *testing.T) string {
	t.Helper()
	data, err := audio.EncodeWAV(make([]int16, 1600), 16000)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	p := filepath.Join(t.TempDir(), "in.wav")
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func result(alts ...*speechpb.SpeechRecognitionAlternative) *speechpb.SpeechRecognitionResult {
	return &speechpb.SpeechRecognitionResult{Alternatives: alts}
}

func alt(text string, conf float32) *speechpb.SpeechRecognitionAlternative {
	return &speechpb.SpeechRecognitionAlternative{Transcript: text, Confidence: conf}
}

func TestTranscribeSendsCanonicalRequest(t *testing.T) {
	var got *speechpb.RecognizeRequest
	tr := newTranscriber(func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		got = req
		return &speechpb.RecognizeResponse{Results: []*speechpb.SpeechRecognitionResult{
			result(alt("I goes to school", 0.7), alt("I go to school", 0.9)),
			result(alt(" every day ", 0.8)),
		}}, nil
	}, "")

	text, err := tr.Transcribe(context.Background(), canonicalWAV(t))
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "I go to school every day" {
		t.Fatalf("unexpected text: %q", text)
	}
	cfg := got.GetConfig()
	if cfg.GetEncoding() != speechpb.RecognitionConfig_LINEAR16 || cfg.GetSampleRateHertz() != 16000 {
		t.Fatalf("unexpected config: %v", cfg)
	}
	if cfg.GetLanguageCode() != "en-US" {
		t.Fatalf("unexpected language: %s", cfg.GetLanguageCode())
	}
	if n := len(got.GetAudio().GetContent()); n != 3200 {
		t.Fatalf("want 3200 pcm bytes, got %d", n)
	}
}

func TestTranscribeFailures(t *testing.T) {
	tests := []struct {
		name string
		resp *speechpb.RecognizeResponse
		err  error
	}{
		{"engine error", nil, errors.New("rpc error: code = Unavailable")},
		{"no results", &speechpb.RecognizeResponse{}, nil},
		{"blank alternatives", &speechpb.RecognizeResponse{Results: []*speechpb.SpeechRecognitionResult{result(alt("", 0))}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTranscriber(func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
				return tt.resp, tt.err
			}, "en-GB")
			_, err := tr.Transcribe(context.Background(), canonicalWAV(t))
			if !feedback.IsKind(err, feedback.KindRecognition) {
				t.Fatalf("want recognition error, got %v", err)
			}
		})
	}
}

func TestTranscribeRejectsNonWAV(t *testing.T) {
	p := filepath.Join(t.TempDir(), "x.wav")
	os.WriteFile(p, []byte("garbage"), 0o644)

	called := false
	tr := newTranscriber(func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		called = true
		return nil, nil
	}, "")
	if _, err := tr.Transcribe(context.Background(), p); err == nil {
		t.Fatal("expected error")
	}
	if called {
		t.Fatal("engine must not be called for invalid input")
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("close without client: %v", err)
	}
}
