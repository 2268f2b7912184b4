package whisper

import (
	"context"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/speech-coach/internal/domain/feedback"
	"github.com/bryanwahyu/speech-coach/internal/infra/stt"
)

// Transcriber calls an OpenAI-compatible /audio/transcriptions endpoint
// (OpenAI Whisper or Groq's hosted whisper models).
type Transcriber struct {
	client   *openai.Client
	Model    string
	Language string
}

func New(apiKey, baseURL, model, language string) *Transcriber {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = openai.Whisper1
	}
	return &Transcriber{
		client:   openai.NewClientWithConfig(config),
		Model:    model,
		Language: stt.BaseLanguage(language),
	}
}

func (w *Transcriber) Transcribe(ctx context.Context, wavPath string) (string, error) {
	const op = "Whisper.Transcribe"

	// validates the file before it is uploaded
	if _, err := stt.LoadWaveform(op, wavPath); err != nil {
		return "", err
	}

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:       w.Model,
		FilePath:    wavPath,
		Language:    w.Language,
		Format:      openai.AudioResponseFormatJSON,
		Temperature: 0,
	})
	if err != nil {
		return "", feedback.E(feedback.KindRecognition, op, "transcription request failed", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", stt.NoSpeech(op)
	}
	return text, nil
}
