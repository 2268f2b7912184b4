package google

import (
	"context"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"github.com/bryanwahyu/speech-coach/internal/domain/feedback"
	"github.com/bryanwahyu/speech-coach/internal/infra/stt"
)

type recognizeFunc func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)

// Transcriber sends a whole waveform to Google Cloud Speech-to-Text in a
// single synchronous Recognize call.
type Transcriber struct {
	client    *speech.Client
	recognize recognizeFunc

	Language string
}

// New dials the Speech API. credentialsFile may be empty, in which case
// Application Default Credentials are used.
func New(ctx context.Context, credentialsFile, language string) (*Transcriber, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	t := newTranscriber(func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		return c.Recognize(ctx, req)
	}, language)
	t.client = c
	return t, nil
}

func newTranscriber(fn recognizeFunc, language string) *Transcriber {
	if language == "" {
		language = "en-US"
	}
	return &Transcriber{recognize: fn, Language: language}
}

func (g *Transcriber) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func (g *Transcriber) Transcribe(ctx context.Context, wavPath string) (string, error) {
	const op = "GoogleSpeech.Transcribe"

	w, err := stt.LoadWaveform(op, wavPath)
	if err != nil {
		return "", err
	}

	resp, err := g.recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            int32(w.Format.SampleRate),
			AudioChannelCount:          int32(w.Format.Channels),
			LanguageCode:               g.Language,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: w.PCM},
		},
	})
	if err != nil {
		return "", feedback.E(feedback.KindRecognition, op, "speech service request failed", err)
	}

	text := bestTranscript(resp)
	if text == "" {
		return "", stt.NoSpeech(op)
	}
	return text, nil
}

// bestTranscript keeps the most confident alternative of every result and
// joins them; consecutive results cover consecutive stretches of audio.
func bestTranscript(resp *speechpb.RecognizeResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, r := range resp.Results {
		var (
			best     string
			bestConf float32 = -1
		)
		for _, alt := range r.Alternatives {
			if alt.Transcript != "" && alt.Confidence > bestConf {
				best = alt.Transcript
				bestConf = alt.Confidence
			}
		}
		if s := strings.TrimSpace(best); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
