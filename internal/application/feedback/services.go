package feedback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bryanwahyu/speech-coach/internal/domain/ai"
	domain "github.com/bryanwahyu/speech-coach/internal/domain/feedback"
)

// PromptBuilder renders the coaching prompt for a transcript.
type PromptBuilder func(transcript string) (string, error)

// Service turns the most recent transcript into teaching feedback.
type Service struct {
	Credential  string
	Log         domain.TranscriptLog
	Cache       domain.AnalysisCache
	Completer   ai.Completer
	BuildPrompt PromptBuilder
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration // per completion call; zero disables
	Logger      logrus.FieldLogger
}

// Analyze runs the feedback step against the last record of the transcript
// log. The cache is only written after a successful completion.
func (s *Service) Analyze(ctx context.Context) (string, error) {
	const op = "Feedback.Analyze"

	if strings.TrimSpace(s.Credential) == "" {
		return "", domain.E(domain.KindConfiguration, op, domain.MsgMissingCredential, nil)
	}

	records, err := s.Log.Load(ctx)
	if err != nil {
		return "", domain.E(domain.KindPersistence, op, "", err)
	}
	if len(records) == 0 {
		return "", domain.E(domain.KindNotFound, op, domain.MsgNoTranscript, nil)
	}
	last := records[len(records)-1]

	prompt, err := s.BuildPrompt(last.Text)
	if err != nil {
		return "", domain.E(domain.KindUnhandled, op, "", fmt.Errorf("build prompt: %w", err))
	}

	cctx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	text, err := s.Completer.Complete(cctx, ai.CompletionRequest{
		Prompt:      prompt,
		Temperature: s.Temperature,
		MaxTokens:   s.MaxTokens,
	})
	if err != nil {
		return "", domain.E(domain.KindRemoteService, op, "", err)
	}

	if err := s.Cache.Save(ctx, domain.Analysis{Text: text}); err != nil {
		return "", err
	}
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{
			"transcript_at": last.Timestamp,
			"chars":         len(text),
		}).Debug("analysis cached")
	}
	return text, nil
}

// Latest returns the cached analysis, or a not-found error when none exists.
func (s *Service) Latest(ctx context.Context) (domain.Analysis, error) {
	a, err := s.Cache.Latest(ctx)
	if err != nil {
		return domain.Analysis{}, err
	}
	if a == nil {
		return domain.Analysis{}, domain.E(domain.KindNotFound, "Feedback.Latest", "No analysis is available yet.", nil)
	}
	return *a, nil
}
