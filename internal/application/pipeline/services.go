package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bryanwahyu/speech-coach/internal/application"
	domain "github.com/bryanwahyu/speech-coach/internal/domain/feedback"
	"github.com/bryanwahyu/speech-coach/internal/metrics"
)

// Outcome labels for the pipeline_runs metric.
const (
	OutcomeSuccess     = "success"
	OutcomeSoftFailure = "soft_failure"
	OutcomeFailed      = "failed"
)

const generalErrorPrefix = "General error: "

// Service runs one recording through Normalize, Transcribe, Log and Analyze.
// It is safe for concurrent use.
type Service struct {
	Normalizer  domain.Normalizer
	Transcriber domain.Transcriber
	Log         domain.TranscriptLog
	Analyzer    domain.Analyzer
	Archive     domain.Archive // nil disables archiving

	// ScratchDir holds normalized waveforms; defaults to the upload's directory.
	ScratchDir string
	Clock      application.Clock
	Metrics    *metrics.Metrics
	Logger     logrus.FieldLogger

	// serializes Log+Analyze so the analysis derives from this run's transcript
	mu sync.Mutex
}

// Process never returns an error: every failure is reduced to Result.Error.
// The upload itself belongs to the caller; the normalized waveform is
// removed before Process returns.
func (s *Service) Process(ctx context.Context, uploadPath string) (res domain.Result) {
	runID := uuid.NewString()
	log := s.logger().WithFields(logrus.Fields{"run_id": runID, "upload": filepath.Base(uploadPath)})

	dir := s.ScratchDir
	if dir == "" {
		dir = filepath.Dir(uploadPath)
	}
	wavPath := filepath.Join(dir, runID+".wav")
	defer func() {
		if err := os.Remove(wavPath); err != nil && !os.IsNotExist(err) {
			log.WithError(err).Warn("failed to remove normalized audio")
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			err := domain.E(domain.KindUnhandled, "Pipeline.Process", "", fmt.Errorf("panic: %v", r))
			log.WithError(err).Error("pipeline panicked")
			res = s.fail(err)
		}
	}()

	if err := s.stage(log, domain.StageNormalize, func() error {
		return s.Normalizer.Normalize(ctx, uploadPath, wavPath)
	}); err != nil {
		return s.fail(err)
	}

	var transcript string
	if err := s.stage(log, domain.StageTranscribe, func() (err error) {
		transcript, err = s.Transcriber.Transcribe(ctx, wavPath)
		return err
	}); err != nil {
		return s.fail(err)
	}

	s.archive(ctx, log, wavPath, runID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.stage(log, domain.StageLog, func() error {
		_, err := s.Log.Append(ctx, transcript)
		return err
	}); err != nil {
		return s.fail(err)
	}

	var analysis string
	err := s.stage(log, domain.StageAnalyze, func() (err error) {
		analysis, err = s.Analyzer.Analyze(ctx)
		return err
	})
	switch {
	case err == nil:
		s.count(OutcomeSuccess)
	case domain.IsKind(err, domain.KindConfiguration), domain.IsKind(err, domain.KindNotFound):
		log.WithField("kind", domain.KindOf(err)).Warn("analysis unavailable, returning transcript only")
		analysis = domain.UserMessage(err)
		s.count(OutcomeSoftFailure)
	default:
		return s.fail(err)
	}

	return domain.Result{Transcript: transcript, Analysis: analysis}
}

func (s *Service) stage(log logrus.FieldLogger, name string, fn func() error) error {
	start := s.now()
	err := fn()
	elapsed := s.now().Sub(start)

	status := "ok"
	entry := log.WithFields(logrus.Fields{"stage": name, "duration_ms": elapsed.Milliseconds()})
	if err != nil {
		status = "error"
		entry.WithError(err).WithField("kind", domain.KindOf(err)).Warn("stage failed")
	} else {
		entry.Info("stage completed")
	}
	if s.Metrics != nil {
		s.Metrics.StageDuration.WithLabelValues(name, status).Observe(elapsed.Seconds())
	}
	return err
}

// archive uploads the normalized waveform; failures are logged only.
func (s *Service) archive(ctx context.Context, log logrus.FieldLogger, wavPath, runID string) {
	if s.Archive == nil {
		return
	}
	key := fmt.Sprintf("recordings/%s/%s.wav", s.now().UTC().Format("2006/01/02"), runID)
	url, err := s.Archive.UploadAndCleanup(ctx, wavPath, key)
	if err != nil {
		log.WithError(err).WithField("key", key).Warn("failed to archive recording")
		if s.Metrics != nil {
			s.Metrics.ArchiveFailures.Inc()
		}
		return
	}
	log.WithField("url", url).Debug("recording archived")
}

func (s *Service) fail(err error) domain.Result {
	s.count(OutcomeFailed)
	return domain.Result{Error: generalErrorPrefix + err.Error()}
}

func (s *Service) count(outcome string) {
	if s.Metrics != nil {
		s.Metrics.PipelineRuns.WithLabelValues(outcome).Inc()
	}
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *Service) logger() logrus.FieldLogger {
	if s.Logger == nil {
		return logrus.StandardLogger()
	}
	return s.Logger
}
