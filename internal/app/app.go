// Package app wires configuration into the services shared by the HTTP
// server and the command-line tool.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/bryanwahyu/speech-coach/internal/application"
	appfeedback "github.com/bryanwahyu/speech-coach/internal/application/feedback"
	"github.com/bryanwahyu/speech-coach/internal/application/pipeline"
	"github.com/bryanwahyu/speech-coach/internal/config"
	domai "github.com/bryanwahyu/speech-coach/internal/domain/ai"
	"github.com/bryanwahyu/speech-coach/internal/domain/feedback"
	"github.com/bryanwahyu/speech-coach/internal/infra/ai/openai"
	"github.com/bryanwahyu/speech-coach/internal/infra/ai/prompt"
	"github.com/bryanwahyu/speech-coach/internal/infra/ai/vertex"
	"github.com/bryanwahyu/speech-coach/internal/infra/audio"
	"github.com/bryanwahyu/speech-coach/internal/infra/executor/docker"
	"github.com/bryanwahyu/speech-coach/internal/infra/storage"
	"github.com/bryanwahyu/speech-coach/internal/infra/store/file"
	redisstore "github.com/bryanwahyu/speech-coach/internal/infra/store/redis"
	"github.com/bryanwahyu/speech-coach/internal/infra/stt/google"
	"github.com/bryanwahyu/speech-coach/internal/infra/stt/whisper"
	"github.com/bryanwahyu/speech-coach/internal/metrics"
	"github.com/bryanwahyu/speech-coach/internal/middleware"
)

type App struct {
	Pipeline *pipeline.Service
	Feedback *appfeedback.Service
	Checks   map[string]middleware.HealthChecker

	closers []func() error
}

// New builds every adapter selected by cfg. Remote clients that cannot be
// created at startup are logged and surface as errors on first use instead.
func New(ctx context.Context, cfg *config.Config, log *logrus.Logger, m *metrics.Metrics) (*App, error) {
	a := &App{Checks: map[string]middleware.HealthChecker{}}

	var decoder audio.Decoder
	switch cfg.Audio.Decoder {
	case config.DecoderDocker:
		d := docker.NewDecoder(cfg.Audio.DockerImage)
		a.Checks["docker"] = middleware.CheckFunc(func(context.Context) error { return d.Available() })
		decoder = d
	default:
		d := audio.NewFFmpegDecoder(cfg.Audio.FFmpegPath)
		a.Checks["ffmpeg"] = middleware.CheckFunc(func(context.Context) error { return d.Available() })
		decoder = d
	}
	normalizer := audio.NewNormalizer(decoder, cfg.Audio.SampleRate, log)

	transcriber, err := a.transcriber(ctx, cfg)
	if err != nil {
		log.WithError(err).WithField("provider", cfg.STT.Provider).Warn("speech recognition unavailable")
		transcriber = unavailable{err: err}
	}

	fileOpts := []file.Option{file.WithLogger(log)}
	if m != nil {
		fileOpts = append(fileOpts, file.WithWarningCounter(m.PersistenceWarnings))
	}
	transcripts := file.NewTranscriptLog(cfg.Storage.TranscriptLogPath, fileOpts...)

	cache, err := a.analysisCache(cfg, log, fileOpts)
	if err != nil {
		a.Close()
		return nil, err
	}

	completer, err := a.completer(ctx, cfg)
	if err != nil {
		log.WithError(err).WithField("provider", cfg.LLM.Provider).Warn("llm client unavailable")
		completer = failingCompleter{err: err}
	}

	a.Feedback = &appfeedback.Service{
		Credential:  cfg.Credential(),
		Log:         transcripts,
		Cache:       cache,
		Completer:   completer,
		BuildPrompt: prompt.Build,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
		Logger:      log,
	}
	if cfg.Credential() == "" {
		log.Warn("LLM credential is not set; responses will carry transcripts only")
	}

	a.Pipeline = &pipeline.Service{
		Normalizer:  normalizer,
		Transcriber: transcriber,
		Log:         transcripts,
		Analyzer:    a.Feedback,
		Clock:       application.SystemClock{},
		Metrics:     m,
		Logger:      log,
	}

	if cfg.Minio.Enabled {
		store, err := storage.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
			log,
		)
		if err != nil {
			log.WithError(err).Warn("minio unavailable, recordings will not be archived")
		} else {
			a.Pipeline.Archive = store
			a.Checks["minio"] = middleware.CheckFunc(store.Ping)
		}
	}
	return a, nil
}

func (a *App) transcriber(ctx context.Context, cfg *config.Config) (feedback.Transcriber, error) {
	switch cfg.STT.Provider {
	case config.ProviderWhisper:
		if cfg.STT.APIKey == "" {
			return nil, fmt.Errorf("whisper api key is not set")
		}
		return whisper.New(cfg.STT.APIKey, cfg.STT.BaseURL, cfg.STT.Model, cfg.STT.Language), nil
	default:
		g, err := google.New(ctx, cfg.STT.CredentialsFile, cfg.STT.Language)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, g.Close)
		return g, nil
	}
}

func (a *App) analysisCache(cfg *config.Config, log *logrus.Logger, opts []file.Option) (feedback.AnalysisCache, error) {
	if cfg.Storage.CacheBackend != config.CacheRedis {
		return file.NewAnalysisCache(cfg.Storage.AnalysisCachePath, opts...), nil
	}
	rdb, err := redisstore.NewClient(cfg.Redis.Addr)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, rdb.Close)
	cache := redisstore.NewAnalysisCache(rdb, cfg.Redis.Key, log)
	a.Checks["redis"] = middleware.CheckFunc(cache.Ping)
	return cache, nil
}

func (a *App) completer(ctx context.Context, cfg *config.Config) (domai.Completer, error) {
	switch cfg.LLM.Provider {
	case config.ProviderVertex:
		if cfg.LLM.VertexProject == "" {
			return nil, fmt.Errorf("vertex project is not set")
		}
		c, err := vertex.NewClient(ctx, cfg.LLM.VertexProject, cfg.LLM.VertexLocation, cfg.LLM.Model)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, c.Close)
		return c, nil
	default:
		return openai.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model), nil
	}
}

// Close releases remote clients in reverse creation order.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

type unavailable struct{ err error }

func (u unavailable) Transcribe(context.Context, string) (string, error) {
	return "", feedback.E(feedback.KindRecognition, "Transcribe", "speech recognition is not available", u.err)
}

type failingCompleter struct{ err error }

func (f failingCompleter) Complete(context.Context, domai.CompletionRequest) (string, error) {
	return "", f.err
}
