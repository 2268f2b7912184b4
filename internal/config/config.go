package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

const (
	ProviderGoogle  = "google"
	ProviderWhisper = "whisper"

	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderVertex = "vertex"

	CacheFile  = "file"
	CacheRedis = "redis"

	DecoderFFmpeg = "ffmpeg"
	DecoderDocker = "docker"

	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	DefaultGroqModel   = "llama-3.3-70b-versatile"
)

type Config struct {
	Server struct {
		Port           int           `yaml:"port" env:"PORT"`
		ReadTimeout    time.Duration `yaml:"readTimeout" env:"SERVER_READ_TIMEOUT"`
		WriteTimeout   time.Duration `yaml:"writeTimeout" env:"SERVER_WRITE_TIMEOUT"`
		UploadDir      string        `yaml:"uploadDir" env:"UPLOAD_DIR"`
		MaxUploadMB    int64         `yaml:"maxUploadMB" env:"MAX_UPLOAD_MB"`
		AllowedOrigins []string      `yaml:"allowedOrigins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	} `yaml:"server"`

	Storage struct {
		TranscriptLogPath string `yaml:"transcriptLogPath" env:"TRANSCRIPT_LOG_PATH"`
		AnalysisCachePath string `yaml:"analysisCachePath" env:"ANALYSIS_CACHE_PATH"`
		CacheBackend      string `yaml:"cacheBackend" env:"ANALYSIS_CACHE_BACKEND"`
	} `yaml:"storage"`

	Redis struct {
		Addr string `yaml:"addr" env:"REDIS_ADDR"`
		Key  string `yaml:"key" env:"REDIS_ANALYSIS_KEY"`
	} `yaml:"redis"`

	Audio struct {
		SampleRate  int    `yaml:"sampleRate" env:"AUDIO_SAMPLE_RATE"`
		Decoder     string `yaml:"decoder" env:"AUDIO_DECODER"`
		FFmpegPath  string `yaml:"ffmpegPath" env:"FFMPEG_PATH"`
		DockerImage string `yaml:"dockerImage" env:"FFMPEG_DOCKER_IMAGE"`
	} `yaml:"audio"`

	STT struct {
		Provider        string `yaml:"provider" env:"STT_PROVIDER"`
		Language        string `yaml:"language" env:"STT_LANGUAGE"`
		CredentialsFile string `yaml:"credentialsFile" env:"STT_CREDENTIALS_FILE"`
		APIKey          string `yaml:"apiKey" env:"STT_API_KEY"`
		BaseURL         string `yaml:"baseURL" env:"STT_BASE_URL"`
		Model           string `yaml:"model" env:"STT_MODEL"`
	} `yaml:"stt"`

	LLM struct {
		Provider       string        `yaml:"provider" env:"LLM_PROVIDER"`
		APIKey         string        `yaml:"apiKey" env:"GROQ_API_KEY"`
		BaseURL        string        `yaml:"baseURL" env:"LLM_BASE_URL"`
		Model          string        `yaml:"model" env:"LLM_MODEL"`
		Temperature    float32       `yaml:"temperature" env:"LLM_TEMPERATURE"`
		MaxTokens      int           `yaml:"maxTokens" env:"LLM_MAX_TOKENS"`
		VertexProject  string        `yaml:"vertexProject" env:"VERTEX_PROJECT"`
		VertexLocation string        `yaml:"vertexLocation" env:"VERTEX_LOCATION"`
		Timeout        time.Duration `yaml:"timeout" env:"LLM_TIMEOUT"`
	} `yaml:"llm"`

	Minio struct {
		Enabled    bool   `yaml:"enabled" env:"MINIO_ENABLED"`
		Endpoint   string `yaml:"endpoint" env:"MINIO_ENDPOINT"`
		AccessKey  string `yaml:"accessKey" env:"MINIO_ACCESS_KEY"`
		SecretKey  string `yaml:"secretKey" env:"MINIO_SECRET_KEY"`
		BucketName string `yaml:"bucketName" env:"MINIO_BUCKET"`
		Region     string `yaml:"region" env:"MINIO_REGION"`
		UseSSL     bool   `yaml:"useSSL" env:"MINIO_USE_SSL"`
	} `yaml:"minio"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`
}

// Default returns the configuration used when neither the YAML file nor the
// environment set a value.
func Default() *Config {
	var c Config
	c.Server.Port = 10000
	c.Server.ReadTimeout = 30 * time.Second
	c.Server.WriteTimeout = 5 * time.Minute
	c.Server.UploadDir = "uploads"
	c.Server.MaxUploadMB = 25
	c.Server.AllowedOrigins = []string{
		"http://localhost:3000",
		"https://solvo-audio-ai.vercel.app",
	}

	c.Storage.TranscriptLogPath = "data/transcripts.json"
	c.Storage.AnalysisCachePath = "data/last_analysis.json"
	c.Storage.CacheBackend = CacheFile

	c.Redis.Key = "speech-coach:last-analysis"

	c.Audio.SampleRate = 16000
	c.Audio.Decoder = DecoderFFmpeg
	c.Audio.FFmpegPath = "ffmpeg"

	c.STT.Provider = ProviderGoogle
	c.STT.Language = "en-US"

	c.LLM.Provider = ProviderGroq
	c.LLM.Model = DefaultGroqModel
	c.LLM.Temperature = 0.5
	c.LLM.MaxTokens = 3000
	c.LLM.VertexLocation = "us-central1"
	c.LLM.Timeout = 2 * time.Minute

	c.Logging.Level = "info"
	c.Logging.Format = "json"
	return &c
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when it does not exist), then the process environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.applyFallbacks()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyFallbacks() {
	c.STT.Provider = strings.ToLower(strings.TrimSpace(c.STT.Provider))
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	c.Storage.CacheBackend = strings.ToLower(strings.TrimSpace(c.Storage.CacheBackend))
	c.Audio.Decoder = strings.ToLower(strings.TrimSpace(c.Audio.Decoder))

	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("LLM_API_KEY")
	}
	if c.LLM.APIKey == "" && c.LLM.Provider == ProviderOpenAI {
		c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.LLM.BaseURL == "" && c.LLM.Provider == ProviderGroq {
		c.LLM.BaseURL = DefaultGroqBaseURL
	}
	if c.LLM.Provider == ProviderVertex && c.LLM.Model == DefaultGroqModel {
		c.LLM.Model = "gemini-1.5-flash"
	}

	// whisper talks to the LLM endpoint unless configured separately; the key
	// is never shared so a missing LLM credential stays a soft failure
	if c.STT.Provider == ProviderWhisper {
		if c.STT.BaseURL == "" {
			c.STT.BaseURL = c.LLM.BaseURL
		}
		if c.STT.Model == "" {
			if c.STT.BaseURL == DefaultGroqBaseURL {
				c.STT.Model = "whisper-large-v3"
			} else {
				c.STT.Model = "whisper-1"
			}
		}
	}
}

// Validate checks the values that would otherwise fail late, at request time.
// A missing LLM credential is deliberately not an error here.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.UploadDir == "" {
		return fmt.Errorf("server.uploadDir cannot be empty")
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.maxUploadMB must be positive, got %d", c.Server.MaxUploadMB)
	}
	if c.Storage.TranscriptLogPath == "" {
		return fmt.Errorf("storage.transcriptLogPath cannot be empty")
	}

	switch c.Storage.CacheBackend {
	case CacheFile:
		if c.Storage.AnalysisCachePath == "" {
			return fmt.Errorf("storage.analysisCachePath cannot be empty")
		}
	case CacheRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required when storage.cacheBackend is %q", CacheRedis)
		}
	default:
		return fmt.Errorf("invalid storage.cacheBackend: %q (allowed: file, redis)", c.Storage.CacheBackend)
	}

	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sampleRate must be positive, got %d", c.Audio.SampleRate)
	}
	switch c.Audio.Decoder {
	case DecoderFFmpeg, DecoderDocker:
	default:
		return fmt.Errorf("invalid audio.decoder: %q (allowed: ffmpeg, docker)", c.Audio.Decoder)
	}

	switch c.STT.Provider {
	case ProviderGoogle, ProviderWhisper:
	default:
		return fmt.Errorf("invalid stt.provider: %q (allowed: google, whisper)", c.STT.Provider)
	}
	if c.STT.Provider == ProviderWhisper && c.STT.APIKey == "" {
		return fmt.Errorf("stt.apiKey is required when stt.provider is %q", ProviderWhisper)
	}

	switch c.LLM.Provider {
	case ProviderGroq, ProviderOpenAI, ProviderVertex:
	default:
		return fmt.Errorf("invalid llm.provider: %q (allowed: groq, openai, vertex)", c.LLM.Provider)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.maxTokens must be positive, got %d", c.LLM.MaxTokens)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got %v", c.LLM.Temperature)
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be positive, got %v", c.LLM.Timeout)
	}

	if c.Minio.Enabled && (c.Minio.Endpoint == "" || c.Minio.BucketName == "") {
		return fmt.Errorf("minio.endpoint and minio.bucketName are required when minio is enabled")
	}
	return nil
}

// Credential returns the secret the feedback generator needs. For Vertex AI
// this is the project id, since authentication comes from the environment.
func (c *Config) Credential() string {
	if c.LLM.Provider == ProviderVertex {
		return c.LLM.VertexProject
	}
	return c.LLM.APIKey
}

// MaxUploadBytes converts the upload limit to bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.Server.MaxUploadMB << 20
}
