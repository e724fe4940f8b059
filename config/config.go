package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"docchunker/backoff"
	"docchunker/chunker"
	"docchunker/types"
)

type ExtractionConfig struct {
	Endpoint     string        `validate:"omitempty,url"`
	Key          string
	APIVersion   string        `validate:"required"`
	Model        string        `validate:"required"`
	PollInterval time.Duration `validate:"gt=0"`
	MaxPolls     int           `validate:"min=1"`
	Timeout      time.Duration `validate:"gt=0"`
}

type CompletionConfig struct {
	Endpoint    string `validate:"omitempty,url"`
	Key         string
	Deployment  string
	APIVersion  string        `validate:"required"`
	Temperature float64       `validate:"min=0,max=2"`
	MaxTokens   int           `validate:"min=1"`
	Timeout     time.Duration `validate:"gt=0"`
}

type Config struct {
	ServerAddr     string `validate:"required"`
	UploadDir      string `validate:"required"`
	PublicDir      string
	MaxUploadBytes int `validate:"min=1"`
	LogLevel       slog.Level

	Chunking        types.ChunkConfig
	MaxPromptTokens int `validate:"min=0"`

	Extraction ExtractionConfig
	Completion CompletionConfig
	Retry      backoff.Config
}

func Default() Config {
	return Config{
		ServerAddr:     ":3000",
		UploadDir:      "uploads",
		PublicDir:      "public",
		MaxUploadBytes: 50 * 1024 * 1024,
		LogLevel:       slog.LevelInfo,
		Chunking: types.ChunkConfig{
			ChunkSize:   chunker.DefaultChunkSize,
			OverlapSize: chunker.DefaultOverlapSize,
		},
		Extraction: ExtractionConfig{
			APIVersion:   "2023-07-31",
			Model:        "prebuilt-read",
			PollInterval: 2 * time.Second,
			MaxPolls:     30,
			Timeout:      90 * time.Second,
		},
		Completion: CompletionConfig{
			APIVersion:  "2024-02-15-preview",
			Temperature: 0.7,
			MaxTokens:   1000,
			Timeout:     2 * time.Minute,
		},
		Retry: backoff.DefaultConfig(),
	}
}

// LoadEnvFile loads variables from the given .env files. A missing file is
// not an error; the process environment is used as is.
func LoadEnvFile(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// Load reads the configuration from the environment on top of Default and
// validates it.
func Load() (Config, error) {
	cfg := Default()
	r := envReader{}

	if port := os.Getenv("PORT"); port != "" {
		cfg.ServerAddr = ":" + port
	}
	cfg.ServerAddr = r.str("SERVER_ADDR", cfg.ServerAddr)
	cfg.UploadDir = r.str("UPLOAD_DIR", cfg.UploadDir)
	cfg.PublicDir = r.str("PUBLIC_DIR", cfg.PublicDir)
	cfg.MaxUploadBytes = r.int("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.LogLevel = r.level("LOG_LEVEL", cfg.LogLevel)

	cfg.Chunking.ChunkSize = r.int("DEFAULT_CHUNK_SIZE", cfg.Chunking.ChunkSize)
	cfg.Chunking.OverlapSize = r.int("DEFAULT_OVERLAP_SIZE", cfg.Chunking.OverlapSize)
	cfg.MaxPromptTokens = r.int("MAX_PROMPT_TOKENS", cfg.MaxPromptTokens)

	cfg.Extraction.Endpoint = r.str("AZURE_CONTENT_UNDERSTANDING_ENDPOINT", cfg.Extraction.Endpoint)
	cfg.Extraction.Key = r.str("AZURE_CONTENT_UNDERSTANDING_KEY", cfg.Extraction.Key)
	cfg.Extraction.PollInterval = r.duration("EXTRACTION_POLL_INTERVAL", cfg.Extraction.PollInterval)
	cfg.Extraction.MaxPolls = r.int("EXTRACTION_MAX_POLLS", cfg.Extraction.MaxPolls)
	cfg.Extraction.Timeout = r.duration("EXTRACTION_TIMEOUT", cfg.Extraction.Timeout)

	cfg.Completion.Endpoint = r.str("AZURE_OPENAI_ENDPOINT", cfg.Completion.Endpoint)
	cfg.Completion.Key = r.str("AZURE_OPENAI_KEY", cfg.Completion.Key)
	cfg.Completion.Deployment = r.str("AZURE_OPENAI_DEPLOYMENT", cfg.Completion.Deployment)
	cfg.Completion.Temperature = r.float("COMPLETION_TEMPERATURE", cfg.Completion.Temperature)
	cfg.Completion.MaxTokens = r.int("COMPLETION_MAX_TOKENS", cfg.Completion.MaxTokens)
	cfg.Completion.Timeout = r.duration("COMPLETION_TIMEOUT", cfg.Completion.Timeout)

	cfg.Retry.MaxAttempts = r.int("RETRY_MAX_ATTEMPTS", cfg.Retry.MaxAttempts)
	cfg.Retry.BaseDelay = r.duration("RETRY_BASE_DELAY", cfg.Retry.BaseDelay)
	cfg.Retry.MaxDelay = r.duration("RETRY_MAX_DELAY", cfg.Retry.MaxDelay)
	cfg.Retry.TotalTimeout = r.duration("RETRY_TOTAL_TIMEOUT", cfg.Retry.TotalTimeout)

	if len(r.errs) > 0 {
		return Config{}, errors.Join(r.errs...)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, e := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed on '%s' tag", e.Namespace(), e.Tag()))
		}
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}
	if c.Retry.MaxAttempts < 1 {
		return errors.New("invalid config: RETRY_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

type envReader struct {
	errs []error
}

func (r *envReader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (r *envReader) str(key, def string) string {
	if v, ok := r.lookup(key); ok {
		return v
	}
	return def
}

func (r *envReader) int(key string, def int) int {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return def
	}
	return n
}

func (r *envReader) float(key string, def float64) float64 {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not a number", key, v))
		return def
	}
	return f
}

func (r *envReader) duration(key string, def time.Duration) time.Duration {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not a duration", key, v))
		return def
	}
	return d
}

func (r *envReader) level(key string, def slog.Level) slog.Level {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not a log level", key, v))
		return def
	}
	return lvl
}
