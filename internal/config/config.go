package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dgallion1/xml2rst/internal/adornment"
)

type Config struct {
	Port string

	// Auth. Empty disables bearer-token checks.
	APIKey string

	// Rendering defaults, overridable per request.
	Adornment string
	Fold      int

	// Worker pool
	WorkerCount          int
	MaxQueueSize         int
	MaxConcurrentConvert int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("XML2RST_API_KEY"),

		Adornment: envOr("XML2RST_ADORNMENT", adornment.DefaultSpec),
		Fold:      envInt("XML2RST_FOLD", 0),

		WorkerCount:          envInt("WORKER_COUNT", 4),
		MaxQueueSize:         envInt("MAX_QUEUE_SIZE", 100),
		MaxConcurrentConvert: envInt("MAX_CONCURRENT_CONVERT", 4),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxConcurrentConvert <= 0 {
		cfg.MaxConcurrentConvert = 4
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

// Validate reports a malformed adornment specification or a negative fold.
func (c Config) Validate() error {
	if _, err := adornment.Parse(c.Adornment); err != nil {
		return fmt.Errorf("XML2RST_ADORNMENT: %w", err)
	}
	if c.Fold < 0 {
		return fmt.Errorf("XML2RST_FOLD must not be negative, got %d", c.Fold)
	}
	return nil
}

// AdornmentSpec returns the parsed adornment specification, falling back to
// the built-in one when the configured value does not parse.
func (c Config) AdornmentSpec() adornment.Spec {
	spec, err := adornment.Parse(c.Adornment)
	if err != nil {
		return adornment.Default()
	}
	return spec
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
