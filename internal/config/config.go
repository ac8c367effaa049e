package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dgallion1/pageflow/internal/pagination"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Sessions
	SessionTTL time.Duration

	// Export worker pool
	WorkerCount  int
	MaxQueueSize int
	JobTTL       time.Duration

	// Upload limits
	MaxUploadBytes      int64
	MaxBatchConcurrency int

	// Rate limiting (per API key)
	RateLimitRPS   float64
	RateLimitBurst int

	// PDF
	PDFFallbackPdftotext bool

	// Logging
	LogLevel string
	LogFile  string

	// Page geometry new sessions start with
	Page pagination.PageConfig
}

func Load() Config {
	def := pagination.DefaultConfig()
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("PAGEFLOW_API_KEY"),

		SessionTTL: envDuration("SESSION_TTL", 2*time.Hour),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),
		JobTTL:       envDuration("JOB_TTL", 1*time.Hour),

		MaxUploadBytes:      envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB
		MaxBatchConcurrency: envInt("MAX_BATCH_CONCURRENCY", 4),

		RateLimitRPS:   envFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: envInt("RATE_LIMIT_BURST", 40),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),

		LogLevel: envOr("LOG_LEVEL", "info"),
		LogFile:  os.Getenv("LOG_FILE"),

		Page: pagination.PageConfig{
			PageHeight:     envFloat("PAGE_HEIGHT", def.PageHeight),
			PageWidth:      envFloat("PAGE_WIDTH", def.PageWidth),
			PageMargin:     envFloat("PAGE_MARGIN", def.PageMargin),
			Label:          envOr("PAGE_LABEL", def.Label),
			ShowPageNumber: envBool("SHOW_PAGE_NUMBER", def.ShowPageNumber),
		},
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.MaxBatchConcurrency <= 0 {
		cfg.MaxBatchConcurrency = 4
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 1
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 2 * time.Hour
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("PAGEFLOW_API_KEY is required")
	}
	if err := c.Page.Validate(); err != nil {
		return fmt.Errorf("PAGE_* settings: %w", err)
	}
	return nil
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

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
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
