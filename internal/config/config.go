package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Recognition service (optional; image scans fail without it)
	OCRURL    string
	OCRAPIKey string

	// Analysis model
	AnthropicAPIKey string
	AnthropicModel  string
	AnalysisPrompt  string

	// Scan history service (optional; scans stay in memory without it)
	HistoryURL    string
	HistoryAPIKey string

	// Worker pool
	WorkerCount          int
	MaxQueueSize         int
	MaxConcurrentAnalyze int

	// Upload limits
	MaxUploadBytes int64

	// Segmenting defaults
	SegmentTokens int

	// Scan state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		OCRURL:    os.Getenv("OCR_URL"),
		OCRAPIKey: os.Getenv("OCR_API_KEY"),

		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  envOr("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
		AnalysisPrompt:  os.Getenv("ANALYSIS_PROMPT"),

		HistoryURL:    os.Getenv("HISTORY_URL"),
		HistoryAPIKey: os.Getenv("HISTORY_API_KEY"),

		WorkerCount:          envInt("WORKER_COUNT", 4),
		MaxQueueSize:         envInt("MAX_QUEUE_SIZE", 100),
		MaxConcurrentAnalyze: envInt("MAX_CONCURRENT_ANALYZE", 5),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		SegmentTokens: envInt("SEGMENT_TOKENS", 1200),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxConcurrentAnalyze <= 0 {
		cfg.MaxConcurrentAnalyze = 5
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.SegmentTokens <= 0 {
		cfg.SegmentTokens = 1200
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	if c.HistoryURL != "" && c.HistoryAPIKey == "" {
		return fmt.Errorf("HISTORY_API_KEY is required when HISTORY_URL is set")
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
