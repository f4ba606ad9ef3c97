// Package config loads runtime settings from the environment and the source
// catalog from YAML.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Sources
	SourcesConfigPath string

	// Ingestion
	FetchTimeout         time.Duration
	RetryAttempts        int
	RetryDelay           time.Duration
	MaxConcurrentSources int
	IngestInterval       time.Duration

	// Summarization
	GeminiAPIKey        string
	LocalInferenceURL   string
	DefaultSummaryModel string
	SummaryBatchSize    int
	SummaryItemTimeout  time.Duration
	SummaryBatchTimeout time.Duration
	MaxRemoteRequests   int // per minute, 0 = unlimited
	SummaryCacheTTL     time.Duration

	// Storage
	DatabaseURL string // empty runs on the in-memory store

	// Monitoring
	MonitorAddr string

	// App
	Debug bool
}

func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		SourcesConfigPath:    "configs/sources.yaml",
		FetchTimeout:         30 * time.Second,
		RetryAttempts:        3,
		RetryDelay:           1 * time.Second,
		MaxConcurrentSources: 4,
		IngestInterval:       5 * time.Minute,
		DefaultSummaryModel:  "bart-large-cnn",
		SummaryBatchSize:     4,
		SummaryItemTimeout:   2 * time.Minute,
		SummaryBatchTimeout:  15 * time.Minute,
		MaxRemoteRequests:    60,
		SummaryCacheTTL:      24 * time.Hour,
		MonitorAddr:          ":8080",
	}

	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.LocalInferenceURL = getEnvOrDefault("LOCAL_INFERENCE_URL", "http://localhost:8090")
	cfg.SourcesConfigPath = getEnvOrDefault("SOURCES_CONFIG_PATH", cfg.SourcesConfigPath)
	cfg.MonitorAddr = getEnvOrDefault("MONITOR_ADDR", cfg.MonitorAddr)

	if model := os.Getenv("DEFAULT_SUMMARY_MODEL"); model != "" {
		cfg.DefaultSummaryModel = model
	}

	cfg.RetryAttempts = getEnvIntOrDefault("RETRY_ATTEMPTS", cfg.RetryAttempts)
	cfg.MaxConcurrentSources = getEnvIntOrDefault("MAX_CONCURRENT_SOURCES", cfg.MaxConcurrentSources)
	cfg.SummaryBatchSize = getEnvIntOrDefault("SUMMARY_BATCH_SIZE", cfg.SummaryBatchSize)
	cfg.MaxRemoteRequests = getEnvIntOrDefault("MAX_REMOTE_REQUESTS", cfg.MaxRemoteRequests)

	if v := os.Getenv("FETCH_TIMEOUT_SECONDS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.FetchTimeout = time.Duration(val) * time.Second
		}
	}
	if v := os.Getenv("INGEST_INTERVAL_MINUTES"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.IngestInterval = time.Duration(val) * time.Minute
		}
	}
	if v := os.Getenv("SUMMARY_CACHE_TTL_HOURS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.SummaryCacheTTL = time.Duration(val) * time.Hour
		}
	}

	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
	}

	return cfg, cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if c.SourcesConfigPath == "" {
		return fmt.Errorf("SOURCES_CONFIG_PATH is required")
	}
	if c.SummaryBatchSize <= 0 {
		return fmt.Errorf("SUMMARY_BATCH_SIZE must be positive")
	}
	if c.RetryAttempts <= 0 {
		return fmt.Errorf("RETRY_ATTEMPTS must be positive")
	}
	return nil
}
