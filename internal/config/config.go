package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	CORSOrigins     []string

	// Data composition.
	ModelPath       string
	CellsFile       string
	UpstreamTimeout time.Duration
	GBIFCacheSize   int
	GBIFRateRPS     float64

	// Narrative generation. An empty API key disables generation; fallback
	// strings serve instead.
	OpenAIAPIKey       string
	OpenAIModel        string
	NarrativeThreshold float64
	NarrativeTimeout   time.Duration

	// Scored-cell export (feature-flagged via KAFKA_BROKERS / KAFKA_ENABLED).
	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	upstreamTimeout, err := parseDuration("UPSTREAM_TIMEOUT", "4s")
	if err != nil {
		return nil, err
	}

	narrativeTimeout, err := parseDuration("NARRATIVE_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	threshold, err := parseFloat("NARRATIVE_THRESHOLD", "0.5")
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseInt("GBIF_CACHE_SIZE", "500")
	if err != nil {
		return nil, err
	}

	rateRPS, err := parseFloat("GBIF_RATE_RPS", "5")
	if err != nil {
		return nil, err
	}

	brokers := parseList(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		CORSOrigins:     parseList(envOrDefault("CORS_ORIGINS", "*")),

		ModelPath:       envOrDefault("MODEL_PATH", "models/invasive_risk_model_v1.json"),
		CellsFile:       os.Getenv("CELLS_FILE"),
		UpstreamTimeout: upstreamTimeout,
		GBIFCacheSize:   cacheSize,
		GBIFRateRPS:     rateRPS,

		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:        envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		NarrativeThreshold: threshold,
		NarrativeTimeout:   narrativeTimeout,

		KafkaBrokers: brokers,
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "scored-cells"),
		KafkaEnabled: kafkaEnabled,
	}

	if cfg.NarrativeThreshold < 0 || cfg.NarrativeThreshold > 1 {
		return nil, fmt.Errorf("NARRATIVE_THRESHOLD must be in [0, 1], got %g", cfg.NarrativeThreshold)
	}
	if cfg.GBIFCacheSize <= 0 {
		return nil, fmt.Errorf("GBIF_CACHE_SIZE must be positive, got %d", cfg.GBIFCacheSize)
	}
	if cfg.GBIFRateRPS <= 0 {
		return nil, fmt.Errorf("GBIF_RATE_RPS must be positive, got %g", cfg.GBIFRateRPS)
	}
	if len(cfg.CORSOrigins) == 0 {
		return nil, fmt.Errorf("CORS_ORIGINS must list at least one origin")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

// NarrativeEnabled reports whether an API key is configured for the
// text-generation service.
func (c *Config) NarrativeEnabled() bool { return c.OpenAIAPIKey != "" }

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseFloat(key, fallback string) (float64, error) {
	f, err := strconv.ParseFloat(envOrDefault(key, fallback), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return f, nil
}

func parseInt(key, fallback string) (int, error) {
	n, err := strconv.Atoi(envOrDefault(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

// parseList splits a comma-separated value, trimming whitespace and dropping
// empty entries.
func parseList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
