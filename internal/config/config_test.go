package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "sk-test-key"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)

	assert.Equal(t, "models/invasive_risk_model_v1.json", cfg.ModelPath)
	assert.Empty(t, cfg.CellsFile)
	assert.Equal(t, 4*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, 500, cfg.GBIFCacheSize)
	assert.Equal(t, 5.0, cfg.GBIFRateRPS)

	assert.Empty(t, cfg.OpenAIAPIKey)
	assert.False(t, cfg.NarrativeEnabled())
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, 0.5, cfg.NarrativeThreshold)
	assert.Equal(t, 10*time.Second, cfg.NarrativeTimeout)

	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, "scored-cells", cfg.KafkaTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("CORS_ORIGINS", "https://dashboard.example.com, https://staging.example.com")
	t.Setenv("MODEL_PATH", "/srv/models/custom.json")
	t.Setenv("CELLS_FILE", "/etc/risk/cells.yaml")
	t.Setenv("UPSTREAM_TIMEOUT", "2s")
	t.Setenv("GBIF_CACHE_SIZE", "100")
	t.Setenv("GBIF_RATE_RPS", "1.5")
	t.Setenv("OPENAI_API_KEY", testAPIKey)
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("NARRATIVE_THRESHOLD", "0.4")
	t.Setenv("NARRATIVE_TIMEOUT", "5s")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "custom-scored")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"https://dashboard.example.com", "https://staging.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, "/srv/models/custom.json", cfg.ModelPath)
	assert.Equal(t, "/etc/risk/cells.yaml", cfg.CellsFile)
	assert.Equal(t, 2*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, 100, cfg.GBIFCacheSize)
	assert.Equal(t, 1.5, cfg.GBIFRateRPS)
	assert.Equal(t, testAPIKey, cfg.OpenAIAPIKey)
	assert.True(t, cfg.NarrativeEnabled())
	assert.Equal(t, "gpt-4o", cfg.OpenAIModel)
	assert.Equal(t, 0.4, cfg.NarrativeThreshold)
	assert.Equal(t, 5*time.Second, cfg.NarrativeTimeout)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, "custom-scored", cfg.KafkaTopic)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeUpstreamTimeout(t *testing.T) {
	t.Setenv("UPSTREAM_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UPSTREAM_TIMEOUT")
}

func TestLoad_ThresholdOutOfRange(t *testing.T) {
	t.Setenv("NARRATIVE_THRESHOLD", "1.3")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NARRATIVE_THRESHOLD")
}

func TestLoad_ThresholdNotANumber(t *testing.T) {
	t.Setenv("NARRATIVE_THRESHOLD", "half")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NARRATIVE_THRESHOLD")
}

func TestLoad_InvalidCacheSize(t *testing.T) {
	t.Setenv("GBIF_CACHE_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GBIF_CACHE_SIZE")
}

func TestLoad_InvalidRateRPS(t *testing.T) {
	t.Setenv("GBIF_RATE_RPS", "-2")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GBIF_RATE_RPS")
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_KafkaBrokersImplyEnabled(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "localhost:9092")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.KafkaEnabled)
}

func TestLoad_KafkaExplicitlyDisabled(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "localhost:9092")
	t.Setenv("KAFKA_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoad_EmptyCORSOrigins(t *testing.T) {
	t.Setenv("CORS_ORIGINS", " , ")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CORS_ORIGINS")
}
