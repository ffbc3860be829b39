package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "tribunal.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Batch.MaxConcurrentInvestigations)

	assert.Equal(t, "sonar-pro", cfg.Perplexity.Model)
	assert.Equal(t, "https://api.perplexity.ai", cfg.Perplexity.BaseURL)
	assert.Equal(t, 120, cfg.Narrative.TimeoutSecs)
	assert.Equal(t, int64(8192), cfg.Narrative.MaxTokens)

	assert.InDelta(t, 0.5, cfg.Policy.GraphWeight, 0.001)
	assert.InDelta(t, 0.3, cfg.Policy.SemanticWeight, 0.001)
	assert.InDelta(t, 0.2, cfg.Policy.DriftWeight, 0.001)
	assert.InDelta(t, 0.85, cfg.Policy.CriticalThreshold, 0.001)
	assert.InDelta(t, 0.65, cfg.Policy.HighThreshold, 0.001)
	assert.InDelta(t, 0.40, cfg.Policy.MediumThreshold, 0.001)
	assert.InDelta(t, 0.90, cfg.Policy.FloorFraudRing, 0.001)
	assert.InDelta(t, 0.30, cfg.Policy.ReductionPaymentAuth, 0.001)
	assert.InDelta(t, 0.10, cfg.Policy.PenaltyAdverseMedia, 0.001)
	assert.Equal(t, 3, cfg.Policy.MaxRounds)
	assert.InDelta(t, 0.80, cfg.Policy.ConfidenceThreshold, 0.001)

	assert.Equal(t, "testdata/intel.yaml", cfg.Intel.FixturePath)
	assert.Equal(t, 3, cfg.Intel.MaxHops)
	assert.Equal(t, 256, cfg.Intel.ProfileCacheSize)

	assert.Equal(t, 24, cfg.Alerts.VelocityWindowHours)
	assert.Equal(t, 10, cfg.Alerts.VelocityMaxCount)
	assert.InDelta(t, 50000, cfg.Alerts.VelocityMaxAmount, 0.001)
	assert.InDelta(t, 10000, cfg.Alerts.StructuringThreshold, 0.001)
	assert.InDelta(t, 15, cfg.Alerts.StructuringMarginPct, 0.001)
	assert.InDelta(t, 25000, cfg.Alerts.HighValueThreshold, 0.001)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chTempDir(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/tribunal
log:
  level: debug
  format: console
policy:
  max_rounds: 5
  confidence_threshold: 0.9
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/tribunal", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 5, cfg.Policy.MaxRounds)
	assert.InDelta(t, 0.9, cfg.Policy.ConfidenceThreshold, 0.001)
	assert.Equal(t, 9090, cfg.Server.Port)

	// Unset keys keep their defaults.
	assert.InDelta(t, 0.5, cfg.Policy.GraphWeight, 0.001)
}

func TestLoadEnvOverride(t *testing.T) {
	chTempDir(t)
	t.Setenv("TRIBUNAL_STORE_DRIVER", "postgres")
	t.Setenv("TRIBUNAL_ANTHROPIC_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "sk-test", cfg.Anthropic.Key)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "not-a-level", Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}
