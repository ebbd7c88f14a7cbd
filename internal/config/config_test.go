package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 3, cfg.Heal.MaxAttempts)
	assert.Equal(t, 2, cfg.Heal.InfraRetries)
	assert.Equal(t, 4, cfg.Heal.MaxWorkers)
	assert.Equal(t, 30, cfg.AI.RateLimitRPM)
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce)
	assert.Equal(t, 120*time.Second, cfg.Tests.Timeout)
	assert.Contains(t, cfg.Scanner.IgnoreDirs, ".specter")
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Heal.MaxAttempts, cfg.Heal.MaxAttempts)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	yaml := `
ai:
  provider: ollama
  model: qwen2.5-coder
  rate_limit_rpm: 10
heal:
  max_attempts: 5
watch:
  debounce: 500ms
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(yaml), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.AI.Provider)
	assert.Equal(t, "qwen2.5-coder", cfg.AI.Model)
	assert.Equal(t, 10, cfg.AI.RateLimitRPM)
	assert.Equal(t, 5, cfg.Heal.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
	// Untouched sections keep defaults.
	assert.Equal(t, 2, cfg.Heal.InfraRetries)
	assert.Equal(t, "pytest", cfg.Tests.Framework)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	yaml := `
heal:
  max_attempts: 0
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(yaml), 0644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_attempts")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SPECTER_PROVIDER", "groq")
	t.Setenv("SPECTER_MODEL", "llama-3.3-70b-versatile")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "groq", cfg.AI.Provider)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.AI.Model)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.AI.Provider = "anthropic"
	cfg.Heal.MaxAttempts = 7

	require.NoError(t, cfg.Save(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", loaded.AI.Provider)
	assert.Equal(t, 7, loaded.Heal.MaxAttempts)
}
