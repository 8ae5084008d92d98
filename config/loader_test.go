package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "openai", cfg.Provider.Kind)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "agentgraph.db", cfg.Database.Path)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "original", cfg.Flow.InputMode)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
  format: json
provider:
  kind: ollama
  base_url: http://localhost:11434
  model: llama3.1
  timeout: 45s
redis:
  addr: redis:6379
  ttl: 1h
flow:
  input_mode: chained
  step_timeout: 30s
`), 0o644))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "ollama", cfg.Provider.Kind)
	assert.Equal(t, "llama3.1", cfg.Provider.Model)
	assert.Equal(t, 45*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Redis.TTL)
	assert.Equal(t, "chained", cfg.Flow.InputMode)
	assert.Equal(t, 30*time.Second, cfg.Flow.StepTimeout)

	// Untouched sections keep defaults.
	assert.Equal(t, "agentgraph.db", cfg.Database.Path)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AGENTGRAPH_LOG_LEVEL", "warn")
	t.Setenv("AGENTGRAPH_PROVIDER_API_KEY", "sk-env")
	t.Setenv("AGENTGRAPH_PROVIDER_TIMEOUT", "90s")
	t.Setenv("AGENTGRAPH_REDIS_DB", "3")
	t.Setenv("AGENTGRAPH_TELEMETRY_ENABLED", "true")
	t.Setenv("AGENTGRAPH_TELEMETRY_SAMPLE_RATE", "0.25")
	t.Setenv("AGENTGRAPH_LOG_OUTPUT_PATHS", "stdout, /var/log/agentgraph.log")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "sk-env", cfg.Provider.APIKey)
	assert.Equal(t, 90*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 0.25, cfg.Telemetry.SampleRate)
	assert.Equal(t, []string{"stdout", "/var/log/agentgraph.log"}, cfg.Log.OutputPaths)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))
	t.Setenv("AGENTGRAPH_LOG_LEVEL", "error")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoad_CustomPrefix(t *testing.T) {
	t.Setenv("MYAPP_LOG_LEVEL", "debug")

	cfg, err := NewLoader().WithEnvPrefix("MYAPP").Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_ValidatorFailure(t *testing.T) {
	_, err := NewLoader().
		WithValidator(func(c *Config) error {
			if c.Provider.APIKey == "" {
				return errors.New("api key required")
			}
			return nil
		}).
		Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key required")
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log: [not a mapping"), 0o644))

	_, err := NewLoader().WithConfigPath(path).Load()
	require.Error(t, err)
}

func TestLoad_BadEnvValue(t *testing.T) {
	t.Setenv("AGENTGRAPH_REDIS_DB", "not-a-number")

	_, err := NewLoader().Load()
	require.Error(t, err)
}

func TestBuildLogger(t *testing.T) {
	logger, err := BuildLogger(LogConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Sync()

	_, err = BuildLogger(LogConfig{Level: "nope"})
	require.Error(t, err)
}

func TestProviderConfig_ClientConfig(t *testing.T) {
	pc := ProviderConfig{
		Kind:              "openai",
		BaseURL:           "https://example.com/v1",
		APIKey:            "sk",
		Model:             "gpt-4o",
		Timeout:           time.Second,
		RequestsPerSecond: 2,
	}
	cc := pc.ClientConfig()
	assert.Equal(t, pc.BaseURL, cc.BaseURL)
	assert.Equal(t, pc.Model, cc.Model)
	assert.Equal(t, float64(2), cc.RequestsPerSecond)
}
