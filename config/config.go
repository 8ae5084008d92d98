// Package config loads the process configuration from defaults, an optional
// YAML file, and environment variable overrides, in that order.
package config

import (
	"time"

	"github.com/luoxifan/agentgraph/flow"
	"github.com/luoxifan/agentgraph/persistence"
	"github.com/luoxifan/agentgraph/providers"
)

// Config is the complete process configuration.
type Config struct {
	// Log configures the zap logger.
	Log LogConfig `yaml:"log" env:"LOG"`
	// Provider configures the default LLM backend.
	Provider ProviderConfig `yaml:"provider" env:"PROVIDER"`
	// Redis configures the Redis snapshot store.
	Redis RedisConfig `yaml:"redis" env:"REDIS"`
	// Database configures the SQLite snapshot store.
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`
	// Telemetry configures tracing export.
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
	// Flow configures engine defaults.
	Flow FlowConfig `yaml:"flow" env:"FLOW"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format is json or console.
	Format string `yaml:"format" env:"FORMAT"`
	// OutputPaths are zap sink URLs, e.g. stdout or file paths.
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// EnableCaller annotates entries with the call site.
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
}

// ProviderConfig selects and configures the LLM backend.
type ProviderConfig struct {
	// Kind is openai or ollama.
	Kind string `yaml:"kind" env:"KIND"`
	// BaseURL of the API endpoint.
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// APIKey for bearer authentication.
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// Model is the default model.
	Model string `yaml:"model" env:"MODEL"`
	// Timeout bounds one HTTP round trip.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// RequestsPerSecond caps the client-side request rate.
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"REQUESTS_PER_SECOND"`
}

// ClientConfig converts to the provider client settings.
func (c ProviderConfig) ClientConfig() providers.Config {
	return providers.Config{
		BaseURL:           c.BaseURL,
		APIKey:            c.APIKey,
		Model:             c.Model,
		Timeout:           c.Timeout,
		RequestsPerSecond: c.RequestsPerSecond,
	}
}

// RedisConfig configures the Redis snapshot store.
type RedisConfig struct {
	Addr      string        `yaml:"addr" env:"ADDR"`
	Password  string        `yaml:"password" env:"PASSWORD"`
	DB        int           `yaml:"db" env:"DB"`
	PoolSize  int           `yaml:"pool_size" env:"POOL_SIZE"`
	KeyPrefix string        `yaml:"key_prefix" env:"KEY_PREFIX"`
	TTL       time.Duration `yaml:"ttl" env:"TTL"`
}

// StoreConfig converts to the persistence store settings.
func (c RedisConfig) StoreConfig() persistence.RedisConfig {
	return persistence.RedisConfig{
		Addr:      c.Addr,
		Password:  c.Password,
		DB:        c.DB,
		PoolSize:  c.PoolSize,
		KeyPrefix: c.KeyPrefix,
		TTL:       c.TTL,
	}
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	// Path of the database file; ":memory:" for ephemeral.
	Path string `yaml:"path" env:"PATH"`
}

// TelemetryConfig configures trace export.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// FlowConfig holds engine defaults.
type FlowConfig struct {
	// InputMode is original or chained.
	InputMode string `yaml:"input_mode" env:"INPUT_MODE"`
	// StepTimeout bounds one node execution; 0 disables the bound.
	StepTimeout time.Duration `yaml:"step_timeout" env:"STEP_TIMEOUT"`
}

// EngineOptions converts to flow options: the input threading policy and,
// when set, the per-step timeout.
func (c FlowConfig) EngineOptions() ([]flow.Option, error) {
	mode, err := flow.ParseInputMode(c.InputMode)
	if err != nil {
		return nil, err
	}
	opts := []flow.Option{flow.WithInputMode(mode)}
	if c.StepTimeout > 0 {
		opts = append(opts, flow.WithStepTimeout(c.StepTimeout))
	}
	return opts, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:       "info",
			Format:      "console",
			OutputPaths: []string{"stdout"},
		},
		Provider: ProviderConfig{
			Kind:    "openai",
			Timeout: 30 * time.Second,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Database: DatabaseConfig{
			Path: "agentgraph.db",
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			ServiceName: "agentgraph",
			SampleRate:  1.0,
		},
		Flow: FlowConfig{
			InputMode: "original",
		},
	}
}
