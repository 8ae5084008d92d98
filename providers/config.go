// Package providers implements concrete llm.Provider clients. They are thin
// collaborators of the engine: the flow core only depends on the llm
// contract, never on a concrete client.
package providers

import "time"

// Config holds the common provider client settings.
type Config struct {
	// BaseURL of the API endpoint, without trailing slash.
	BaseURL string `yaml:"base_url"`
	// APIKey for bearer authentication; empty for local backends.
	APIKey string `yaml:"api_key"`
	// Model is the default model when a request does not set one.
	Model string `yaml:"model"`
	// Timeout bounds one HTTP round trip.
	Timeout time.Duration `yaml:"timeout"`
	// RequestsPerSecond caps the client-side request rate; 0 disables the
	// limiter.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// chooseModel selects the model by priority: request model, then config
// model, then the provider default.
func chooseModel(requested, configured, fallback string) string {
	if requested != "" {
		return requested
	}
	if configured != "" {
		return configured
	}
	return fallback
}
