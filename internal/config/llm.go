package config

import "time"

// AIConfig describes the LLM backend used for generation and judging.
type AIConfig struct {
	// Provider selects the backend: anthropic, openai, groq, openrouter,
	// ollama, lmstudio, custom. Empty means auto-detect from environment.
	Provider string `yaml:"provider"`

	// APIKey is the provider credential. Prefer env vars; this field
	// exists for custom gateways that need a static token.
	APIKey string `yaml:"api_key"`

	// Model is the model identifier sent to the provider.
	Model string `yaml:"model"`

	// BaseURL overrides the provider endpoint (ollama, lmstudio, custom).
	BaseURL string `yaml:"base_url"`

	// RateLimitRPM is the client-side request budget per minute.
	RateLimitRPM int `yaml:"rate_limit_rpm"`

	// MaxRetries bounds retries on transient provider errors.
	MaxRetries int `yaml:"max_retries"`

	// RetryBase is the initial backoff; doubles per retry with jitter.
	RetryBase time.Duration `yaml:"retry_base"`

	// Timeout bounds a single provider request.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultAIConfig returns provider settings suited to hosted backends.
func DefaultAIConfig() AIConfig {
	return AIConfig{
		Provider:     "",
		Model:        "",
		RateLimitRPM: 30,
		MaxRetries:   3,
		RetryBase:    time.Second,
		Timeout:      90 * time.Second,
	}
}
