package provider

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"specter/internal/config"
	"specter/internal/logging"
)

// envChain is the detection order when no provider is configured.
// Mirrors the config-then-environment resolution: an explicit
// ai.provider always wins; otherwise the first key present decides.
var envChain = []struct {
	envVar   string
	provider string
}{
	{"ANTHROPIC_API_KEY", "anthropic"},
	{"OPENAI_API_KEY", "openai"},
	{"GROQ_API_KEY", "groq"},
	{"OPENROUTER_API_KEY", "openrouter"},
}

// New resolves the active backend from config and environment.
func New(cfg config.AIConfig) (Backend, error) {
	name := cfg.Provider
	apiKey := cfg.APIKey

	if name == "" {
		for _, p := range envChain {
			if key := os.Getenv(p.envVar); key != "" {
				name = p.provider
				if apiKey == "" {
					apiKey = key
				}
				break
			}
		}
	}
	if name == "" {
		name = detectLocal(context.Background())
	}
	if name == "" {
		return nil, ErrNoAPIKey
	}

	if apiKey == "" {
		apiKey = keyFromEnv(name)
	}

	logging.Provider("selected backend %s (model=%q, base_url=%q)", name, cfg.Model, cfg.BaseURL)

	switch name {
	case "anthropic":
		if apiKey == "" {
			return nil, fmt.Errorf("anthropic: %w", ErrNoAPIKey)
		}
		ac := DefaultAnthropicConfig(apiKey)
		if cfg.Model != "" {
			ac.Model = cfg.Model
		}
		if cfg.BaseURL != "" {
			ac.BaseURL = cfg.BaseURL
		}
		if cfg.Timeout > 0 {
			ac.Timeout = cfg.Timeout
		}
		return NewAnthropicBackendWithConfig(ac), nil

	case "ollama":
		return NewOllamaBackend(cfg.BaseURL, cfg.Model, cfg.Timeout), nil

	case "openai", "groq", "openrouter", "lmstudio", "custom":
		return NewOpenAIBackend(name, apiKey, cfg.BaseURL, cfg.Model, cfg.Timeout)

	default:
		return nil, fmt.Errorf("unknown provider: %s (valid: anthropic, openai, groq, openrouter, ollama, lmstudio, custom)", name)
	}
}

type localProbe struct {
	provider  string
	available func(ctx context.Context) bool
}

// localProbes is the keyless fallback order: a developer running a
// local model server needs no configuration at all.
var localProbes = []localProbe{
	{"ollama", func(ctx context.Context) bool {
		return NewOllamaBackend("", "", 0).Available(ctx)
	}},
	{"lmstudio", func(ctx context.Context) bool {
		return probeURL(ctx, compatibleProviders["lmstudio"].baseURL+"/models")
	}},
}

// detectLocal returns the first local server that answers, or "".
func detectLocal(ctx context.Context) string {
	for _, p := range localProbes {
		if p.available(ctx) {
			logging.Provider("autodetected local server: %s", p.provider)
			return p.provider
		}
	}
	return ""
}

func probeURL(ctx context.Context, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func keyFromEnv(provider string) string {
	for _, p := range envChain {
		if p.provider == provider {
			return os.Getenv(p.envVar)
		}
	}
	return ""
}
