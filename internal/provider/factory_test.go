package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"specter/internal/config"
)

func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, p := range envChain {
		t.Setenv(p.envVar, "")
	}
	stubLocalProbes(t)
}

// stubLocalProbes replaces the autodetect probes so tests never touch
// real local ports. Listed providers report available.
func stubLocalProbes(t *testing.T, detected ...string) {
	t.Helper()
	saved := localProbes
	t.Cleanup(func() { localProbes = saved })

	stubbed := make([]localProbe, len(saved))
	for i, p := range saved {
		provider := p.provider
		up := false
		for _, d := range detected {
			if d == provider {
				up = true
			}
		}
		stubbed[i] = localProbe{provider: provider, available: func(context.Context) bool { return up }}
	}
	localProbes = stubbed
}

func TestFactoryExplicitProviderWins(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-env")

	b, err := New(config.AIConfig{Provider: "ollama"})
	require.NoError(t, err)
	assert.Equal(t, "ollama", b.Name())
}

func TestFactoryEnvChainOrder(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("GROQ_API_KEY", "sk-groq")

	b, err := New(config.AIConfig{})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", b.Name())
}

func TestFactoryFallsThroughToLaterKey(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("GROQ_API_KEY", "sk-groq")

	b, err := New(config.AIConfig{})
	require.NoError(t, err)
	assert.Equal(t, "groq", b.Name())
}

func TestFactoryNoProviderResolvable(t *testing.T) {
	clearKeyEnv(t)

	_, err := New(config.AIConfig{})
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestFactoryAutodetectsOllama(t *testing.T) {
	clearKeyEnv(t)
	stubLocalProbes(t, "ollama", "lmstudio")

	b, err := New(config.AIConfig{})
	require.NoError(t, err)
	assert.Equal(t, "ollama", b.Name())
}

func TestFactoryAutodetectFallsBackToLMStudio(t *testing.T) {
	clearKeyEnv(t)
	stubLocalProbes(t, "lmstudio")

	b, err := New(config.AIConfig{})
	require.NoError(t, err)
	assert.Equal(t, "lmstudio", b.Name())
}

func TestFactoryEnvKeyBeatsAutodetect(t *testing.T) {
	clearKeyEnv(t)
	stubLocalProbes(t, "ollama")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	b, err := New(config.AIConfig{})
	require.NoError(t, err)
	assert.Equal(t, "openai", b.Name())
}

func TestOpenAIBackendAppliesTimeout(t *testing.T) {
	b, err := NewOpenAIBackend("groq", "sk-groq", "", "", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "groq", b.Name())
}

func TestFactoryUnknownProvider(t *testing.T) {
	clearKeyEnv(t)

	_, err := New(config.AIConfig{Provider: "skynet"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestFactoryAnthropicNeedsKey(t *testing.T) {
	clearKeyEnv(t)

	_, err := New(config.AIConfig{Provider: "anthropic"})
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestFactoryLocalServersNeedNoKey(t *testing.T) {
	clearKeyEnv(t)

	b, err := New(config.AIConfig{Provider: "lmstudio"})
	require.NoError(t, err)
	assert.Equal(t, "lmstudio", b.Name())
}
