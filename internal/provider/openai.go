package provider

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIBackend implements Backend for the OpenAI-compatible family:
// openai itself plus groq, openrouter, lmstudio, and arbitrary custom
// gateways, distinguished only by base URL and default model.
type OpenAIBackend struct {
	name   string
	model  string
	client *openai.Client
}

// openAICompatible describes one member of the family.
type openAICompatible struct {
	baseURL      string
	defaultModel string
	keyEnv       string
}

var compatibleProviders = map[string]openAICompatible{
	"openai":     {baseURL: "", defaultModel: "gpt-4o-mini", keyEnv: "OPENAI_API_KEY"},
	"groq":       {baseURL: "https://api.groq.com/openai/v1", defaultModel: "llama-3.3-70b-versatile", keyEnv: "GROQ_API_KEY"},
	"openrouter": {baseURL: "https://openrouter.ai/api/v1", defaultModel: "anthropic/claude-3.5-sonnet", keyEnv: "OPENROUTER_API_KEY"},
	"lmstudio":   {baseURL: "http://localhost:1234/v1", defaultModel: "local-model", keyEnv: ""},
	"custom":     {baseURL: "", defaultModel: "", keyEnv: ""},
}

// NewOpenAIBackend creates a backend for the named compatible provider.
// baseURL and model override the provider defaults when non-empty.
func NewOpenAIBackend(name, apiKey, baseURL, model string, timeout time.Duration) (*OpenAIBackend, error) {
	spec, ok := compatibleProviders[name]
	if !ok {
		return nil, fmt.Errorf("unknown openai-compatible provider: %s", name)
	}

	if baseURL == "" {
		baseURL = spec.baseURL
	}
	if model == "" {
		model = spec.defaultModel
	}
	if name == "custom" && baseURL == "" {
		return nil, fmt.Errorf("custom provider requires ai.base_url")
	}
	if apiKey == "" && spec.keyEnv != "" {
		return nil, fmt.Errorf("%s: API key not configured", name)
	}
	if apiKey == "" {
		// Local servers accept any token.
		apiKey = "specter"
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}

	return &OpenAIBackend{
		name:   name,
		model:  model,
		client: openai.NewClientWithConfig(cfg),
	}, nil
}

// Name returns the provider name (openai, groq, openrouter, ...).
func (c *OpenAIBackend) Name() string {
	return c.name
}

// Complete sends a chat completion request.
func (c *OpenAIBackend) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userPrompt,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("%s: completion failed: %w", c.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: no completion returned", c.name)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// ListModels returns the models the endpoint advertises, sorted.
func (c *OpenAIBackend) ListModels(ctx context.Context) ([]string, error) {
	list, err := c.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: list models: %w", c.name, err)
	}
	models := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		models = append(models, m.ID)
	}
	sort.Strings(models)
	return models, nil
}
