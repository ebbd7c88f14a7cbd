// Package provider connects the loop to an LLM backend. Concrete
// backends implement the Backend capability interface; Gateway wraps
// the active one with rate limiting, retry, and response cleanup.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	openai "github.com/sashabaranov/go-openai"
)

// Backend is the capability interface every provider implements.
type Backend interface {
	// Complete sends a system + user prompt pair and returns the raw
	// model output.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// ListModels returns the model identifiers the backend offers.
	ListModels(ctx context.Context) ([]string, error)

	// Name identifies the backend in logs and CLI output.
	Name() string
}

// ErrProviderUnavailable is returned by the gateway when every retry
// against the backend has been exhausted.
var ErrProviderUnavailable = errors.New("provider unavailable")

// ErrNoAPIKey is returned by the factory when no provider can be
// resolved from config or environment.
var ErrNoAPIKey = errors.New("no provider configured: set ai.provider in specter.yaml or one of ANTHROPIC_API_KEY, OPENAI_API_KEY, GROQ_API_KEY, OPENROUTER_API_KEY")

// errTransient marks backend errors worth retrying. Hand-rolled
// clients wrap 429/5xx and connection failures with it.
var errTransient = errors.New("transient provider error")

func transientf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, errTransient)...)
}

// isTransient reports whether an error is worth retrying: explicit
// transient markers, openai API errors with 429/5xx status, network
// timeouts and refused connections.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errTransient) {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	// Transport-level failures surface as *url.Error strings.
	msg := err.Error()
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "EOF")
}
