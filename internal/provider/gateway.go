package provider

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"specter/internal/config"
	"specter/internal/logging"
	"specter/internal/prompt"
)

// Gateway wraps the active backend with a client-side token bucket and
// bounded retry. It is the only path the loop uses to reach a model;
// the limiter is shared by all workers, so bursts of concurrent
// sessions queue here rather than trip provider rate limits.
type Gateway struct {
	backend    Backend
	limiter    *rate.Limiter
	maxRetries int
	retryBase  time.Duration
}

// NewGateway builds a gateway over backend using the ai config section.
func NewGateway(backend Backend, cfg config.AIConfig) *Gateway {
	rpm := cfg.RateLimitRPM
	if rpm < 1 {
		rpm = 1
	}
	retryBase := cfg.RetryBase
	if retryBase <= 0 {
		retryBase = time.Second
	}
	return &Gateway{
		backend:    backend,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		maxRetries: cfg.MaxRetries,
		retryBase:  retryBase,
	}
}

// Name returns the wrapped backend's name.
func (g *Gateway) Name() string {
	return g.backend.Name()
}

// ListModels passes through to the backend, rate limited.
func (g *Gateway) ListModels(ctx context.Context) ([]string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return g.backend.ListModels(ctx)
}

// Complete sends one prompt pair through the limiter with retry.
// Transient faults (429, 5xx, connection failures, timeouts) back off
// exponentially with jitter; anything else fails immediately. When the
// retry budget runs out the caller gets ErrProviderUnavailable.
func (g *Gateway) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := g.retryBase << uint(attempt-1)
			backoff += time.Duration(rand.Int63n(int64(backoff)/2 + 1))
			logging.Provider("transient fault from %s, retry %d/%d in %v: %v",
				g.backend.Name(), attempt, g.maxRetries, backoff, lastErr)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		if err := g.limiter.Wait(ctx); err != nil {
			return "", err
		}

		out, err := g.backend.Complete(ctx, systemPrompt, userPrompt)
		if err == nil {
			return out, nil
		}
		if !isTransient(err) {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, lastErr)
}

// Generate produces a fresh test suite for the request's unit.
func (g *Gateway) Generate(ctx context.Context, req prompt.GenerateRequest) (string, error) {
	system, user := prompt.Generation(req)
	out, err := g.Complete(ctx, system, user)
	if err != nil {
		return "", err
	}
	return prompt.CleanResponse(out), nil
}

// Heal produces a repaired test suite from failure evidence.
func (g *Gateway) Heal(ctx context.Context, req prompt.HealRequest) (string, error) {
	system, user := prompt.Healing(req)
	out, err := g.Complete(ctx, system, user)
	if err != nil {
		return "", err
	}
	return prompt.CleanResponse(out), nil
}
