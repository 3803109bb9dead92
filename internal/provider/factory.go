package provider

import (
	"context"
	"fmt"
	"time"

	"trustbench/internal/config"
	"trustbench/pkg/models"
)

// Build constructs the primary and optional secondary providers named
// by a Profile, wrapping both in retry/concurrency middleware bound by
// process config, and returns both the plain Provider view (for agents
// that only complete prompts) and the underlying FallbackRouter (for
// task_fidelity, which needs MaybeEscalate directly). Each name is
// "openai" or "anthropic"; an empty secondaryName means no secondary,
// while an empty or unknown primaryName is an error.
func Build(cfg *config.Config, primaryName, secondaryName, model string) (Provider, *FallbackRouter, error) {
	if cfg.FakeProvider {
		fake := NewRetryingProvider(NewFakeProvider(), cfg.MaxProviderConcurrency, cfg.ProviderRetries, backoffDuration(cfg))
		router := &FallbackRouter{Primary: fake, Threshold: cfg.FallbackThreshold}
		return &routedProvider{router: router}, router, nil
	}

	primary, err := newNamed(primaryName, cfg.ProviderAPIKey, model)
	if err != nil {
		return nil, nil, err
	}

	router := &FallbackRouter{
		Primary:   NewRetryingProvider(primary, cfg.MaxProviderConcurrency, cfg.ProviderRetries, backoffDuration(cfg)),
		Threshold: cfg.FallbackThreshold,
	}

	if secondaryName != "" {
		secondary, err := newNamed(secondaryName, cfg.FallbackProviderAPIKey, model)
		if err != nil {
			return nil, nil, err
		}
		router.Secondary = NewRetryingProvider(secondary, cfg.MaxProviderConcurrency, cfg.ProviderRetries, backoffDuration(cfg))
	}

	return &routedProvider{router: router}, router, nil
}

func newNamed(name, apiKey, model string) (Provider, error) {
	switch name {
	case "openai":
		if apiKey == "" {
			return nil, &Error{Kind: ErrConfig, Provider: "openai"}
		}
		return NewOpenAIProvider(apiKey, model), nil
	case "anthropic":
		if apiKey == "" {
			return nil, &Error{Kind: ErrConfig, Provider: "anthropic"}
		}
		return NewAnthropicProvider(apiKey, model), nil
	default:
		return nil, fmt.Errorf("provider: unknown provider name %q", name)
	}
}

func backoffDuration(cfg *config.Config) time.Duration {
	return time.Duration(cfg.ProviderRetryBackoffMS) * time.Millisecond
}

// routedProvider adapts a FallbackRouter to the full Provider interface
// so callers that only hold a Provider still get fallback behavior.
type routedProvider struct {
	router *FallbackRouter
}

func (r *routedProvider) Name() string { return r.router.Primary.Name() }

func (r *routedProvider) Completion(ctx context.Context, prompt string) (models.ProviderResult, error) {
	return r.router.Completion(ctx, prompt)
}

func (r *routedProvider) JSONCompletion(ctx context.Context, prompt string) (models.ProviderResult, error) {
	return r.router.JSONCompletion(ctx, prompt)
}
