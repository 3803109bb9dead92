package provider

import (
	"context"
	"sync"
	"time"

	"trustbench/internal/logging"
	"trustbench/pkg/models"
)

// semaphore is a package-level, not per-instance, bounded concurrency
// gate: the original Groq client used a class-level threading.BoundedSemaphore
// shared across every GroqProvider instance in the process, so that the
// whole process — not each provider object — never exceeds the
// configured concurrency. NewRetryingProvider sizes it once, on its first
// call, from config.
type semaphore chan struct{}

func newSemaphore(n int) semaphore {
	if n < 1 {
		n = 1
	}
	return make(semaphore, n)
}

func (s semaphore) acquire(ctx context.Context) error {
	select {
	case s <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s semaphore) release() { <-s }

// RetryingProvider wraps a Provider with a bounded-concurrency
// semaphore and linear backoff retries, grounded on
// trustbench_core/providers/groq.py's completion()/llm_json(): retry up
// to MaxRetries times, sleeping Backoff*attempt between tries, only for
// retriable errors.
type RetryingProvider struct {
	inner      Provider
	sem        semaphore
	MaxRetries int
	Backoff    time.Duration
}

var (
	globalSemOnce sync.Once
	globalSem     semaphore
)

// NewRetryingProvider builds a RetryingProvider sharing the
// process-wide semaphore sized by maxConcurrency on first call; later
// calls with a different maxConcurrency are ignored, matching the
// original's process-global bound.
func NewRetryingProvider(inner Provider, maxConcurrency, maxRetries int, backoff time.Duration) *RetryingProvider {
	globalSemOnce.Do(func() {
		globalSem = newSemaphore(maxConcurrency)
	})
	return &RetryingProvider{inner: inner, sem: globalSem, MaxRetries: maxRetries, Backoff: backoff}
}

func (r *RetryingProvider) Name() string { return r.inner.Name() }

func (r *RetryingProvider) Completion(ctx context.Context, prompt string) (models.ProviderResult, error) {
	return r.call(ctx, func(ctx context.Context) (models.ProviderResult, error) {
		return r.inner.Completion(ctx, prompt)
	})
}

func (r *RetryingProvider) JSONCompletion(ctx context.Context, prompt string) (models.ProviderResult, error) {
	return r.call(ctx, func(ctx context.Context) (models.ProviderResult, error) {
		return r.inner.JSONCompletion(ctx, prompt)
	})
}

func (r *RetryingProvider) call(ctx context.Context, fn func(context.Context) (models.ProviderResult, error)) (models.ProviderResult, error) {
	if err := r.sem.acquire(ctx); err != nil {
		return models.ProviderResult{}, err
	}
	defer r.sem.release()

	var lastErr error
	var lastRes models.ProviderResult
	for attempt := 0; attempt <= r.MaxRetries; attempt++ {
		res, err := fn(ctx)
		res.Retries = attempt
		if err == nil {
			return res, nil
		}
		lastErr, lastRes = err, res
		if !Retriable(err) {
			return res, err
		}
		logging.Debug("provider retry", "provider", r.inner.Name(), "attempt", attempt, "error", err)
		select {
		case <-time.After(r.Backoff * time.Duration(attempt+1)):
		case <-ctx.Done():
			return res, ctx.Err()
		}
	}
	return lastRes, lastErr
}
