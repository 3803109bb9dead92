// Package provider implements the LLM completion layer: a uniform
// Provider interface, a bounded-concurrency/retry wrapper grounded on
// the original project's Groq client, a deterministic fake for tests,
// and concrete OpenAI/Anthropic implementations.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"trustbench/pkg/models"
)

// Provider is the uniform completion interface every backend satisfies.
// Agents never talk to a concrete SDK directly.
type Provider interface {
	// Name identifies the backend for logging and ProviderResult.Provider.
	Name() string
	// Completion returns free-form text for prompt.
	Completion(ctx context.Context, prompt string) (models.ProviderResult, error)
	// JSONCompletion returns text expected to parse as JSON. The
	// concrete backends extract the first balanced {...} object
	// (ExtractJSON) before returning it; callers still unmarshal the
	// text into their own types.
	JSONCompletion(ctx context.Context, prompt string) (models.ProviderResult, error)
}

// Sentinel error kinds. Concrete providers wrap one of these so callers
// can classify failures with errors.Is without caring which SDK raised
// them.
var (
	ErrUnauthorized     = errors.New("provider: unauthorized")
	ErrRateLimited      = errors.New("provider: rate limited")
	ErrTimeout          = errors.New("provider: timeout")
	ErrModelUnavailable = errors.New("provider: model unavailable")
	ErrParse            = errors.New("provider: could not parse response")
	ErrConfig           = errors.New("provider: misconfigured")
)

// Error wraps a sentinel kind with the originating backend and cause,
// the way internal/workflows/runtime's StepExecutor errors carry both a
// named sentinel and a wrapped cause.
type Error struct {
	Kind     error
	Provider string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Kind.Error() + " (" + e.Provider + "): " + e.Cause.Error()
	}
	return e.Kind.Error() + " (" + e.Provider + ")"
}

func (e *Error) Unwrap() error { return e.Kind }

// Retriable reports whether a provider error is worth retrying: rate
// limits and timeouts are, auth/config/model errors are not.
func Retriable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTimeout)
}

// FallbackRouter wraps a primary and an optional secondary Provider,
// escalating to the secondary when the primary's result quality falls
// below threshold or the primary call fails outright — the same
// two-tier structure the original task_fidelity agent implements inline
// against Groq/OpenAI, generalized here so every agent can reuse it.
type FallbackRouter struct {
	Primary   Provider
	Secondary Provider
	// Threshold is compared against a caller-supplied quality score
	// (e.g. a faithfulness score) to decide whether to escalate, even
	// when the primary call itself succeeded.
	Threshold float64
}

// Completion tries the primary; on error it falls back to Secondary if
// configured.
func (r *FallbackRouter) Completion(ctx context.Context, prompt string) (models.ProviderResult, error) {
	res, err := r.Primary.Completion(ctx, prompt)
	if err == nil {
		return res, nil
	}
	if r.Secondary == nil {
		return res, err
	}
	res, err = r.Secondary.Completion(ctx, prompt)
	res.UsedFallback = true
	return res, err
}

// JSONCompletion tries the primary's JSONCompletion; on error it falls
// back to Secondary if configured, mirroring Completion.
func (r *FallbackRouter) JSONCompletion(ctx context.Context, prompt string) (models.ProviderResult, error) {
	res, err := r.Primary.JSONCompletion(ctx, prompt)
	if err == nil {
		return res, nil
	}
	if r.Secondary == nil {
		return res, err
	}
	res, err = r.Secondary.JSONCompletion(ctx, prompt)
	res.UsedFallback = true
	return res, err
}

// MaybeEscalate re-runs the completion against Secondary when score is
// below r.Threshold, mirroring task_fidelity.py's run(): primary
// generates, a quality score is computed, and only if that score is
// weak does a second call to the fallback provider happen.
func (r *FallbackRouter) MaybeEscalate(ctx context.Context, prompt string, score float64) (models.ProviderResult, bool, error) {
	if r.Secondary == nil || score >= r.Threshold {
		return models.ProviderResult{}, false, nil
	}
	res, err := r.Secondary.Completion(ctx, prompt)
	res.UsedFallback = true
	return res, true, err
}

// maxJSONRetries bounds how many times completeJSON re-asks a backend
// for well-formed JSON before giving up, per spec.md §4.1's
// json_completion contract.
const maxJSONRetries = 2

// ExtractJSON returns the first balanced {...} substring in text. Most
// chat models wrap JSON in prose or code fences even when asked not to,
// so callers extract rather than requiring the whole response to parse.
func ExtractJSON(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", &Error{Kind: ErrParse, Cause: errors.New("no '{' found in response")}
	}
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", &Error{Kind: ErrParse, Cause: errors.New("unbalanced '{' in response")}
}

// completeJSON drives a plain Completion func through the
// extract-first-brace-then-parse contract, retrying with a sharper
// instruction appended on failure up to maxJSONRetries times. Shared by
// every concrete backend so each one only supplies its own Completion.
func completeJSON(ctx context.Context, name string, complete func(context.Context, string) (models.ProviderResult, error), prompt string) (models.ProviderResult, error) {
	var lastErr error
	for attempt := 0; attempt <= maxJSONRetries; attempt++ {
		res, err := complete(ctx, prompt)
		if err != nil {
			return models.ProviderResult{}, err
		}
		raw, extractErr := ExtractJSON(res.Text)
		if extractErr == nil && json.Valid([]byte(raw)) {
			res.Text = raw
			return res, nil
		}
		lastErr = extractErr
		prompt = prompt + "\n\nRespond with a single valid JSON object and nothing else."
	}
	return models.ProviderResult{}, &Error{Kind: ErrParse, Provider: name, Cause: lastErr}
}

// clampLatency guards against negative durations from clock skew in
// tests.
func clampLatency(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
