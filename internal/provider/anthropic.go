package provider

import (
	"context"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"trustbench/pkg/models"
)

// AnthropicProvider is a concrete Provider backed by the official
// Anthropic Go SDK. Used as the fallback/secondary provider in
// SPEC_FULL.md's domain-stack wiring.
type AnthropicProvider struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropicProvider builds a provider bound to apiKey/model.
func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	m := anthropic.Model(model)
	if model == "" {
		m = anthropic.ModelClaude3_5HaikuLatest
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  m,
	}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) Completion(ctx context.Context, prompt string) (models.ProviderResult, error) {
	start := time.Now()
	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return models.ProviderResult{}, classifyAnthropicError(err)
	}
	if len(resp.Content) == 0 {
		return models.ProviderResult{}, &Error{Kind: ErrParse, Provider: p.Name()}
	}
	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return models.ProviderResult{
		Text:         text,
		Provider:     p.Name(),
		Model:        string(p.model),
		Latency:      clampLatency(time.Since(start)),
		PromptTokens: int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}, nil
}

func (p *AnthropicProvider) JSONCompletion(ctx context.Context, prompt string) (models.ProviderResult, error) {
	return completeJSON(ctx, p.Name(), p.Completion, prompt)
}

func classifyAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if ok := asAnthropicError(err, &apiErr); ok {
		switch apiErr.StatusCode {
		case 401, 403:
			return &Error{Kind: ErrUnauthorized, Provider: "anthropic", Cause: err}
		case 429:
			return &Error{Kind: ErrRateLimited, Provider: "anthropic", Cause: err}
		case 408, 504:
			return &Error{Kind: ErrTimeout, Provider: "anthropic", Cause: err}
		case 404:
			return &Error{Kind: ErrModelUnavailable, Provider: "anthropic", Cause: err}
		}
	}
	return &Error{Kind: ErrTimeout, Provider: "anthropic", Cause: err}
}

func asAnthropicError(err error, target **anthropic.Error) bool {
	if apiErr, ok := err.(*anthropic.Error); ok {
		*target = apiErr
		return true
	}
	return false
}
