package provider

import (
	"context"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"trustbench/pkg/models"
)

// OpenAIProvider is a concrete Provider backed by the official OpenAI
// Go SDK. It is typically wrapped in a RetryingProvider before use.
type OpenAIProvider struct {
	client openai.Client
	model  string
}

// NewOpenAIProvider builds a provider bound to apiKey/model.
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	return &OpenAIProvider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Completion(ctx context.Context, prompt string) (models.ProviderResult, error) {
	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return models.ProviderResult{}, classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return models.ProviderResult{}, &Error{Kind: ErrParse, Provider: p.Name()}
	}
	return models.ProviderResult{
		Text:         resp.Choices[0].Message.Content,
		Provider:     p.Name(),
		Model:        p.model,
		Latency:      clampLatency(time.Since(start)),
		PromptTokens: int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}, nil
}

func (p *OpenAIProvider) JSONCompletion(ctx context.Context, prompt string) (models.ProviderResult, error) {
	return completeJSON(ctx, p.Name(), p.Completion, prompt)
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if ok := asOpenAIError(err, &apiErr); ok {
		switch apiErr.StatusCode {
		case 401, 403:
			return &Error{Kind: ErrUnauthorized, Provider: "openai", Cause: err}
		case 429:
			return &Error{Kind: ErrRateLimited, Provider: "openai", Cause: err}
		case 408, 504:
			return &Error{Kind: ErrTimeout, Provider: "openai", Cause: err}
		case 404:
			return &Error{Kind: ErrModelUnavailable, Provider: "openai", Cause: err}
		}
	}
	return &Error{Kind: ErrTimeout, Provider: "openai", Cause: err}
}

func asOpenAIError(err error, target **openai.Error) bool {
	if apiErr, ok := err.(*openai.Error); ok {
		*target = apiErr
		return true
	}
	return false
}
