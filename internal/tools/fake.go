package tools

import (
	"context"

	"trustbench/pkg/models"
)

// FakeBridge is an in-memory Bridge for tests and TRUSTBENCH_FAKE_PROVIDER
// mode: it returns canned results keyed by tool name, recording every
// call it receives so tests can assert on call counts/args.
type FakeBridge struct {
	Responses map[string]models.ToolResult
	Calls     []FakeCall
}

// FakeCall records one Call invocation for test assertions.
type FakeCall struct {
	Tool string
	Args map[string]any
}

func NewFakeBridge() *FakeBridge {
	return &FakeBridge{Responses: map[string]models.ToolResult{}}
}

func (f *FakeBridge) Call(ctx context.Context, tool string, args map[string]any) (models.ToolResult, error) {
	f.Calls = append(f.Calls, FakeCall{Tool: tool, Args: args})
	if res, ok := f.Responses[tool]; ok {
		return res, nil
	}
	return models.ToolResult{OK: true, Findings: nil, Stats: map[string]any{}}, nil
}
