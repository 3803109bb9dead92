// Package tools implements the outbound tool-bridge client: a thin HTTP
// wrapper that posts {"args": {...}} to {base_url}/tools/{tool_name} and
// normalizes every response into the uniform {ok, findings, stats,
// error} shape, grounded on trustbench_core/tools/mcp_client.py and the
// tools_security.py normalization facade.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"trustbench/internal/logging"
	"trustbench/pkg/models"
)

// Bridge is the interface agents depend on; HTTPBridge and FakeBridge
// both satisfy it.
type Bridge interface {
	Call(ctx context.Context, tool string, args map[string]any) (models.ToolResult, error)
}

// PermittedTools mirrors trust_bench_studio.api.server.PERMITTED_TOOLS:
// the fixed allowlist of tool names this engine will forward to the
// bridge. Anything else is rejected before a network call is made.
var PermittedTools = map[string]bool{
	"prompt_guard":          true,
	"semgrep_rules":         true,
	"secrets_scan":          true,
	"download_and_extract_repo": true,
	"scan_for_secrets":      true,
	"env_content":           true,
}

// ErrToolNotPermitted is returned when a caller asks for a tool name
// outside PermittedTools.
var ErrToolNotPermitted = fmt.Errorf("tools: tool not permitted")

// HTTPBridge is the production Bridge implementation.
type HTTPBridge struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewHTTPBridge builds a bridge with the given base URL/key and a
// bounded request timeout, the way MCPConfig(timeout_s=30.0) does in
// the original client.
func NewHTTPBridge(baseURL, apiKey string, timeout time.Duration) *HTTPBridge {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPBridge{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type bridgeRequest struct {
	Args map[string]any `json:"args"`
}

// Call posts {"args": args} to {BaseURL}/tools/{tool} and decodes the
// response into the uniform ToolResult shape.
func (b *HTTPBridge) Call(ctx context.Context, tool string, args map[string]any) (models.ToolResult, error) {
	if !PermittedTools[tool] {
		return models.ToolResult{}, fmt.Errorf("%w: %s", ErrToolNotPermitted, tool)
	}

	body, err := json.Marshal(bridgeRequest{Args: args})
	if err != nil {
		return models.ToolResult{}, fmt.Errorf("tools: encode request: %w", err)
	}

	url := fmt.Sprintf("%s/tools/%s", b.BaseURL, tool)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return models.ToolResult{}, fmt.Errorf("tools: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.APIKey)
	}

	logging.Debug("tool bridge call", "tool", tool)
	resp, err := b.HTTPClient.Do(req)
	if err != nil {
		return models.ToolResult{}, fmt.Errorf("tools: call %s: %w", tool, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.ToolResult{}, fmt.Errorf("tools: read response for %s: %w", tool, err)
	}
	if resp.StatusCode >= 400 {
		return models.ToolResult{OK: false, Error: string(raw)}, fmt.Errorf("tools: %s returned status %d", tool, resp.StatusCode)
	}

	var result models.ToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return models.ToolResult{}, fmt.Errorf("tools: decode response for %s: %w", tool, err)
	}
	if err := Validate(result); err != nil {
		return models.ToolResult{}, fmt.Errorf("tools: %s: %w", tool, err)
	}
	if !result.OK {
		return result, fmt.Errorf("tools: %s reported failure: %s", tool, result.Error)
	}
	return result, nil
}
