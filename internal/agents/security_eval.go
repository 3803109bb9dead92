package agents

import (
	"context"
	"fmt"

	"trustbench/internal/tools"
	"trustbench/pkg/models"
)

// SecurityEvalAgent probes the target with adversarial prompts through
// the tool bridge's prompt_guard tool and runs static-analysis tools
// (semgrep, secret scanning) against the checked out repository,
// grounded on trustbench_core/agents/security_eval.py. Every call is
// wrapped the way security_eval.py's _call() swallows exceptions into a
// tool_error failure rather than aborting the whole pillar.
type SecurityEvalAgent struct {
	Bridge  tools.Bridge
	Workdir string
}

func NewSecurityEvalAgent(bridge tools.Bridge, workdir string) *SecurityEvalAgent {
	return &SecurityEvalAgent{Bridge: bridge, Workdir: workdir}
}

func (a *SecurityEvalAgent) Pillar() string { return "security_eval" }

// Run reads adversarial prompts from the profile's adversarial_path
// dataset (passed in as records by the orchestrator), calls
// prompt_guard against them, then runs semgrep and secrets_scan against
// Workdir, scoring pass/fail per spec.md §4.4.3.
func (a *SecurityEvalAgent) Run(ctx context.Context, profile *models.Profile, records []models.DatasetRecord) (models.AgentResult, error) {
	res := newResult(a.Pillar())
	defer finish(&res)

	blockRate := a.runPromptGuard(ctx, records, &res)
	semgrepFindings := a.runSemgrep(ctx, &res)
	secretFindings := a.runSecretsScan(ctx, &res)

	res.Metrics["injection_block_rate"] = blockRate
	res.Metrics["semgrep_findings"] = float64(semgrepFindings)
	res.Metrics["secret_findings"] = float64(secretFindings)

	switch {
	case blockRate >= profile.Thresholds.InjectionBlockRate && semgrepFindings == 0 && secretFindings == 0:
		res.Score = 1
	default:
		res.Score = 0
	}
	return res, nil
}

// runPromptGuard posts every adversarial prompt to prompt_guard in one
// call and records each reported bypass as its own failure, mirroring
// the {blocked, total, bypasses} contract of spec.md §4.2.
func (a *SecurityEvalAgent) runPromptGuard(ctx context.Context, records []models.DatasetRecord, res *models.AgentResult) float64 {
	prompts := make([]string, len(records))
	for i, rec := range records {
		prompts[i] = rec.Prompt
	}

	result, err := a.Bridge.Call(ctx, "prompt_guard", map[string]any{"prompts": prompts})
	res.ToolCalls++
	if err != nil {
		res.Failures = append(res.Failures, models.Failure{Pillar: a.Pillar(), Reason: "tool_error", Detail: err.Error()})
		return 0
	}

	blocked := statInt(result.Stats, "blocked")
	total := statInt(result.Stats, "total")
	if total == 0 {
		total = len(prompts)
	}

	for _, bypass := range result.Findings {
		prompt, _ := bypass["prompt"].(string)
		res.Failures = append(res.Failures, models.Failure{
			Pillar: a.Pillar(),
			Reason: "injection_bypass",
			Detail: fmt.Sprintf("prompt %q was not blocked", truncate(prompt, 80)),
		})
	}

	if total == 0 {
		return 1
	}
	return float64(blocked) / float64(total)
}

func (a *SecurityEvalAgent) runSemgrep(ctx context.Context, res *models.AgentResult) int {
	result, err := a.Bridge.Call(ctx, "semgrep_rules", map[string]any{"path": a.Workdir})
	res.ToolCalls++
	if err != nil {
		res.Failures = append(res.Failures, models.Failure{Pillar: a.Pillar(), Reason: "tool_error", Detail: err.Error()})
		return 0
	}
	if len(result.Findings) > 0 {
		res.Failures = append(res.Failures, models.Failure{
			Pillar: a.Pillar(),
			Reason: "semgrep_findings",
			Detail: fmt.Sprintf("%d findings", len(result.Findings)),
		})
	}
	return len(result.Findings)
}

func (a *SecurityEvalAgent) runSecretsScan(ctx context.Context, res *models.AgentResult) int {
	result, err := a.Bridge.Call(ctx, "secrets_scan", map[string]any{"path": a.Workdir})
	res.ToolCalls++
	if err != nil {
		res.Failures = append(res.Failures, models.Failure{Pillar: a.Pillar(), Reason: "tool_error", Detail: err.Error()})
		return 0
	}
	if len(result.Findings) > 0 {
		res.Failures = append(res.Failures, models.Failure{
			Pillar: a.Pillar(),
			Reason: "secret_leak",
			Detail: fmt.Sprintf("%d potential secrets found", len(result.Findings)),
		})
	}
	return len(result.Findings)
}

// statInt reads an int out of a tool result's stats map, tolerating the
// float64 that JSON decoding produces for numeric fields.
func statInt(stats map[string]any, key string) int {
	switch v := stats[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
