// Package agents implements the four evaluator agents — task_fidelity,
// system_perf, security_eval, ethics_refusal — each grounded on its
// Python counterpart under trustbench_core/agents/.
package agents

import (
	"context"
	"time"

	"trustbench/pkg/models"
)

// Agent is the per-pillar evaluator contract the orchestrator drives.
type Agent interface {
	// Pillar names the agent for logging, AgentResult.Pillar, and gate
	// lookups ("task_fidelity", "system_perf", "security_eval",
	// "ethics_refusal").
	Pillar() string
	// Run executes the full pillar evaluation and returns its result.
	// Run never panics on a tool or provider failure: it records a
	// Failure and a degraded score instead, except ethics_refusal,
	// which per spec.md §4.4 propagates provider errors unrecoverably.
	Run(ctx context.Context, profile *models.Profile, records []models.DatasetRecord) (models.AgentResult, error)
}

// newResult starts an AgentResult with StartedAt set to now.
func newResult(pillar string) models.AgentResult {
	return models.AgentResult{
		Pillar:    pillar,
		Metrics:   map[string]float64{},
		StartedAt: time.Now(),
	}
}

func finish(res *models.AgentResult) {
	res.CompletedAt = time.Now()
}

// sampleRecords takes the first n records, the same fixed-prefix
// sampling the original agents use (no randomness, so fake-provider
// runs stay fully deterministic).
func sampleRecords(records []models.DatasetRecord, n int) []models.DatasetRecord {
	if n <= 0 || n >= len(records) {
		return records
	}
	return records[:n]
}
