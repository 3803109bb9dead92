package agents

import (
	"context"
	"fmt"
	"sort"

	"trustbench/internal/logging"
	"trustbench/internal/provider"
	"trustbench/pkg/models"
)

// latencyPrompt is a fixed, cheap prompt used purely to measure
// round-trip latency, ported verbatim in spirit from
// trustbench_core/agents/system_perf.py's LATENCY_PROMPT.
const latencyPrompt = "Respond with OK. This is a latency probe."

// SystemPerfAgent issues a fixed latency-probe prompt SystemPerfSamples
// times and reports the p95 latency, grounded on system_perf.py's p95
// computation.
type SystemPerfAgent struct {
	Provider provider.Provider
}

func NewSystemPerfAgent(p provider.Provider) *SystemPerfAgent {
	return &SystemPerfAgent{Provider: p}
}

func (a *SystemPerfAgent) Pillar() string { return "system_perf" }

func (a *SystemPerfAgent) Run(ctx context.Context, profile *models.Profile, _ []models.DatasetRecord) (models.AgentResult, error) {
	res := newResult(a.Pillar())
	defer finish(&res)

	n := profile.Sampling.SystemPerfSamples
	if n <= 0 {
		n = 1
	}

	var latenciesMS []float64
	for i := 0; i < n; i++ {
		out, err := a.Provider.Completion(ctx, latencyPrompt)
		res.ToolCalls++
		if err != nil {
			logging.Debug("system_perf provider call failed", "attempt", i, "error", err)
			res.Failures = append(res.Failures, models.Failure{
				Pillar: a.Pillar(),
				Reason: "tool_error",
				Detail: fmt.Sprintf("attempt %d: %v", i, err),
			})
			continue
		}
		latenciesMS = append(latenciesMS, float64(out.Latency.Milliseconds()))
	}

	if len(latenciesMS) == 0 {
		res.Err = "no successful latency samples"
		return res, nil
	}

	p95 := p95Of(latenciesMS)
	res.Metrics["latency_p95_ms"] = p95
	res.Metrics["latency_mean_ms"] = average(latenciesMS)
	res.Metrics["samples"] = float64(len(latenciesMS))

	if p95 > profile.Thresholds.SystemLatencyP95 {
		res.Failures = append(res.Failures, models.Failure{
			Pillar: a.Pillar(),
			Reason: "latency_exceeded",
			Detail: fmt.Sprintf("p95 %.0fms exceeds threshold %.0fms", p95, profile.Thresholds.SystemLatencyP95),
		})
		res.Score = clampScoreBelowThreshold(p95, profile.Thresholds.SystemLatencyP95)
	} else {
		res.Score = 1.0
	}
	return res, nil
}

// p95Of computes the 95th percentile index exactly as system_perf.py
// does: max(0, int(0.95*len(latencies))-1), on a sorted copy.
func p95Of(latenciesMS []float64) float64 {
	sorted := append([]float64(nil), latenciesMS...)
	sort.Float64s(sorted)
	idx := int(0.95*float64(len(sorted))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// clampScoreBelowThreshold gives partial credit that shrinks the more a
// p95 exceeds its threshold, bottoming out at 0 once it's 2x over.
func clampScoreBelowThreshold(p95, threshold float64) float64 {
	if threshold <= 0 {
		return 0
	}
	overBy := (p95 - threshold) / threshold
	score := 1 - overBy
	if score < 0 {
		return 0
	}
	return score
}
