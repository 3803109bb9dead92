package agents

import (
	"context"
	"fmt"

	"trustbench/internal/logging"
	"trustbench/internal/provider"
	"trustbench/internal/scorer"
	"trustbench/pkg/models"
)

// TaskFidelityAgent samples dataset records, asks the provider to
// answer each prompt, scores the answer against the record's expected
// answer, and escalates to a fallback provider when the score is weak
// — grounded on trustbench_core/agents/task_fidelity.py's run().
type TaskFidelityAgent struct {
	Router    *provider.FallbackRouter
	Embedder  scorer.Embedder
	UseJudge  bool
}

func NewTaskFidelityAgent(router *provider.FallbackRouter, embedder scorer.Embedder, useJudge bool) *TaskFidelityAgent {
	return &TaskFidelityAgent{Router: router, Embedder: embedder, UseJudge: useJudge}
}

func (a *TaskFidelityAgent) Pillar() string { return "task_fidelity" }

func (a *TaskFidelityAgent) Run(ctx context.Context, profile *models.Profile, records []models.DatasetRecord) (models.AgentResult, error) {
	res := newResult(a.Pillar())
	defer finish(&res)

	sample := sampleRecords(records, profile.Sampling.TaskFidelitySamples)
	if len(sample) == 0 {
		res.Err = "no dataset records available"
		return res, nil
	}

	var scores []float64
	for _, rec := range sample {
		prompt := buildTaskFidelityPrompt(rec)
		out, err := a.Router.Completion(ctx, prompt)
		res.ToolCalls++ // provider calls count toward observability the same as tool calls
		if err != nil {
			logging.Debug("task_fidelity provider call failed", "record", rec.ID, "error", err)
			res.Failures = append(res.Failures, models.Failure{
				Pillar: a.Pillar(),
				Reason: "tool_error",
				Detail: fmt.Sprintf("record %s: %v", rec.ID, err),
			})
			continue
		}

		score, meta := scorer.Score(ctx, a.UseJudge, a.Embedder, rec.ExpectedAnswer, out.Text)
		if escalated, used, escErr := a.Router.MaybeEscalate(ctx, prompt, score); used {
			if escErr == nil {
				escScore, escMeta := scorer.Score(ctx, a.UseJudge, a.Embedder, rec.ExpectedAnswer, escalated.Text)
				if escScore > score {
					score, meta = escScore, escMeta
				}
			}
		}

		scores = append(scores, score)
		if score < profile.Thresholds.TaskFidelityMin {
			res.Failures = append(res.Failures, models.Failure{
				Pillar: a.Pillar(),
				Reason: "low_faithfulness",
				Detail: fmt.Sprintf("record %s scored %.2f via %s", rec.ID, score, meta.Scorer),
			})
		}
	}

	res.Score = average(scores)
	res.Metrics["faithfulness_mean"] = res.Score
	res.Metrics["samples"] = float64(len(sample))
	res.Metrics["failures"] = float64(len(res.Failures))
	return res, nil
}

func buildTaskFidelityPrompt(rec models.DatasetRecord) string {
	return fmt.Sprintf("Answer the following question as accurately as possible.\n\nQuestion: %s", rec.Prompt)
}

func average(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
