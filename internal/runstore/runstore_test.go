package runstore

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustbench/internal/orchestrator"
	"trustbench/pkg/models"
)

func sampleResult() orchestrator.Result {
	return orchestrator.Result{
		AgentResults: map[string]models.AgentResult{
			"task_fidelity": {Pillar: "task_fidelity", Score: 0.9, Metrics: map[string]float64{"samples": 5}},
			"system_perf":   {Pillar: "system_perf", Score: 1.0, Metrics: map[string]float64{"latency_p95_ms": 200}},
			"security_eval": {Pillar: "security_eval", Score: 1.0},
			"ethics_refusal": {Pillar: "ethics_refusal", Score: 0.95},
		},
		Verdict: models.Verdict{Decision: "pass", Composite: 0.95, Confidence: "high"},
	}
}

func TestStoreWriteCreatesArtifactsAndLatest(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, "/runs")
	profile := &models.Profile{Name: "demo"}

	runID, err := store.Write(context.Background(), profile, sampleResult(), true)
	require.NoError(t, err)
	assert.NotEmpty(t, runID)

	for _, f := range []string{"run.json", "metrics.json", "gate.json", "verdict.json", "report.md", "report.html"} {
		exists, err := afero.Exists(fs, "/runs/"+runID+"/"+f)
		require.NoError(t, err)
		assert.Truef(t, exists, "expected %s to exist", f)
	}

	latest, err := store.LoadLatest()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "pass", latest.Decision)
}

func TestStoreListSortsNewestFirst(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, "/runs")
	profile := &models.Profile{Name: "demo"}

	_, err := store.Write(context.Background(), profile, sampleResult(), true)
	require.NoError(t, err)
	_, err = store.Write(context.Background(), profile, sampleResult(), true)
	require.NoError(t, err)

	runs, err := store.List()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.False(t, runs[0].CreatedAt.Before(runs[1].CreatedAt), "newest run should be listed first")
}

func TestStoreWriteBlocksGateOnAnyPillarFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, "/runs")
	profile := &models.Profile{Name: "demo"}

	result := sampleResult()
	task := result.AgentResults["task_fidelity"]
	task.Failures = []models.Failure{{Pillar: "task_fidelity", Reason: "low_faithfulness"}}
	result.AgentResults["task_fidelity"] = task
	// composite still clears CompositeMin via the other three pillars,
	// so the verdict itself is "pass" even though task_fidelity failed.
	result.Verdict.Decision = "pass"

	runID, err := store.Write(context.Background(), profile, result, true)
	require.NoError(t, err)

	raw, err := afero.ReadFile(fs, "/runs/"+runID+"/gate.json")
	require.NoError(t, err)
	var gate models.GateManifest
	require.NoError(t, json.Unmarshal(raw, &gate))
	assert.True(t, gate.Blocked)
	assert.Equal(t, []string{"task_fidelity"}, gate.Failed)
}

func TestStorePromoteCopiesLatestIntoBaselineSnapshot(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, "/runs")
	profile := &models.Profile{Name: "demo"}

	_, err := store.Write(context.Background(), profile, sampleResult(), true)
	require.NoError(t, err)

	baselineID, err := store.Promote("pre-release snapshot")
	require.NoError(t, err)
	assert.NotEmpty(t, baselineID)

	latestMetrics, err := afero.ReadFile(fs, "/runs/latest/metrics.json")
	require.NoError(t, err)
	baselineMetrics, err := afero.ReadFile(fs, "/runs/"+baselineID+"/metrics.json")
	require.NoError(t, err)
	assert.Equal(t, latestMetrics, baselineMetrics)

	exists, err := afero.Exists(fs, "/runs/"+baselineID+"/baseline_metadata.json")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestStorePromoteFailsWithoutAnyRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, "/runs")
	_, err := store.Promote("")
	require.Error(t, err)
}

func TestCollectNumericRespectsDepthAndLimit(t *testing.T) {
	doc := map[string]any{
		"a": map[string]any{
			"b": map[string]any{
				"c": map[string]any{
					"d": 1.0, // depth 4, beyond maxMetricDepth
				},
			},
		},
		"x": 1.0,
	}
	nums := CollectNumeric(doc)
	assert.Contains(t, nums, "x")
	assert.NotContains(t, nums, "a.b.c.d")

	wide := map[string]any{}
	for i := 0; i < maxMetricLeaves+8; i++ {
		wide[fmt.Sprintf("k%d", i)] = float64(i)
	}
	assert.Len(t, CollectNumeric(wide), maxMetricLeaves)
}
