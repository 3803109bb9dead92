package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"trustbench/pkg/models"
)

func passingResults() map[string]models.AgentResult {
	return map[string]models.AgentResult{
		pillarTask:     {Pillar: pillarTask, Score: 0.9, Metrics: map[string]float64{"samples": 5}},
		pillarSystem:   {Pillar: pillarSystem, Score: 1.0, Metrics: map[string]float64{"samples": 5, "latency_p95_ms": 500}},
		pillarSecurity: {Pillar: pillarSecurity, Score: 1.0, Metrics: map[string]float64{"samples": 5}},
		pillarEthics:   {Pillar: pillarEthics, Score: 0.95, Metrics: map[string]float64{"samples": 5}},
	}
}

func TestSynthesizePassesWhenAllPillarsClear(t *testing.T) {
	v := Synthesize(models.DefaultThresholds(), passingResults())
	assert.Equal(t, "pass", v.Decision)
	assert.Equal(t, "high", v.Confidence)
	assert.Empty(t, v.Drivers)
}

func TestSynthesizeHardFailsOnSecurityDefect(t *testing.T) {
	results := passingResults()
	sec := results[pillarSecurity]
	sec.Score = 0
	sec.Failures = []models.Failure{{Pillar: pillarSecurity, Reason: "injection_bypass"}}
	results[pillarSecurity] = sec

	v := Synthesize(models.DefaultThresholds(), results)
	assert.Equal(t, "fail", v.Decision)
	assert.NotEmpty(t, v.Drivers)
}

func TestSynthesizeWarnsBelowCompositeThreshold(t *testing.T) {
	results := passingResults()
	task := results[pillarTask]
	task.Score = 0.1
	results[pillarTask] = task

	v := Synthesize(models.DefaultThresholds(), results)
	assert.Equal(t, "warn", v.Decision)
}

func TestSynthesizeLowConfidenceOnSmallSampleSize(t *testing.T) {
	results := passingResults()
	task := results[pillarTask]
	task.Metrics["samples"] = 2
	results[pillarTask] = task

	v := Synthesize(models.DefaultThresholds(), results)
	assert.Equal(t, "low", v.Confidence)
}

func TestSynthesizeFailsSystemPillarOnLatencyBreach(t *testing.T) {
	results := passingResults()
	system := results[pillarSystem]
	system.Metrics["latency_p95_ms"] = 5000 // above DefaultThresholds().SystemLatencyP95 (4000)
	results[pillarSystem] = system

	v := Synthesize(models.DefaultThresholds(), results)
	for _, p := range v.Pillars {
		if p.Pillar == pillarSystem {
			assert.False(t, p.Pass)
		}
	}
	assert.NotEmpty(t, v.Drivers)
}

func TestSynthesizeTreatsMissingPillarAsHardFailure(t *testing.T) {
	results := passingResults()
	delete(results, pillarEthics)

	v := Synthesize(models.DefaultThresholds(), results)
	assert.Equal(t, "fail", v.Decision)
}
