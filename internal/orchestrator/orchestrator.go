// Package orchestrator runs the DAG of evaluator agents for one
// profile and synthesizes the gate verdict; writing the run's artifacts
// is left to runstore.Write, which takes the returned Result. The
// concurrency pattern — a WaitGroup plus a buffered result channel — is
// grounded on internal/workflows/runtime's ParallelExecutor.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"

	"trustbench/internal/agents"
	"trustbench/internal/gate"
	"trustbench/internal/logging"
	"trustbench/pkg/models"
)

var tracer = otel.Tracer("trustbench-orchestrator")

// Sentinel errors, following the teacher's workflows/runtime convention
// of package-level error vars for classification with errors.Is.
var (
	ErrNoAgents      = errors.New("orchestrator: no agents configured")
	ErrAgentPanicked = errors.New("orchestrator: agent panicked")
)

// Orchestrator dispatches every configured Agent against the profile's
// dataset, bounded by MaxParallel concurrent pillars (spec.md §5's
// resource model), then synthesizes a Verdict.
type Orchestrator struct {
	Agents     []agents.Agent
	MaxParallel int
}

// New builds an Orchestrator wired with the given pillar agents;
// MaxParallel bounds how many run concurrently.
func New(pillarAgents []agents.Agent, maxParallel int) *Orchestrator {
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Orchestrator{Agents: pillarAgents, MaxParallel: maxParallel}
}

// pillarOutcome pairs one agent's result with its originating pillar
// name and any hard error (a failure to run at all, as opposed to a
// recorded Failure within a successful AgentResult).
type pillarOutcome struct {
	pillar string
	result models.AgentResult
	err    error
}

// Run executes every agent concurrently (bounded by MaxParallel),
// collects their results, and synthesizes the gate verdict. It never
// returns early on a single agent's error — ethics_refusal's
// unrecoverable provider errors are recorded as a failed AgentResult so
// the remaining pillars still complete and the run still produces a
// verdict, per spec.md §4.9's failure semantics.
//
// datasets is keyed by pillar name (task_fidelity, security_eval,
// ethics_refusal) since each pillar reads from its own profile path
// (dataset_path, adversarial_path, unsafe_path respectively); system_perf
// needs no dataset and is simply looked up as a zero-value miss.
func (o *Orchestrator) Run(ctx context.Context, profile *models.Profile, datasets map[string][]models.DatasetRecord) (Result, error) {
	if len(o.Agents) == 0 {
		return Result{}, ErrNoAgents
	}

	ctx, span := tracer.Start(ctx, "orchestrator.run")
	defer span.End()

	sem := make(chan struct{}, o.MaxParallel)
	outcomes := make(chan pillarOutcome, len(o.Agents))
	var wg sync.WaitGroup

	for _, agent := range o.Agents {
		wg.Add(1)
		go func(a agents.Agent) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			outcome := pillarOutcome{pillar: a.Pillar()}
			func() {
				defer func() {
					if r := recover(); r != nil {
						outcome.err = fmt.Errorf("%w: %s: %v", ErrAgentPanicked, a.Pillar(), r)
					}
				}()
				agentCtx, agentSpan := tracer.Start(ctx, "agent."+a.Pillar())
				defer agentSpan.End()
				res, err := a.Run(agentCtx, profile, datasets[a.Pillar()])
				outcome.result = res
				outcome.err = err
			}()
			outcomes <- outcome
		}(agent)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	results := make(map[string]models.AgentResult, len(o.Agents))
	for outcome := range outcomes {
		if outcome.err != nil {
			logging.Error("agent run failed", "pillar", outcome.pillar, "error", outcome.err)
			outcome.result.Pillar = outcome.pillar
			outcome.result.Err = outcome.err.Error()
		}
		results[outcome.pillar] = outcome.result
	}

	verdict := gate.Synthesize(profile.Thresholds, results)
	return Result{AgentResults: results, Verdict: verdict}, nil
}

// Result is everything one orchestrator run produces, ready for
// runstore.Write.
type Result struct {
	AgentResults map[string]models.AgentResult
	Verdict      models.Verdict
}
