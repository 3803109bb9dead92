package jobs

import (
	"context"
	"fmt"

	"trustbench/internal/config"
	"trustbench/internal/logging"
	"trustbench/internal/orchestrator"
	"trustbench/internal/runstore"
	"trustbench/internal/tools"
	"trustbench/pkg/models"
)

// Manager coordinates job lifecycle transitions while deferring the
// actual clone/evaluate/report work to Worker.Run, mirroring
// job_manager.py's thin enqueue/transition wrapper around JobStore.
type Manager struct {
	Store *Store
}

func NewManager(store *Store) *Manager {
	return &Manager{Store: store}
}

// Enqueue creates a job, allocates its workspace, and returns the
// queued snapshot — the Go equivalent of JobManager.enqueue().
func (m *Manager) Enqueue(repoURL, profile string, metadata map[string]string) (*models.Job, error) {
	job, err := m.Store.Create(repoURL, profile, metadata)
	if err != nil {
		return nil, err
	}
	if _, err := m.Store.AllocateWorkspace(job.ID); err != nil {
		return nil, err
	}
	return m.Store.Get(job.ID)
}

// Worker drives one job through clone -> analyze -> evaluate -> report
// -> complete|failed, per spec.md §4.8's lifecycle diagram.
type Worker struct {
	Store             *Store
	Bridge            tools.Bridge
	BuildOrchestrator func(profile *models.Profile, workdir string) (*orchestrator.Orchestrator, error)
	LoadProfile       func(name string) (*models.Profile, error)
	// LoadDatasets returns every pillar's dataset keyed by pillar name
	// (task_fidelity, security_eval, ethics_refusal), loaded from the
	// profile's dataset_path/adversarial_path/unsafe_path respectively.
	LoadDatasets func(profile *models.Profile) (map[string][]models.DatasetRecord, error)
	RunStore     *runstore.Store
	Config       *config.Config
}

// Run executes the full lifecycle for jobID, recording every stage
// transition so GET /analyze/{id}/status always reflects current
// progress even if this call is still in flight.
func (w *Worker) Run(ctx context.Context, jobID string) {
	job, err := w.Store.Get(jobID)
	if err != nil || job == nil {
		logging.Error("jobs: worker could not load job", "job_id", jobID, "error", err)
		return
	}

	if err := w.runStages(ctx, job); err != nil {
		logging.Error("jobs: job failed", "job_id", jobID, "error", err)
		w.Store.Update(jobID, func(j *models.Job) {
			j.State = models.JobStateFailed
			j.Error = err.Error()
		})
		return
	}

	w.Store.Update(jobID, func(j *models.Job) {
		j.State = models.JobStateComplete
		j.Message = "evaluation complete"
	})
}

func (w *Worker) runStages(ctx context.Context, job *models.Job) error {
	workdir := job.Metadata["workspace"]

	if _, err := w.Store.Update(job.ID, func(j *models.Job) {
		j.State = models.JobStateRunning
		j.Stage = models.JobStageCloning
		j.Progress = 0.1
	}); err != nil {
		return err
	}
	if _, err := w.Bridge.Call(ctx, "download_and_extract_repo", map[string]any{
		"repo_url": job.RepoURL, "dest": workdir,
	}); err != nil {
		return fmt.Errorf("clone failed: %w", err)
	}

	if _, err := w.Store.Update(job.ID, func(j *models.Job) {
		j.Stage = models.JobStageAnalyzing
		j.Progress = 0.3
	}); err != nil {
		return err
	}
	profile, err := w.LoadProfile(job.Profile)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	datasets, err := w.LoadDatasets(profile)
	if err != nil {
		return fmt.Errorf("load datasets: %w", err)
	}

	if _, err := w.Store.Update(job.ID, func(j *models.Job) {
		j.Stage = models.JobStageEvaluating
		j.Progress = 0.5
	}); err != nil {
		return err
	}
	orc, err := w.BuildOrchestrator(profile, workdir)
	if err != nil {
		return fmt.Errorf("build orchestrator: %w", err)
	}
	result, err := orc.Run(ctx, profile, datasets)
	if err != nil {
		return fmt.Errorf("orchestrator run: %w", err)
	}

	if _, err := w.Store.Update(job.ID, func(j *models.Job) {
		j.Stage = models.JobStageReporting
		j.Progress = 0.9
	}); err != nil {
		return err
	}
	runID, err := w.RunStore.Write(ctx, profile, result, w.Config.FakeProvider)
	if err != nil {
		return fmt.Errorf("write run artifacts: %w", err)
	}

	_, err = w.Store.Update(job.ID, func(j *models.Job) {
		if j.Artifacts == nil {
			j.Artifacts = map[string]any{}
		}
		j.Artifacts["run_id"] = runID
		j.Artifacts["decision"] = result.Verdict.Decision
	})
	return err
}
