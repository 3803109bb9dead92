// Package jobs implements the disk-backed job lifecycle store and
// manager behind the HTTP /analyze endpoint, grounded on
// trust_bench_studio/services/job_store.py and job_manager.py.
package jobs

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"trustbench/pkg/models"
)

// Store is a disk-backed, in-memory-cached Job registry. Every mutation
// writes {root}/{job_id}/status.json atomically and updates the cache;
// every read refreshes from disk first, tolerating a writer in another
// process the way job_store.py's _refresh_job_from_disk does.
type Store struct {
	fs   afero.Fs
	root string

	mu    sync.Mutex
	cache map[string]*models.Job
}

func NewStore(fs afero.Fs, root string) *Store {
	return &Store{fs: fs, root: root, cache: map[string]*models.Job{}}
}

// clampProgress mirrors job_store.py's _clamp_progress.
func clampProgress(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// Create starts a new queued Job for repoURL and persists it.
func (s *Store) Create(repoURL, profile string, metadata map[string]string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	job := &models.Job{
		ID:        uuid.NewString(),
		RepoURL:   repoURL,
		Profile:   profile,
		State:     models.JobStateQueued,
		Stage:     models.JobStageQueued,
		Progress:  0,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.persist(job); err != nil {
		return nil, err
	}
	s.cache[job.ID] = job
	return job, nil
}

// Get refreshes a job from disk (if present) and returns it.
func (s *Store) Get(id string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(id)
}

// List returns every known job, refreshed from disk.
func (s *Store) List() ([]*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		if s.cache != nil {
			jobs := make([]*models.Job, 0, len(s.cache))
			for _, j := range s.cache {
				jobs = append(jobs, j)
			}
			return jobs, nil
		}
		return nil, nil
	}
	var out []*models.Job
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		job, err := s.refreshLocked(entry.Name())
		if err != nil || job == nil {
			continue
		}
		out = append(out, job)
	}
	return out, nil
}

// Update applies a partial transition to a job, enforcing the same
// terminal-state forcing rules as job_store.py's update_job: COMPLETE
// always ends at progress=1.0/stage=complete, FAILED always ends at
// stage=complete but keeps whatever progress had been reached.
func (s *Store) Update(id string, mutate func(job *models.Job)) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.refreshLocked(id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("jobs: unknown job %s", id)
	}

	mutate(job)
	job.Progress = clampProgress(job.Progress)

	switch job.State {
	case models.JobStateComplete:
		job.Progress = 1.0
		job.Stage = models.JobStageComplete
	case models.JobStateFailed:
		job.Stage = models.JobStageComplete
	}
	job.UpdatedAt = time.Now().UTC()

	if err := s.persist(job); err != nil {
		return nil, err
	}
	s.cache[job.ID] = job
	return job, nil
}

func (s *Store) statusPath(id string) string {
	return filepath.Join(s.root, id, "status.json")
}

// persist writes status.json atomically via a sibling temp file then
// rename, the same tmp-then-rename pattern runstore.Write uses.
func (s *Store) persist(job *models.Job) error {
	dir := filepath.Join(s.root, job.ID)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("jobs: create job dir: %w", err)
	}
	buf, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("jobs: marshal job %s: %w", job.ID, err)
	}
	tmpPath := s.statusPath(job.ID) + ".tmp"
	if err := afero.WriteFile(s.fs, tmpPath, buf, 0o644); err != nil {
		return fmt.Errorf("jobs: write status: %w", err)
	}
	if err := s.fs.Rename(tmpPath, s.statusPath(job.ID)); err != nil {
		return fmt.Errorf("jobs: rename status into place: %w", err)
	}
	return nil
}

// refreshLocked loads the on-disk status.json for id whenever it can be
// read, replacing the cached copy, tolerating a job directory written by
// another process; if the file cannot be read it returns the cached job
// (or nil). Caller must hold s.mu.
func (s *Store) refreshLocked(id string) (*models.Job, error) {
	raw, err := afero.ReadFile(s.fs, s.statusPath(id))
	if err != nil {
		if cached, ok := s.cache[id]; ok {
			return cached, nil
		}
		return nil, nil
	}
	var job models.Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("jobs: decode status for %s: %w", id, err)
	}
	s.cache[id] = &job
	return &job, nil
}

// AllocateWorkspace creates {root}/{job_id}/workspace and records its
// path in job metadata, mirroring GitHubService.allocate_workspace's
// placeholder behavior — actual cloning happens through the tool
// bridge, not here.
func (s *Store) AllocateWorkspace(id string) (string, error) {
	workspace := filepath.Join(s.root, id, "workspace")
	if err := s.fs.MkdirAll(workspace, 0o755); err != nil {
		return "", fmt.Errorf("jobs: allocate workspace: %w", err)
	}
	_, err := s.Update(id, func(job *models.Job) {
		if job.Metadata == nil {
			job.Metadata = map[string]string{}
		}
		job.Metadata["workspace"] = workspace
		job.Message = "Job queued for analysis"
	})
	return workspace, err
}
