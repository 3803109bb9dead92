// Package runstore persists one evaluation run's artifacts to disk and
// lets callers list/load past runs. Directory layout and the
// tmp-then-rename atomic write pattern are grounded on the teacher's
// pkg/bundle/manager.go install flow and internal/storage/file_store.go
// key conventions; the set of files written per run and their contents
// are grounded on trustbench_core/eval/orchestrator.py's run_all().
package runstore

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/afero"

	"trustbench/internal/logging"
	"trustbench/internal/orchestrator"
	"trustbench/pkg/models"
)

// Store writes and reads run directories under Root, using fs so tests
// can run entirely in memory (afero.NewMemMapFs()).
type Store struct {
	fs   afero.Fs
	Root string
}

func NewStore(fs afero.Fs, root string) *Store {
	return &Store{fs: fs, Root: root}
}

// RunSummary is the lightweight listing shape GET /run/latest and a
// future "list runs" endpoint would return.
type RunSummary struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Verdict   models.Verdict `json:"verdict"`
}

// Write persists one run's artifacts: run.json, metrics.json, gate.json,
// failures.csv (only if there are failures), trace.json, report.md,
// report.html — written into a {root}/.tmp/{id} staging directory and
// renamed into place atomically, then mirrored into {root}/latest the
// same way. Returns the new run's ID.
func (s *Store) Write(ctx context.Context, profile *models.Profile, result orchestrator.Result, fakeProvider bool) (string, error) {
	runID := fmt.Sprintf("%s-%s", time.Now().UTC().Format("20060102T150405"), ulid.Make().String())
	finalDir := filepath.Join(s.Root, runID)
	stagingDir := filepath.Join(s.Root, ".tmp", runID)

	if err := s.fs.MkdirAll(stagingDir, 0o755); err != nil {
		return "", fmt.Errorf("runstore: create staging dir: %w", err)
	}
	defer s.fs.RemoveAll(stagingDir)

	if err := s.writeArtifacts(stagingDir, profile, result, fakeProvider); err != nil {
		return "", err
	}

	if err := s.fs.MkdirAll(filepath.Dir(finalDir), 0o755); err != nil {
		return "", fmt.Errorf("runstore: create runs root: %w", err)
	}
	if err := s.fs.Rename(stagingDir, finalDir); err != nil {
		return "", fmt.Errorf("runstore: rename into place: %w", err)
	}

	if err := s.updateLatest(finalDir); err != nil {
		logging.Error("runstore: failed to update latest pointer", "error", err)
	}

	return runID, nil
}

func (s *Store) writeArtifacts(dir string, profile *models.Profile, result orchestrator.Result, fakeProvider bool) error {
	manifest := models.RunManifest{
		SchemaVersion: 1,
		Profile:       profile.Name,
		GitSHA:        "unknown",
		FakeProvider:  fakeProvider,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.writeJSON(filepath.Join(dir, "run.json"), manifest); err != nil {
		return err
	}

	metrics := map[string]any{}
	trace := make([]models.TraceEvent, 0, len(result.AgentResults))
	for pillar, res := range result.AgentResults {
		pillarMetrics := map[string]float64{"score": res.Score}
		for k, v := range res.Metrics {
			pillarMetrics[k] = v
		}
		metrics[pillar] = pillarMetrics
		trace = append(trace, models.TraceEvent{
			Pillar: pillar, StartedAt: res.StartedAt, CompletedAt: res.CompletedAt, ToolCalls: res.ToolCalls,
		})
	}
	metrics["fake_provider"] = fakeProvider
	if err := s.writeJSON(filepath.Join(dir, "metrics.json"), metrics); err != nil {
		return err
	}
	if err := s.writeJSON(filepath.Join(dir, "trace.json"), trace); err != nil {
		return err
	}
	if err := s.writeJSON(filepath.Join(dir, "verdict.json"), result.Verdict); err != nil {
		return err
	}

	var failedPillars []string
	var allFailures []models.Failure
	for pillar, res := range result.AgentResults {
		if len(res.Failures) > 0 || res.Err != "" {
			failedPillars = append(failedPillars, pillar)
		}
		allFailures = append(allFailures, res.Failures...)
	}
	sort.Strings(failedPillars)
	gateManifest := models.GateManifest{Blocked: len(failedPillars) > 0, Failed: failedPillars}
	if err := s.writeJSON(filepath.Join(dir, "gate.json"), gateManifest); err != nil {
		return err
	}

	if len(allFailures) > 0 {
		if err := s.writeFailuresCSV(filepath.Join(dir, "failures.csv"), allFailures); err != nil {
			return err
		}
	}

	if err := afero.WriteFile(s.fs, filepath.Join(dir, "report.md"), []byte(RenderMarkdown(profile, result)), 0o644); err != nil {
		return fmt.Errorf("runstore: write report.md: %w", err)
	}
	if err := afero.WriteFile(s.fs, filepath.Join(dir, "report.html"), []byte(RenderHTML(profile, result)), 0o644); err != nil {
		return fmt.Errorf("runstore: write report.html: %w", err)
	}
	return nil
}

func (s *Store) writeJSON(path string, v any) error {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("runstore: marshal %s: %w", filepath.Base(path), err)
	}
	if err := afero.WriteFile(s.fs, path, buf, 0o644); err != nil {
		return fmt.Errorf("runstore: write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (s *Store) writeFailuresCSV(path string, failures []models.Failure) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"pillar", "reason", "detail"}); err != nil {
		return err
	}
	for _, f := range failures {
		if err := w.Write([]string{f.Pillar, f.Reason, f.Detail}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return afero.WriteFile(s.fs, path, buf.Bytes(), 0o644)
}

// updateLatest mirrors finalDir into {root}/latest by staging a copy
// under {root}/.tmp/latest and renaming it over the existing latest
// directory, so readers never observe a partially-written "latest".
func (s *Store) updateLatest(finalDir string) error {
	latestStaging := filepath.Join(s.Root, ".tmp", "latest")
	latestPath := filepath.Join(s.Root, "latest")

	if err := s.fs.RemoveAll(latestStaging); err != nil {
		return err
	}
	if err := copyDir(s.fs, finalDir, latestStaging); err != nil {
		return err
	}
	if err := s.fs.RemoveAll(latestPath); err != nil {
		return err
	}
	return s.fs.Rename(latestStaging, latestPath)
}

func copyDir(fs afero.Fs, src, dst string) error {
	if err := fs.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	entries, err := afero.ReadDir(fs, src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := copyDir(fs, srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		data, err := afero.ReadFile(fs, srcPath)
		if err != nil {
			return err
		}
		if err := afero.WriteFile(fs, dstPath, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// baselineMetadata is written alongside a promoted baseline snapshot so
// later readers know which run it came from and why it was promoted.
type baselineMetadata struct {
	PromotedFrom string    `json:"promoted_from"`
	PromotedAt   time.Time `json:"promoted_at"`
	Note         string    `json:"note,omitempty"`
}

// Promote copies {root}/latest into a new {root}/baseline_{timestamp}
// snapshot, writing a baseline_metadata.json alongside it, per
// spec.md §4.8's "copy the latest run into a new timestamped baseline_*
// snapshot" requirement. Returns the new baseline directory's name. The
// copy (via copyDir, same helper updateLatest uses) guarantees
// baseline's metrics.json is byte-identical to latest/metrics.json.
func (s *Store) Promote(note string) (string, error) {
	latestPath := filepath.Join(s.Root, "latest")
	exists, err := afero.DirExists(s.fs, latestPath)
	if err != nil {
		return "", fmt.Errorf("runstore: check latest: %w", err)
	}
	if !exists {
		return "", fmt.Errorf("runstore: no run available to promote")
	}

	baselineID := fmt.Sprintf("baseline_%s", time.Now().UTC().Format("20060102T150405"))
	baselineStaging := filepath.Join(s.Root, ".tmp", baselineID)
	baselinePath := filepath.Join(s.Root, baselineID)

	if err := s.fs.RemoveAll(baselineStaging); err != nil {
		return "", err
	}
	if err := copyDir(s.fs, latestPath, baselineStaging); err != nil {
		return "", fmt.Errorf("runstore: copy latest to baseline: %w", err)
	}

	meta := baselineMetadata{PromotedFrom: "latest", PromotedAt: time.Now().UTC(), Note: note}
	if err := s.writeJSON(filepath.Join(baselineStaging, "baseline_metadata.json"), meta); err != nil {
		return "", err
	}

	if err := s.fs.Rename(baselineStaging, baselinePath); err != nil {
		return "", fmt.Errorf("runstore: rename baseline into place: %w", err)
	}
	return baselineID, nil
}

// LoadLatest reads verdict.json from {root}/latest, returning nil,nil
// if no run has ever completed.
func (s *Store) LoadLatest() (*models.Verdict, error) {
	path := filepath.Join(s.Root, "latest", "verdict.json")
	exists, err := afero.Exists(s.fs, path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	raw, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, err
	}
	var v models.Verdict
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("runstore: decode latest verdict: %w", err)
	}
	return &v, nil
}

// List returns every run directory under Root (excluding "latest" and
// ".tmp"), sorted by modification time descending — newest first, per
// spec.md's run listing requirement.
func (s *Store) List() ([]RunSummary, error) {
	entries, err := afero.ReadDir(s.fs, s.Root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("runstore: list runs: %w", err)
	}

	var summaries []RunSummary
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == "latest" || entry.Name() == ".tmp" {
			continue
		}
		raw, err := afero.ReadFile(s.fs, filepath.Join(s.Root, entry.Name(), "verdict.json"))
		if err != nil {
			continue
		}
		var v models.Verdict
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		summaries = append(summaries, RunSummary{ID: entry.Name(), CreatedAt: entry.ModTime(), Verdict: v})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries, nil
}

// maxMetricDepth and maxMetricLeaves bound CollectNumeric the way the
// original run_store.py's _collect_numeric does, so a pathological
// metrics.json can't blow up a summary response.
const (
	maxMetricDepth  = 3
	maxMetricLeaves = 32
)

// CollectNumeric walks an arbitrary decoded JSON document and returns
// every numeric leaf found within maxMetricDepth levels, up to
// maxMetricLeaves entries, keyed by its dotted path — ported from
// trust_bench_studio/utils/run_store.py's _collect_numeric, used when
// summarizing a metrics.json whose shape isn't fully known ahead of
// time.
func CollectNumeric(doc any) map[string]float64 {
	out := map[string]float64{}
	collectNumeric(doc, "", 0, out)
	return out
}

func collectNumeric(node any, prefix string, depth int, out map[string]float64) {
	if len(out) >= maxMetricLeaves || depth > maxMetricDepth {
		return
	}
	switch v := node.(type) {
	case map[string]any:
		for k, child := range v {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			collectNumeric(child, key, depth+1, out)
			if len(out) >= maxMetricLeaves {
				return
			}
		}
	case float64:
		out[prefix] = v
	case int:
		out[prefix] = float64(v)
	}
}
