package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustbench/internal/jobs"
	"trustbench/internal/orchestrator"
	"trustbench/internal/runstore"
	"trustbench/internal/tools"
	"trustbench/pkg/models"
)

func bodyJSON(s string) *strings.Reader {
	return strings.NewReader(s)
}

func newTestHandlers(t *testing.T) (*gin.Engine, *Handlers) {
	gin.SetMode(gin.TestMode)
	fs := afero.NewMemMapFs()
	jobStore := jobs.NewStore(fs, "/jobs")
	jobManager := jobs.NewManager(jobStore)
	runStore := runstore.NewStore(fs, "/runs")

	worker := &jobs.Worker{
		Store:  jobStore,
		Bridge: tools.NewFakeBridge(),
		LoadProfile: func(name string) (*models.Profile, error) {
			return nil, fmt.Errorf("no profile %q configured for this test", name)
		},
		LoadDatasets: func(profile *models.Profile) (map[string][]models.DatasetRecord, error) {
			return nil, fmt.Errorf("no dataset configured for this test")
		},
	}
	pool := jobs.NewPool(context.Background(), worker, 1)
	t.Cleanup(pool.Stop)

	h := &Handlers{JobManager: jobManager, JobStore: jobStore, JobPool: pool, RunStore: runStore, Manifest: DefaultManifest()}
	r := gin.New()
	NewHandlers(r, h)
	return r, h
}

func TestHealthEndpoint(t *testing.T) {
	r, _ := newTestHandlers(t)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListAgentsReturnsFourPillars(t *testing.T) {
	r, _ := newTestHandlers(t)
	req := httptest.NewRequest(http.MethodGet, "/api/agents", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Athena")
	assert.Contains(t, w.Body.String(), "Helios")
	assert.Contains(t, w.Body.String(), "Aegis")
	assert.Contains(t, w.Body.String(), "Eidos")
}

func TestLatestRunReturns404WhenNoRuns(t *testing.T) {
	r, _ := newTestHandlers(t)
	req := httptest.NewRequest(http.MethodGet, "/api/run/latest", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateJobEnqueuesAndReturnsAccepted(t *testing.T) {
	r, h := newTestHandlers(t)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", bodyJSON(`{"repo_url":"https://github.com/octocat/hello-world"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusAccepted, w.Code)

	jobs, err := h.JobStore.List()
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestCreateJobRejectsNonGitHubRepoURL(t *testing.T) {
	r, _ := newTestHandlers(t)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", bodyJSON(`{"repo_url":"https://example.com/repo.git"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPromoteBaselineReturns404WithoutARun(t *testing.T) {
	r, _ := newTestHandlers(t)
	req := httptest.NewRequest(http.MethodPost, "/api/baseline/promote", bodyJSON(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPromoteBaselineCopiesLatestRun(t *testing.T) {
	r, h := newTestHandlers(t)

	result := orchestrator.Result{
		AgentResults: map[string]models.AgentResult{
			"task_fidelity": {Pillar: "task_fidelity", Score: 0.9},
		},
		Verdict: models.Verdict{Decision: "pass", Composite: 0.9, Confidence: "high"},
	}
	_, err := h.RunStore.Write(context.Background(), &models.Profile{Name: "demo"}, result, true)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/baseline/promote", bodyJSON(`{"note":"release candidate"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "baseline_id")
}
