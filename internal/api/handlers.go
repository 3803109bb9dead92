// Package api implements the HTTP surface of the evaluation engine,
// grounded on the teacher's internal/api/v1 package layout: a Handlers
// struct wired with its dependencies in a constructor, gin.H{} JSON
// responses, and a single route-registration function.
package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"trustbench/internal/jobs"
	"trustbench/internal/runstore"
	"trustbench/pkg/models"
)

// allowedRepoURLPrefix is the only repository host this engine will
// clone for a POST /analyze job, per spec.md §4.8/§6.1.
const allowedRepoURLPrefix = "https://github.com/"

// Handlers bundles every dependency the HTTP layer needs, the way the
// teacher's APIHandlers struct bundles repos/services for v1 routes.
type Handlers struct {
	JobManager *jobs.Manager
	JobStore   *jobs.Store
	JobPool    *jobs.Pool
	RunStore   *runstore.Store
	Manifest   []models.AgentManifestEntry
}

// NewHandlers registers the routes of the given Handlers bundle onto r.
func NewHandlers(r *gin.Engine, h *Handlers) {
	r.GET("/api/health", h.health)
	r.GET("/api/agents", h.listAgents)
	r.GET("/api/run/latest", h.latestRun)
	r.GET("/api/verdict", h.verdict)
	r.POST("/api/analyze", h.createJob)
	r.GET("/api/analyze/:id/status", h.jobStatus)
	r.POST("/api/baseline/promote", h.promoteBaseline)
}

func (h *Handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handlers) listAgents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"agents": h.Manifest})
}

func (h *Handlers) latestRun(c *gin.Context) {
	verdict, err := h.RunStore.LoadLatest()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if verdict == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no completed run yet"})
		return
	}
	c.JSON(http.StatusOK, verdict)
}

func (h *Handlers) verdict(c *gin.Context) {
	h.latestRun(c)
}

type createJobRequest struct {
	RepoURL  string            `json:"repo_url" binding:"required"`
	Profile  string            `json:"profile"`
	Metadata map[string]string `json:"metadata"`
}

func (h *Handlers) createJob(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !strings.HasPrefix(req.RepoURL, allowedRepoURLPrefix) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "repo_url must begin with " + allowedRepoURLPrefix})
		return
	}

	job, err := h.JobManager.Enqueue(req.RepoURL, req.Profile, req.Metadata)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.JobPool.Submit(job.ID)
	c.JSON(http.StatusAccepted, job)
}

func (h *Handlers) jobStatus(c *gin.Context) {
	id := c.Param("id")
	job, err := h.JobStore.Get(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

type promoteBaselineRequest struct {
	Note string `json:"note"`
}

func (h *Handlers) promoteBaseline(c *gin.Context) {
	verdict, err := h.RunStore.LoadLatest()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if verdict == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no run available to promote"})
		return
	}

	var req promoteBaselineRequest
	_ = c.ShouldBindJSON(&req) // body is optional; a missing/empty note is fine

	baselineID, err := h.RunStore.Promote(req.Note)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"promoted": true, "baseline_id": baselineID, "decision": verdict.Decision})
}
