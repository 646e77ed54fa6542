package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
	"github.com/lithammer/shortuuid/v4"

	"songfetch/artifact"
	"songfetch/config"
	"songfetch/job"
	"songfetch/lookup"
	"songfetch/progress"
)

// ErrNoUpload is returned when a conversion request carries no audio file.
var ErrNoUpload = errors.New("no file uploaded")

type Handler struct {
	cfg      *config.Config
	jobs     *job.Manager
	registry *progress.Registry
	paths    *artifact.Manager
	provider lookup.Provider
	logger   hclog.Logger
}

func NewHandler(cfg *config.Config, jobs *job.Manager, registry *progress.Registry, paths *artifact.Manager, provider lookup.Provider, logger hclog.Logger) *Handler {
	return &Handler{
		cfg:      cfg,
		jobs:     jobs,
		registry: registry,
		paths:    paths,
		provider: provider,
		logger:   logger,
	}
}

type SearchRequest struct {
	Query string `json:"query" binding:"required"`
}

type SearchResponse struct {
	VideoID *string `json:"videoId"`
	Title   *string `json:"title"`
}

// handleSearch resolves a query to the first acceptable video.
func (h *Handler) handleSearch(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items, err := h.provider.Search(c.Request.Context(), req.Query)
	if err != nil {
		h.logger.Error("lookup failed", "query", req.Query, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch search results"})
		return
	}

	item, err := lookup.SelectCandidate(items, h.cfg.ExcludedTerms)
	if errors.Is(err, lookup.ErrNoCandidate) {
		h.logger.Info("no candidate matched", "query", req.Query, "results", len(items))
		c.JSON(http.StatusOK, SearchResponse{})
		return
	}
	c.JSON(http.StatusOK, SearchResponse{VideoID: &item.RemoteID, Title: &item.Title})
}

type DownloadRequest struct {
	ID string `json:"id" binding:"required"`
}

// handleDownload runs the whole pipeline for one video and answers once it is done.
func (h *Handler) handleDownload(c *gin.Context) {
	jobID := c.Query("id")
	if jobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "missing job id"})
		return
	}
	var req DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "missing video id"})
		return
	}

	j, err := h.jobs.Start(c.Request.Context(), jobID, req.ID)
	if errors.Is(err, job.ErrJobExists) {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "file": j.Artifact})
}

// handleDownloadFile streams a finished artifact and removes it afterwards.
func (h *Handler) handleDownloadFile(c *gin.Context) {
	name := c.Param("name")
	if h.jobs.Owns(name) {
		c.JSON(http.StatusConflict, gin.H{"error": "job still running"})
		return
	}
	path, err := h.paths.Resolve(name)
	switch {
	case errors.Is(err, artifact.ErrInvalidName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, artifact.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.FileAttachment(path, name)
	h.paths.Cleanup(path)
}

// handleConvertAudio transcodes an uploaded file and streams the result back.
func (h *Handler) handleConvertAudio(c *gin.Context) {
	jobID := c.Query("id")
	if jobID == "" {
		jobID = shortuuid.New()
	}

	file, err := c.FormFile("audio")
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "uploaded file is too large"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrNoUpload.Error()})
		return
	}
	if h.cfg.MaxUploadSize > 0 && file.Size > h.cfg.MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "uploaded file is too large"})
		return
	}
	h.logger.Info("received audio file", "job", jobID, "name", file.Filename, "size", file.Size)

	j, err := h.jobs.Convert(c.Request.Context(), jobID, func(dest string) error {
		return c.SaveUploadedFile(file, dest)
	})
	if errors.Is(err, job.ErrJobExists) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error during conversion", "details": err.Error()})
		return
	}

	c.FileAttachment(j.OutputPath, j.Artifact)
	h.paths.Cleanup(j.InputPath, j.OutputPath)
}

type SubmitRequest struct {
	ID    string `json:"id" binding:"required"`
	JobID string `json:"jobId"`
}

// handleSubmitJob starts a pipeline in the background. Progress is followed
// through /progress and /jobs/:id.
func (h *Handler) handleSubmitJob(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing video id"})
		return
	}
	if req.JobID == "" {
		req.JobID = shortuuid.New()
	}

	j, err := h.jobs.Submit(req.JobID, req.ID)
	if errors.Is(err, job.ErrJobExists) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, j)
}

// handleGetJob reports a running job.
func (h *Handler) handleGetJob(c *gin.Context) {
	j, found := h.jobs.Get(c.Param("id"))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	c.JSON(http.StatusOK, j)
}

func (h *Handler) handleListJobs(c *gin.Context) {
	jobs := h.jobs.List()
	if jobs == nil {
		jobs = []job.Job{}
	}
	c.JSON(http.StatusOK, jobs)
}
