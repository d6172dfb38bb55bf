package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pavelbre/copycheck/internal/ai"
	"github.com/pavelbre/copycheck/internal/config"
	"github.com/pavelbre/copycheck/internal/constants"
	"github.com/pavelbre/copycheck/internal/pipeline"
)

// RunnerFactory builds the analysis pipeline for a provider selection.
// It returns the runner together with the analyzer so the handler can
// collect usage information after the run.
type RunnerFactory func(ctx context.Context, provider string) (*pipeline.Runner, ai.Analyzer, error)

// CheckHandler handles image check endpoints
type CheckHandler struct {
	config     *config.Config
	jobManager *JobManager
	newRunner  RunnerFactory
}

// NewCheckHandler creates a new check handler
func NewCheckHandler(cfg *config.Config, jm *JobManager, factory RunnerFactory) *CheckHandler {
	return &CheckHandler{
		config:     cfg,
		jobManager: jm,
		newRunner:  factory,
	}
}

// Start accepts a multipart upload of images and starts a check job
func (h *CheckHandler) Start(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "at least one image is required")
		return
	}
	if len(files) > constants.MaxImagesPerRequest {
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("too many images (max %d)", constants.MaxImagesPerRequest))
		return
	}

	images := make([]pipeline.Image, 0, len(files))
	for _, header := range files {
		f, err := header.Open()
		if err != nil {
			respondError(w, http.StatusBadRequest, "failed to read uploaded file")
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			respondError(w, http.StatusBadRequest, "failed to read uploaded file")
			return
		}
		// Uploaded filenames end up in logs and progress events.
		images = append(images, pipeline.Image{Filename: sanitizeForLog(header.Filename), Data: data})
	}

	options := h.parseOptions(r)
	jobID := uuid.New().String()
	job := h.jobManager.CreateJob(jobID, len(images), options)

	// Start job in background
	go h.runCheckJob(job, images)

	respondJSON(w, http.StatusAccepted, map[string]any{
		"job_id":       jobID,
		"total_images": len(images),
		"status":       string(JobStatusPending),
	})
}

// parseOptions reads optional form fields, falling back to configuration.
func (h *CheckHandler) parseOptions(r *http.Request) CheckJobOptions {
	options := CheckJobOptions{
		Provider:   constants.ProviderOpenAI,
		Threshold:  h.config.Analysis.Threshold,
		MaxMatches: h.config.Analysis.MaxMatches,
	}

	if p := r.FormValue("provider"); p != "" {
		options.Provider = p
	}
	if t := r.FormValue("threshold"); t != "" {
		if f, err := strconv.ParseFloat(t, 64); err == nil && f > 0 && f <= 1 {
			options.Threshold = f
		}
	}
	if m := r.FormValue("max_matches"); m != "" {
		if n, err := strconv.Atoi(m); err == nil && n > 0 {
			options.MaxMatches = n
		}
	}
	return options
}

// Status returns the status of a check job
func (h *CheckHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	respondJSON(w, http.StatusOK, job)
}

// Events streams job events via SSE
func (h *CheckHandler) Events(w http.ResponseWriter, r *http.Request) {
	streamSSEEvents(w, r,
		func(id string) SSEJob {
			job := h.jobManager.GetJob(id)
			if job == nil {
				return nil
			}
			return job
		},
		func(job SSEJob) any {
			return job
		},
	)
}

// Cancel cancels a check job
func (h *CheckHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	job.Cancel()
	respondJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

// runCheckJob runs the check job in the background
func (h *CheckHandler) runCheckJob(job *CheckJob, images []pipeline.Image) {
	ctx, cancel := context.WithCancel(context.Background())
	job.cancel = cancel
	defer cancel()

	job.mu.Lock()
	job.Status = JobStatusRunning
	job.mu.Unlock()
	job.SendEvent(JobEvent{Type: "started", Message: "Check job started"})

	runner, analyzer, err := h.newRunner(ctx, job.Options.Provider)
	if err != nil {
		h.failJob(job, err.Error())
		return
	}

	reports, err := runner.Run(ctx, images, pipeline.Options{
		Threshold:  job.Options.Threshold,
		MaxMatches: job.Options.MaxMatches,
		OnProgress: func(p pipeline.Progress) {
			if p.Stage == pipeline.StagePHash {
				job.mu.Lock()
				job.ProcessedImages = p.ImageIndex
				job.Progress = p.ImageIndex * 100 / p.TotalImages
				job.mu.Unlock()
			}
			job.SendEvent(JobEvent{
				Type: "progress",
				Data: map[string]any{
					"stage":            string(p.Stage),
					"filename":         p.Detail,
					"processed_images": p.ImageIndex,
					"total_images":     p.TotalImages,
				},
			})
		},
	})

	if err != nil {
		if ctx.Err() != nil {
			job.mu.Lock()
			job.Status = JobStatusCancelled
			job.mu.Unlock()
			job.SendEvent(JobEvent{Type: "cancelled", Message: "Job was cancelled"})
			return
		}
		h.failJob(job, fmt.Sprintf("check failed: %v", err))
		return
	}

	usage := analyzer.GetUsage()
	result := &CheckJobResult{
		Reports: reports,
		Usage: &UsageInfo{
			InputTokens:  usage.InputTokens,
			OutputTokens: usage.OutputTokens,
			TotalCost:    usage.TotalCost,
		},
	}

	now := time.Now()
	job.mu.Lock()
	job.Status = JobStatusCompleted
	job.Progress = 100
	job.CompletedAt = &now
	job.Result = result
	job.mu.Unlock()

	job.SendEvent(JobEvent{Type: "completed", Data: result})
}

// failJob marks a job as failed with the given error message.
func (h *CheckHandler) failJob(job *CheckJob, message string) {
	now := time.Now()
	job.mu.Lock()
	job.Status = JobStatusFailed
	job.Error = message
	job.CompletedAt = &now
	job.mu.Unlock()
	job.SendEvent(JobEvent{Type: "failed", Message: message})
}
