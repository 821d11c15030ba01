package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/woedy/ProxyHome/internal/api/dto"
	"github.com/woedy/ProxyHome/internal/database"
	"github.com/woedy/ProxyHome/internal/domain"
)

func (s *Server) createFetchJob(w http.ResponseWriter, r *http.Request) {
	var payload dto.FetchJobRequest
	if decodeErr := json.NewDecoder(r.Body).Decode(&payload); decodeErr != nil {
		writeError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	jobType := strings.ToLower(strings.TrimSpace(payload.JobType))
	if jobType == "" {
		writeError(w, "job_type is required", http.StatusBadRequest)
		return
	}

	validate := true
	if payload.Validate != nil {
		validate = *payload.Validate
	}

	// The run outlives this request; only the job record reports on it.
	job, err := s.jobs.EnqueueFetchJob(context.WithoutCancel(r.Context()), jobType, validate)
	if err != nil {
		if errors.Is(err, database.ErrJobTypeInvalid) {
			writeError(w, "Unknown job type", http.StatusBadRequest)
			return
		}
		writeError(w, "Failed to create fetch job", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, dto.FetchJobInfoFrom(job))
}

func listJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	status := strings.ToLower(strings.TrimSpace(query.Get("status")))
	switch status {
	case "", domain.JobStatusPending, domain.JobStatusRunning, domain.JobStatusCompleted, domain.JobStatusFailed:
	default:
		writeError(w, "Unknown job status", http.StatusBadRequest)
		return
	}

	jobs, err := database.ListFetchJobs(status, queryInt(query.Get("limit"), 0))
	if err != nil {
		writeError(w, "Failed to load jobs", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"jobs": dto.FetchJobInfosFrom(jobs)})
}

func getJob(w http.ResponseWriter, r *http.Request) {
	rawID := strings.TrimSpace(r.PathValue("id"))
	if rawID == "" {
		writeError(w, "Missing job id", http.StatusBadRequest)
		return
	}

	id, convErr := strconv.ParseUint(rawID, 10, 64)
	if convErr != nil {
		writeError(w, "Invalid job id", http.StatusBadRequest)
		return
	}

	job, err := database.GetFetchJob(id)
	if err != nil {
		if errors.Is(err, database.ErrJobNotFound) {
			writeError(w, "Job not found", http.StatusNotFound)
			return
		}
		writeError(w, "Failed to load job", http.StatusInternalServerError)
		return
	}

	logs, err := database.GetJobLogs(id, 0)
	if err != nil {
		writeError(w, "Failed to load job log", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"job":  dto.FetchJobInfoFrom(job),
		"logs": dto.JobLogLinesFrom(logs),
	})
}

func (s *Server) revalidateProxies(w http.ResponseWriter, r *http.Request) {
	scheduled, err := s.jobs.RevalidateStaleProxies(r.Context())
	if err != nil {
		writeError(w, "Revalidation failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, dto.RevalidationResult{Revalidated: scheduled})
}
