package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/dgallion1/xml2rst/internal/parser"
	"github.com/dgallion1/xml2rst/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

// handleSubmitJob queues an uploaded file for asynchronous conversion.
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	opts, err := s.options(r, r.FormValue)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	// Workers log with their own job-scoped logger.
	opts.Logger = nil

	header, ok := formFile(w, r)
	if !ok {
		return
	}
	filename := sanitizeFilename(header.Filename)
	if opts.Format == "" && !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := readUpload(header, s.cfg.MaxUploadBytes)
	if err != nil {
		jsonError(w, err.Error(), uploadStatus(err))
		return
	}

	job := pipeline.NewJob(filename, data, opts)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	snap := job.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":     snap.ID,
		"status":     snap.Status,
		"poll_url":   fmt.Sprintf("/api/jobs/%s", snap.ID),
		"result_url": fmt.Sprintf("/api/jobs/%s/result", snap.ID),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

// handleJobResult returns the rendered reStructuredText of a finished job.
func (s *Server) handleJobResult(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	if out, ok := job.Output(); ok {
		writeRST(w, out)
		return
	}
	if err := job.Err(); err != nil {
		code := statusFor(err)
		if errors.Is(err, pipeline.ErrQueueFull) {
			code = http.StatusServiceUnavailable
		}
		jsonError(w, err.Error(), code)
		return
	}
	jsonError(w, fmt.Sprintf("job is %s", job.Snapshot().Status), http.StatusConflict)
}
