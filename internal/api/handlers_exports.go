package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/pageflow/internal/pipeline"
)

func (s *Server) exportJob(w http.ResponseWriter, r *http.Request) (*pipeline.Job, bool) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return nil, false
	}
	return job, true
}

func (s *Server) handleExportStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := s.exportJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	job, ok := s.exportJob(w, r)
	if !ok {
		return
	}
	data, err := job.PDF()
	if errors.Is(err, pipeline.ErrNotReady) {
		snap := job.Snapshot()
		jsonError(w, fmt.Sprintf("%s: job is %s", err, snap.Status), http.StatusConflict)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pdfName(job.Snapshot().Title)))
	w.Write(data)
}

func pdfName(title string) string {
	name := strings.TrimSpace(sanitizeFilename(title))
	if name == "" || name == "unnamed" {
		name = "document"
	}
	return name + ".pdf"
}
