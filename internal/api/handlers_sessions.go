package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/pageflow/internal/doctree"
	"github.com/dgallion1/pageflow/internal/measure"
	"github.com/dgallion1/pageflow/internal/pagination"
	"github.com/dgallion1/pageflow/internal/pipeline"
	"github.com/dgallion1/pageflow/internal/session"
)

// timed records one session recompute in the pagination stats.
func (s *Server) timed(fn func() session.Snapshot) session.Snapshot {
	var snap session.Snapshot
	s.stats.Time(func() (int, int) {
		snap = fn()
		return len(snap.Doc.Children()), len(snap.Markers)
	})
	return snap
}

func (s *Server) openSession(w http.ResponseWriter, doc *doctree.Document, heights measure.Table, cfg pagination.PageConfig) {
	snap := s.timed(func() session.Snapshot {
		sess := session.New(doc, heights, cfg, s.estimator, s.log)
		s.sessions.Put(sess)
		return sess.Snapshot()
	})
	s.log.Info("session opened", "session_id", snap.ID, "title", snap.Title, "pages", snap.Pages)
	writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	cfg, err := s.pageConfig(req.Config)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.openSession(w, req.Doc, req.Heights, cfg)
}

func (s *Server) handleUploadSession(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(w, r, 1); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	cfg, ok := s.formConfig(w, r)
	if !ok {
		return
	}
	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		jsonError(w, "file is required", http.StatusBadRequest)
		return
	}
	doc, _, err := s.parseUpload(files[0])
	if err != nil {
		jsonError(w, err.Error(), uploadStatus(err))
		return
	}
	if title := r.FormValue("title"); title != "" {
		doc.Title = title
	}
	s.openSession(w, doc, nil, cfg)
}

// lookup resolves the {id} URL parameter and writes a 404 when unknown.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.Delete(id); err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	s.log.Info("session closed", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReplaceDocument(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req documentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Doc == nil {
		jsonError(w, "doc is required", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.timed(func() session.Snapshot {
		return sess.ReplaceDocument(req.Doc, req.Heights)
	}))
}

func (s *Server) handleSetHeights(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req heightsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.timed(func() session.Snapshot {
		return sess.SetHeights(req.Heights)
	}))
}

func (s *Server) handlePatchConfig(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var p pagination.Patch
	if err := decodeJSON(w, r, &p); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	var patchErr error
	snap := s.timed(func() session.Snapshot {
		snap, err := sess.PatchConfig(p)
		if err != nil {
			patchErr = err
			return sess.Snapshot()
		}
		return snap
	})
	if patchErr != nil {
		code := http.StatusInternalServerError
		if errors.Is(patchErr, pagination.ErrInvalidConfig) {
			code = http.StatusBadRequest
		}
		jsonError(w, patchErr.Error(), code)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	job := pipeline.NewJob(sess.Snapshot())
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	snap := job.Snapshot()
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   snap.ID,
		"status":   snap.Status,
		"poll_url": fmt.Sprintf("/api/exports/%s/status", snap.ID),
		"pdf_url":  fmt.Sprintf("/api/exports/%s/pdf", snap.ID),
	})
}
