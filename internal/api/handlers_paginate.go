package api

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/pageflow/internal/decoration"
	"github.com/dgallion1/pageflow/internal/doctree"
	"github.com/dgallion1/pageflow/internal/measure"
	"github.com/dgallion1/pageflow/internal/pagination"
)

// paginateResponse is one stateless pagination result.
type paginateResponse struct {
	Filename  string                  `json:"filename,omitempty"`
	Title     string                  `json:"title"`
	Estimated bool                    `json:"estimated"`
	Breaks    []pagination.BreakPoint `json:"breaks"`
	Markers   []decoration.Marker     `json:"markers"`
	Pages     int                     `json:"pages"`
	Config    pagination.PageConfig   `json:"config"`
	Error     string                  `json:"error,omitempty"`
}

// paginate runs one pass, estimating heights when none were measured.
func (s *Server) paginate(doc *doctree.Document, heights measure.Table, cfg pagination.PageConfig) paginateResponse {
	estimated := len(heights) == 0
	var res pagination.Result
	s.stats.Time(func() (int, int) {
		m := pagination.Measurer(heights)
		if estimated {
			m = s.estimator.Estimate(doc, cfg.ContentWidth())
		}
		res = pagination.Paginate(doc, m, cfg)
		return len(doc.Children()), len(res.Breaks)
	})
	set := decoration.NewSet(res)
	breaks := res.Breaks
	if breaks == nil {
		breaks = []pagination.BreakPoint{}
	}
	return paginateResponse{
		Title:     doc.Title,
		Estimated: estimated,
		Breaks:    breaks,
		Markers:   set.Markers,
		Pages:     res.Pages,
		Config:    cfg,
	}
}

func (s *Server) handlePaginate(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Doc == nil {
		jsonError(w, "doc is required", http.StatusBadRequest)
		return
	}
	cfg, err := s.pageConfig(req.Config)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.paginate(req.Doc, req.Heights, cfg))
}

func (s *Server) handlePaginateFile(w http.ResponseWriter, r *http.Request) {
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
	doc, filename, err := s.parseUpload(files[0])
	if err != nil {
		jsonError(w, err.Error(), uploadStatus(err))
		return
	}
	resp := s.paginate(doc, nil, cfg)
	resp.Filename = filename
	writeJSON(w, http.StatusOK, resp)
}

// handlePaginateBatch paginates every uploaded file. Per-file failures are
// reported inline; the request itself only fails on a bad form or config.
func (s *Server) handlePaginateBatch(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(w, r, 10); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	cfg, ok := s.formConfig(w, r)
	if !ok {
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	results := make([]paginateResponse, len(files))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(s.cfg.MaxBatchConcurrency)
	for i, fh := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, filename, err := s.parseUpload(fh)
			if err != nil {
				results[i] = paginateResponse{Filename: filename, Error: err.Error()}
				return nil
			}
			results[i] = s.paginate(doc, nil, cfg)
			results[i].Filename = filename
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			s.log.Info("batch cancelled by client", "files", len(files))
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// formConfig reads page settings from form fields and writes a 400 on
// failure.
func (s *Server) formConfig(w http.ResponseWriter, r *http.Request) (pagination.PageConfig, bool) {
	p, err := patchFromForm(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return pagination.PageConfig{}, false
	}
	cfg, err := s.pageConfig(p)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return pagination.PageConfig{}, false
	}
	return cfg, true
}
