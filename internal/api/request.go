package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/pageflow/internal/doctree"
	"github.com/dgallion1/pageflow/internal/measure"
	"github.com/dgallion1/pageflow/internal/pagination"
	"github.com/dgallion1/pageflow/internal/parser"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 16 << 20

// documentRequest is the body of JSON pagination and session requests.
type documentRequest struct {
	Doc     *doctree.Document `json:"doc"`
	Heights measure.Table     `json:"heights,omitempty"`
	Config  pagination.Patch  `json:"config"`
}

type heightsRequest struct {
	Heights measure.Table `json:"heights"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// pageConfig merges p over the server's default page and validates it.
func (s *Server) pageConfig(p pagination.Patch) (pagination.PageConfig, error) {
	cfg := pagination.Merge(s.cfg.Page, p)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// patchFromForm reads page settings from multipart fields. page_size names
// a standard paper size; explicit width and height override it.
func patchFromForm(r *http.Request) (pagination.Patch, error) {
	var p pagination.Patch
	if name := r.FormValue("page_size"); name != "" {
		size, ok := pagination.LookupPageSize(name)
		if !ok {
			return p, fmt.Errorf("unknown page_size %q", name)
		}
		p = size.Patch()
	}
	floats := []struct {
		field string
		dst   **float64
	}{
		{"page_height", &p.PageHeight},
		{"page_width", &p.PageWidth},
		{"page_margin", &p.PageMargin},
	}
	for _, f := range floats {
		v := r.FormValue(f.field)
		if v == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return p, fmt.Errorf("%s: %w", f.field, err)
		}
		*f.dst = &n
	}
	if _, ok := r.MultipartForm.Value["label"]; ok {
		label := r.FormValue("label")
		p.Label = &label
	}
	if v := r.FormValue("show_page_number"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return p, fmt.Errorf("show_page_number: %w", err)
		}
		p.ShowPageNumber = &b
	}
	return p, nil
}

// errTooLarge marks uploads over MaxUploadBytes.
var errTooLarge = errors.New("file exceeds max size")

// parseUpload reads and parses one uploaded file.
func (s *Server) parseUpload(fh *multipart.FileHeader) (*doctree.Document, string, error) {
	filename := sanitizeFilename(fh.Filename)
	if !parser.IsSupportedExtension(filename) {
		return nil, filename, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}
	f, err := fh.Open()
	if err != nil {
		return nil, filename, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, filename, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, filename, fmt.Errorf("%w (%d bytes)", errTooLarge, s.cfg.MaxUploadBytes)
	}

	doc, err := parser.ParseFile(bytes.NewReader(data), filename, parser.Options{
		FallbackPdftotext: s.cfg.PDFFallbackPdftotext,
	})
	if err != nil {
		return nil, filename, err
	}
	return doc, filename, nil
}

// parseMultipart limits and parses a multipart body. files is the number
// of uploads the body may carry.
func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request, files int64) error {
	// extra 1MB for form overhead
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*files+1024*1024)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return fmt.Errorf("invalid multipart form: %w", err)
	}
	return nil
}

func uploadStatus(err error) int {
	if errors.Is(err, errTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
