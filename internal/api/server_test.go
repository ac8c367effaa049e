package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dgallion1/pageflow/internal/config"
	"github.com/dgallion1/pageflow/internal/pagination"
	"github.com/dgallion1/pageflow/internal/pipeline"
	"github.com/dgallion1/pageflow/internal/session"
)

const testKey = "test-key"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testServer(t *testing.T, mutate ...func(*config.Config)) *Server {
	t.Helper()
	cfg := config.Config{
		APIKey:              testKey,
		WorkerCount:         1,
		MaxQueueSize:        4,
		JobTTL:              time.Hour,
		MaxUploadBytes:      1 << 20,
		MaxBatchConcurrency: 2,
		Page:                pagination.DefaultConfig(),
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	orch := pipeline.NewOrchestrator(cfg, nil, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)
	return NewServer(session.NewRegistry(time.Hour, log), orch, log, cfg)
}

func do(t *testing.T, s *Server, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+testKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, s, method, path, strings.NewReader(body), "application/json")
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// Three paragraphs at positions 0, 5 and 10.
const threeParagraphs = `{"type":"doc","content":[
	{"type":"paragraph","content":[{"type":"text","text":"one"}]},
	{"type":"paragraph","content":[{"type":"text","text":"two"}]},
	{"type":"paragraph","content":[{"type":"text","text":"three"}]}]}`

func multipartBody(t *testing.T, fields map[string]string, field string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealth_Public(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuth(t *testing.T) {
	s := testServer(t)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats/paginate", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"missing authorization"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/stats/paginate", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimit(t *testing.T) {
	s := testServer(t, func(c *config.Config) {
		c.RateLimitRPS = 0.001
		c.RateLimitBurst = 1
	})
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/stats/paginate", nil, "").Code)
	rec := do(t, s, http.MethodGet, "/api/stats/paginate", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestPaginate_MeasuredHeights(t *testing.T) {
	s := testServer(t)
	body := `{"doc":` + threeParagraphs + `,"heights":{"0":500,"5":500,"10":100}}`
	rec := doJSON(t, s, http.MethodPost, "/api/paginate", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[paginateResponse](t, rec)
	assert.False(t, resp.Estimated)
	assert.Equal(t, []pagination.BreakPoint{{Pos: 5, Page: 2}}, resp.Breaks)
	assert.Equal(t, 2, resp.Pages)
	require.Len(t, resp.Markers, 1)
	assert.Equal(t, "Page 2", resp.Markers[0].Text)
}

func TestPaginate_ConfigPatch(t *testing.T) {
	s := testServer(t)
	body := `{"doc":` + threeParagraphs + `,"heights":{"0":500,"5":500,"10":100},"config":{"pageHeight":2000,"label":"Folio"}}`
	rec := doJSON(t, s, http.MethodPost, "/api/paginate", body)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[paginateResponse](t, rec)
	assert.Empty(t, resp.Breaks)
	assert.Equal(t, "Folio", resp.Config.Label)
	assert.Equal(t, pagination.DefaultPageMargin, resp.Config.PageMargin)
}

func TestPaginate_RejectsBadInput(t *testing.T) {
	s := testServer(t)
	cases := map[string]string{
		"malformed": `{"doc":`,
		"no doc":    `{"heights":{}}`,
		"bad root":  `{"doc":{"type":"paragraph"}}`,
		"margins":   `{"doc":` + threeParagraphs + `,"config":{"pageMargin":600}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, "/api/paginate", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestPaginate_EstimatesWithoutHeights(t *testing.T) {
	s := testServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/paginate", `{"doc":`+threeParagraphs+`}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[paginateResponse](t, rec)
	assert.True(t, resp.Estimated)
	assert.Equal(t, 1, resp.Pages)

	stats := decode[map[string]any](t, do(t, s, http.MethodGet, "/api/stats/paginate", nil, ""))
	assert.EqualValues(t, 1, stats["stats"].(map[string]any)["count"])
}

func TestPaginateFile(t *testing.T) {
	s := testServer(t)
	md := strings.Repeat("A paragraph of text that fills one line.\n\n", 60)
	body, ct := multipartBody(t, map[string]string{"label": "Seite"}, "file", map[string]string{"notes.md": md})

	rec := do(t, s, http.MethodPost, "/api/paginate/file", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[paginateResponse](t, rec)
	assert.Equal(t, "notes.md", resp.Filename)
	assert.True(t, resp.Estimated)
	assert.Equal(t, 3, resp.Pages)
	require.Len(t, resp.Markers, 2)
	assert.Equal(t, "Seite 2", resp.Markers[0].Text)
}

func TestPaginateFile_BadForm(t *testing.T) {
	s := testServer(t)

	body, ct := multipartBody(t, map[string]string{"page_size": "B5"}, "file", map[string]string{"a.md": "x"})
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/paginate/file", body, ct).Code)

	body, ct = multipartBody(t, map[string]string{"page_height": "tall"}, "file", map[string]string{"a.md": "x"})
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/paginate/file", body, ct).Code)

	body, ct = multipartBody(t, nil, "file", map[string]string{"a.exe": "x"})
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/paginate/file", body, ct).Code)

	body, ct = multipartBody(t, nil, "other", map[string]string{"a.md": "x"})
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/paginate/file", body, ct).Code)
}

func TestPaginateFile_TooLarge(t *testing.T) {
	s := testServer(t, func(c *config.Config) { c.MaxUploadBytes = 16 })
	body, ct := multipartBody(t, nil, "file", map[string]string{"a.txt": strings.Repeat("x", 64)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, do(t, s, http.MethodPost, "/api/paginate/file", body, ct).Code)
}

func TestPaginateBatch(t *testing.T) {
	s := testServer(t)
	body, ct := multipartBody(t, map[string]string{"page_size": "A4"}, "files", map[string]string{
		"a.md":   "# A\n\ntext",
		"b.txt":  "plain",
		"c.exe":  "binary",
		"d.html": "<p>hello</p>",
	})
	rec := do(t, s, http.MethodPost, "/api/paginate/batch", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		Results []paginateResponse `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Results, 4)

	failed := 0
	for _, r := range out.Results {
		if r.Error != "" {
			failed++
			assert.Equal(t, "c.exe", r.Filename)
			continue
		}
		assert.Equal(t, pagination.PageSizeA4.Height, r.Config.PageHeight)
		assert.Equal(t, 1, r.Pages)
	}
	assert.Equal(t, 1, failed)
}

func TestSessions_Lifecycle(t *testing.T) {
	s := testServer(t)
	body := `{"doc":` + threeParagraphs + `,"heights":{"0":500,"5":500,"10":100}}`
	rec := doJSON(t, s, http.MethodPost, "/api/sessions", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[session.Snapshot](t, rec)
	require.NotEmpty(t, created.ID)
	require.Len(t, created.Markers, 1)
	base := "/api/sessions/" + created.ID

	rec = do(t, s, http.MethodGet, base, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[session.Snapshot](t, rec).ID)

	rec = doJSON(t, s, http.MethodPatch, base+"/config", `{"label":"Folio"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Folio 2", decode[session.Snapshot](t, rec).Markers[0].Text)

	rec = doJSON(t, s, http.MethodPatch, base+"/config", `{"pageMargin":600}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodPut, base+"/heights", `{"heights":{"0":100,"5":100,"10":100}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[session.Snapshot](t, rec).Markers)

	rec = doJSON(t, s, http.MethodPut, base+"/doc", `{"doc":{"type":"doc","content":[]}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[session.Snapshot](t, rec).Pages)

	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodDelete, base, nil, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, base, nil, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodDelete, base, nil, "").Code)
}

func TestSessions_Upload(t *testing.T) {
	s := testServer(t)
	body, ct := multipartBody(t, map[string]string{"title": "Report"}, "file", map[string]string{"r.md": "# Heading\n\nBody."})
	rec := do(t, s, http.MethodPost, "/api/sessions/upload", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	snap := decode[session.Snapshot](t, rec)
	assert.Equal(t, "Report", snap.Title)
	assert.True(t, snap.Estimated)
}

func TestExport(t *testing.T) {
	s := testServer(t)
	body := `{"doc":` + threeParagraphs + `,"heights":{"0":500,"5":500,"10":100}}`
	created := decode[session.Snapshot](t, doJSON(t, s, http.MethodPost, "/api/sessions", body))

	rec := do(t, s, http.MethodPost, "/api/sessions/"+created.ID+"/export", nil, "")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	queued := decode[map[string]any](t, rec)
	jobID := queued["job_id"].(string)

	require.Eventually(t, func() bool {
		rec := do(t, s, http.MethodGet, "/api/exports/"+jobID+"/status", nil, "")
		return decode[pipeline.JobSnapshot](t, rec).Status == pipeline.StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	rec = do(t, s, http.MethodGet, "/api/exports/"+jobID+"/pdf", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/exports/nope/status", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodPost, "/api/sessions/nope/export", nil, "").Code)
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"report.pdf":          "report.pdf",
		"../../etc/passwd":    "passwd",
		`C:\Users\me\doc.md`: "doc.md",
		"":                    "unnamed",
		"a..b.txt":            "a_b.txt",
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitizeFilename(in), "input %q", in)
	}
}
