package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/pageflow/internal/config"
	"github.com/dgallion1/pageflow/internal/measure"
	"github.com/dgallion1/pageflow/internal/pipeline"
	"github.com/dgallion1/pageflow/internal/session"
	"github.com/dgallion1/pageflow/internal/stats"
)

// Server is the HTTP API server for pageflow.
type Server struct {
	router       chi.Router
	sessions     *session.Registry
	orchestrator *pipeline.Orchestrator
	estimator    *measure.Estimator
	stats        *stats.Recorder
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(sessions *session.Registry, orch *pipeline.Orchestrator, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		sessions:     sessions,
		orchestrator: orch,
		estimator:    measure.NewEstimator(measure.DefaultStyle()),
		stats:        stats.NewRecorder(0),
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		r.Use(RateLimit(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst))

		r.Post("/api/paginate", s.handlePaginate)
		r.Post("/api/paginate/file", s.handlePaginateFile)
		r.Post("/api/paginate/batch", s.handlePaginateBatch)

		r.Route("/api/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Post("/upload", s.handleUploadSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Put("/doc", s.handleReplaceDocument)
				r.Put("/heights", s.handleSetHeights)
				r.Patch("/config", s.handlePatchConfig)
				r.Post("/export", s.handleExport)
			})
		})

		r.Get("/api/exports/{jobID}/status", s.handleExportStatus)
		r.Get("/api/exports/{jobID}/pdf", s.handleExportPDF)

		r.Get("/api/stats/paginate", s.handlePaginateStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
