// Package api exposes the validation pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prasadk/complyscan/internal/model"
	"github.com/prasadk/complyscan/internal/store"
	"github.com/prasadk/complyscan/internal/validate"
)

// Service runs validations and semantic queries. Implemented by
// pipeline.Pipeline.
type Service interface {
	Validate(ctx context.Context, documentID, framework string) (*model.ValidationRun, error)
	Search(ctx context.Context, documentID, query string, k int) ([]model.ScoredSegment, error)
}

// RunStore reads persisted documents and runs. Implemented by store.Store.
type RunStore interface {
	Documents(ctx context.Context) ([]model.Document, error)
	GetDocument(ctx context.Context, documentID string) (model.Document, bool, error)
	RunsForDocument(ctx context.Context, documentID string) ([]model.RunSummary, error)
	GetRun(ctx context.Context, runID string) (*model.ValidationRun, error)
}

// FrameworkLister names the loaded rule frameworks. Implemented by
// rules.Store.
type FrameworkLister interface {
	Frameworks() []string
}

// Server wires the compliance endpoints to the pipeline
type Server struct {
	service    Service
	store      RunStore
	frameworks FrameworkLister
	logger     *slog.Logger
}

func NewServer(service Service, runStore RunStore, frameworks FrameworkLister, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		service:    service,
		store:      runStore,
		frameworks: frameworks,
		logger:     logger,
	}
}

// Router builds the complete HTTP handler
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/frameworks", s.handleFrameworks)
		r.Get("/documents", s.handleListDocuments)
		r.Post("/documents/{id}/validate", s.handleValidate)
		r.Get("/documents/{id}/results", s.handleResults)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Get("/search", s.handleSearch)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleFrameworks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"frameworks": s.frameworks.Frameworks()})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.Documents(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if docs == nil {
		docs = []model.Document{}
	}
	writeJSON(w, http.StatusOK, map[string][]model.Document{"documents": docs})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "id")
	framework := r.URL.Query().Get("framework")
	if framework == "" {
		writeError(w, http.StatusBadRequest, "framework query parameter is required")
		return
	}

	start := time.Now()
	run, err := s.service.Validate(r.Context(), documentID, framework)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info("validation requested",
		"document_id", documentID,
		"framework", framework,
		"score", run.Score.Value,
		"duration_ms", time.Since(start).Milliseconds())
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "id")

	_, ok, err := s.store.GetDocument(r.Context(), documentID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}

	runs, err := s.store.RunsForDocument(r.Context(), documentID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if runs == nil {
		runs = []model.RunSummary{}
	}
	writeJSON(w, http.StatusOK, map[string][]model.RunSummary{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q query parameter is required")
		return
	}
	documentID := r.URL.Query().Get("document_id")
	if documentID == "" {
		writeError(w, http.StatusBadRequest, "document_id query parameter is required")
		return
	}
	k := 5
	if raw := r.URL.Query().Get("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "k must be a positive integer")
			return
		}
		k = parsed
	}

	hits, err := s.service.Search(r.Context(), documentID, query, k)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if hits == nil {
		hits = []model.ScoredSegment{}
	}
	writeJSON(w, http.StatusOK, map[string][]model.ScoredSegment{"results": hits})
}

// writeError maps domain errors to HTTP statuses
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, validate.ErrUnknownFramework):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, validate.ErrDocumentNotFound), errors.Is(err, store.ErrRunNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
