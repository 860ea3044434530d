// Package server exposes the pipeline over HTTP: one JSON endpoint for full
// site generation, one server-sent-events endpoint for edits, and a couple
// of read-only diagnostic endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/brightlane/siteforge/internal/edit"
	"github.com/brightlane/siteforge/internal/pipeline"
	"github.com/brightlane/siteforge/internal/site"
	"github.com/brightlane/siteforge/internal/store"
)

type Server struct {
	pipeline *pipeline.Pipeline
	editor   *edit.Orchestrator
	sites    store.SiteStore
	logger   *slog.Logger
}

func New(p *pipeline.Pipeline, editor *edit.Orchestrator, sites store.SiteStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		pipeline: p,
		editor:   editor,
		sites:    sites,
		logger:   logger.With("component", "server"),
	}
}

// Router wires the HTTP surface. The generation and edit endpoints are
// same-origin only; the diagnostic endpoints get permissive CORS since they
// are read-only.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(api chi.Router) {
		api.Post("/generate-website", s.handleGenerate)
		api.Post("/edit-website", s.handleEdit)
		api.With(permissiveCORS).Get("/sites", s.handleListSites)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// permissiveCORS applies to read-only diagnostic endpoints only.
func permissiveCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type generateResponse struct {
	Success           bool   `json:"success"`
	RepoURL           string `json:"repoUrl"`
	VercelURL         string `json:"vercelUrl,omitempty"`
	ProjectURL        string `json:"projectUrl,omitempty"`
	Message           string `json:"message"`
	AutoDeployed      bool   `json:"autoDeployed"`
	NeedsManualImport bool   `json:"needsManualImport"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		site.IntakeRecord
		Strategy string `json:"strategy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON", "")
		return
	}

	strategy := pipeline.StrategyFreeform
	if body.Strategy == string(pipeline.StrategyTemplated) {
		strategy = pipeline.StrategyTemplated
	}

	result, err := s.pipeline.Generate(r.Context(), &body.IntakeRecord, strategy)
	if err != nil {
		s.writeTaxonomyError(w, err)
		return
	}

	s.recordSite(r, &body.IntakeRecord, result)

	writeJSON(w, http.StatusOK, generateResponse{
		Success:           true,
		RepoURL:           result.RepoURL,
		VercelURL:         result.VercelURL,
		ProjectURL:        result.ProjectURL,
		Message:           result.Message,
		AutoDeployed:      result.AutoDeployed,
		NeedsManualImport: result.NeedsManualImport,
	})
}

// recordSite is advisory; a store failure is logged and the response is
// unaffected.
func (s *Server) recordSite(r *http.Request, intake *site.IntakeRecord, result *pipeline.Result) {
	if s.sites == nil {
		return
	}
	record := store.SiteRecord{
		ID:          uuid.NewString(),
		CompanyName: intake.CompanyName,
		RepoURL:     result.RepoURL,
		ProjectURL:  result.ProjectURL,
	}
	if result.AutoDeployed {
		record.DeployURL = result.VercelURL
	}
	if err := s.sites.Add(r.Context(), record); err != nil {
		s.logger.Warn("recording generated site failed", "error", err)
	}
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RepoURL     string `json:"repoUrl"`
		EditPrompt  string `json:"editPrompt"`
		CompanyName string `json:"companyName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON", "")
		return
	}
	if body.EditPrompt == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION", "editPrompt is required", "")
		return
	}

	// Pre-stream failures (bad URL, missing credential) are still plain
	// HTTP errors; once the stream is open every failure becomes a
	// terminal event instead.
	emitter := &lazyEmitter{open: func() *sseEmitter { return newSSEEmitter(w, s.logger) }}

	// The edit runs to completion even if the SSE peer drops; request
	// cancellation must only silence the stream, not abandon an edit that
	// may already have regenerated files. The deadline bounds the detached
	// work instead.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), editTimeout)
	defer cancel()

	if err := s.editor.ApplyEdit(ctx, body.RepoURL, body.EditPrompt, emitter); err != nil {
		s.writeTaxonomyError(w, err)
	}
}

// editTimeout bounds a single edit end to end, covering every model call
// and the commit.
const editTimeout = 10 * time.Minute

// lazyEmitter defers SSE header commitment until the first event, so
// validation failures inside ApplyEdit can still surface as HTTP errors.
type lazyEmitter struct {
	open func() *sseEmitter
	e    *sseEmitter
}

func (l *lazyEmitter) emitter() *sseEmitter {
	if l.e == nil {
		l.e = l.open()
	}
	return l.e
}

func (l *lazyEmitter) Progress(message string, percentage int) {
	l.emitter().Progress(message, percentage)
}

func (l *lazyEmitter) Succeed(message, commitSHA string) {
	l.emitter().Succeed(message, commitSHA)
}

func (l *lazyEmitter) Fail(code, message string) {
	l.emitter().Fail(code, message)
}

func (s *Server) handleListSites(w http.ResponseWriter, r *http.Request) {
	if s.sites == nil {
		writeJSON(w, http.StatusOK, []store.SiteRecord{})
		return
	}
	records, err := s.sites.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "STORE_FAILED", "could not list sites", "")
		return
	}
	if records == nil {
		records = []store.SiteRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// writeTaxonomyError is the single place internal errors become wire
// format. Lower layers attach status codes and upstream fragments; this
// maps them to {error, details, code}.
func (s *Server) writeTaxonomyError(w http.ResponseWriter, err error) {
	var (
		validation *site.ValidationError
		configErr  *site.ConfigurationError
		genErr     *site.GenerationError
		conflict   *site.NameConflictError
		authErr    *site.AuthenticationError
		pubErr     *site.PublishError
	)

	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, "VALIDATION", validation.Error(), "")
	case errors.As(err, &configErr):
		writeError(w, http.StatusServiceUnavailable, "NOT_CONFIGURED", configErr.Error(), "set the credential and restart")
	case errors.As(err, &conflict):
		writeError(w, http.StatusConflict, "NAME_CONFLICT", conflict.Error(), "")
	case errors.As(err, &authErr):
		writeError(w, http.StatusBadGateway, "AUTH_REJECTED", authErr.Error(), "")
	case errors.As(err, &genErr):
		writeError(w, http.StatusBadGateway, "GENERATION_FAILED", genErr.Error(), "")
	case errors.As(err, &pubErr):
		writeError(w, http.StatusBadGateway, "PUBLISH_FAILED", pubErr.Error(), "")
	default:
		s.logger.Error("unclassified pipeline error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	data, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, `{"error":"internal encoding error"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, code, message, details string) {
	body := map[string]string{
		"error": message,
		"code":  code,
	}
	if details != "" {
		body["details"] = details
	}
	writeJSON(w, status, body)
}
