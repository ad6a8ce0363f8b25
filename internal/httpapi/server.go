// Package httpapi exposes the engines to a UI process over loopback HTTP.
//
// Every response is a JSON envelope:
//
//	{"status": "ok", "data": ...}
//	{"status": "error", "error": {"code": "...", "message": "..."}}
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/scentbox/internal/recommend"
	"github.com/roach88/scentbox/internal/selection"
	"github.com/roach88/scentbox/internal/survey"
)

const defaultTimeout = 30 * time.Second

// Server routes requests to the survey, recommendation and selection
// engines.
type Server struct {
	survey    *survey.Engine
	loader    *recommend.Loader
	selection *selection.Engine
	logger    *slog.Logger
	timeout   time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithTimeout bounds each request. Defaults to 30s.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New creates a Server over the three engines.
func New(sv *survey.Engine, loader *recommend.Loader, sel *selection.Engine, opts ...Option) *Server {
	s := &Server{
		survey:    sv,
		loader:    loader,
		selection: sel,
		logger:    slog.Default(),
		timeout:   defaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(s.timeout),
		s.logRequests,
	)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" not allowed")
	})

	r.Route("/survey", func(r chi.Router) {
		r.Get("/", s.getSurvey)
		r.Delete("/", s.resetSurvey)
		r.Put("/answers/{key}", s.putAnswer)
		r.Post("/submit", s.submitSurvey)
		r.Get("/progress", s.getProgress)
		r.Put("/progress", s.putProgress)
	})
	r.Put("/auth", s.putAuth)

	r.Post("/recommendations", s.loadRecommendations)
	r.Get("/items/{id}", s.getItem)

	r.Route("/selection", func(r chi.Router) {
		r.Get("/", s.getSelection)
		r.Put("/count", s.putCount)
		r.Put("/price", s.putPrice)
		r.Put("/unit", s.putUnit)
		r.Post("/remove", s.removeItem)
		r.Post("/swap", s.swapItem)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
