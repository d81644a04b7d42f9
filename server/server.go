// Package server serves stored investigations and metrics over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/always-cache/cache-investigator/report"
	"github.com/always-cache/cache-investigator/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Store store.Store
	// Gatherer backs /metrics. Nil means the default registry.
	Gatherer prometheus.Gatherer
	Logger   *zerolog.Logger
}

type Server struct {
	store store.Store
	log   zerolog.Logger
}

// New returns the router:
//
//	GET /runs               run listing (JSON)
//	GET /runs/{id}          report document (JSON)
//	GET /runs/{id}/report   report as text; ?format=markdown for markdown
//	GET /metrics            Prometheus metrics
func New(config Config) http.Handler {
	logger := log.Logger
	if config.Logger != nil {
		logger = *config.Logger
	}
	gatherer := config.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{store: config.Store, log: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Get("/runs", s.listRuns)
	r.Get("/runs/{id}", s.getRun)
	r.Get("/runs/{id}/report", s.getReport)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("Served request")
	})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.List()
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, runs)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(run.Report)
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookup(w, r)
	if !ok {
		return
	}
	doc, err := report.Parse(run.Report)
	if err != nil {
		s.fail(w, err)
		return
	}
	render := report.Text
	contentType := "text/plain; charset=utf-8"
	if r.URL.Query().Get("format") == "markdown" {
		render = report.MarkdownText
		contentType = "text/markdown; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	if err := render(w, doc); err != nil {
		s.log.Warn().Err(err).Str("run", run.ID).Msg("Could not write report")
	}
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (store.Run, bool) {
	id := chi.URLParam(r, "id")
	run, ok, err := s.store.Get(id)
	if err != nil {
		s.fail(w, err)
		return run, false
	}
	if !ok {
		http.Error(w, "run not found", http.StatusNotFound)
		return run, false
	}
	return run, true
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	s.log.Error().Err(err).Msg("Request failed")
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
