// Package server provides the HTTP API for Aristotle.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/carlsnewton/aristotle/internal/config"
	"github.com/carlsnewton/aristotle/internal/cost"
	"github.com/carlsnewton/aristotle/internal/knowledge"
	"github.com/carlsnewton/aristotle/internal/retrieval"
	"github.com/carlsnewton/aristotle/internal/tutor"
)

// Version is the API version reported by the metadata endpoints.
const Version = "1.0.0"

// Server is the HTTP server for the Aristotle API.
type Server struct {
	tutor     *tutor.Tutor
	retriever *retrieval.Retriever
	store     *knowledge.Store
	tracker   *cost.Tracker
	config    *config.ServerConfig
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	tut *tutor.Tutor,
	retriever *retrieval.Retriever,
	store *knowledge.Store,
	tracker *cost.Tracker,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		tutor:     tut,
		retriever: retriever,
		store:     store,
		tracker:   tracker,
		config:    cfg,
		logger:    logger,
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	if s.config.CORSEnabledOrDefault() {
		r.Use(corsMiddleware(s.config.CORSOrigins))
	}

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Post("/ask", s.handleAsk)
	r.Get("/experiments/search", s.handleSearchExperiments)
	r.Get("/stats", s.handleStats)
	r.Get("/meta.json", s.handleMeta)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware serves the browser preflight for the show's web frontends.
func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(origins))
	wildcard := false
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
		allowed[o] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (wildcard || allowed[origin]) {
				if wildcard {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				} else {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Vary", "Origin")
				}
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
