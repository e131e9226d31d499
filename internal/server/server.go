// Package server provides the HTTP chat API for kotae.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/session"
	"github.com/hyperjump/kotae/pkg/utils"
)

// requestTimeout bounds one request. Ingesting a large document through the
// embeddings API is the slow path.
const requestTimeout = 5 * time.Minute

// Server is the HTTP server for the kotae API.
type Server struct {
	sessions  *session.Manager
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
	startedAt time.Time
}

// NewServer creates a server with the given dependencies.
func NewServer(sessions *session.Manager, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		sessions:  sessions,
		config:    cfg,
		logger:    utils.OrNop(logger),
		startedAt: time.Now(),
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	metrics.Register()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.config.Debug {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(middleware.Timeout(requestTimeout))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Get("/", s.handleListSessions)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleCloseSession)
				r.Post("/upload", s.handleUpload)
				r.Post("/messages", s.handleMessage)
				r.With(middleware.Compress(5)).Get("/segments", s.handleSegments)
			})
		})
	})
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server and closes every session.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	if cerr := s.sessions.CloseAll(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
