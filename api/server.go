// Package api exposes the course Q&A system over HTTP.
//
// Endpoints:
//
//	POST   /api/query          answer a question (optionally within a session)
//	GET    /api/courses        catalog analytics
//	POST   /api/sessions       create a conversation session
//	DELETE /api/sessions/{id}  clear a session
//	GET    /health             liveness probe
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/lectern/lectern/internal/chat"
	"github.com/lectern/lectern/internal/rag"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8000"

	// ShutdownTimeout caps graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout guards against Slowloris-style clients.
	ReadHeaderTimeout = 10 * time.Second

	ReadTimeout = 30 * time.Second

	// WriteTimeout must cover a full multi-round answer, which can take
	// several model calls.
	WriteTimeout = 120 * time.Second

	IdleTimeout = 120 * time.Second
)

// QueryService is the application surface the API serves. Satisfied by
// *rag.System.
type QueryService interface {
	Query(ctx context.Context, query, sessionID string) (*chat.Response, error)
	CreateSession() string
	ClearSession(id string)
	CourseAnalytics(ctx context.Context) (rag.Analytics, error)
}

// Server is the HTTP server for the REST API.
type Server struct {
	mux    *http.ServeMux
	svc    QueryService
	logger *slog.Logger
}

// NewServer creates a server with all routes registered.
func NewServer(svc QueryService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mux:    http.NewServeMux(),
		svc:    svc,
		logger: logger,
	}

	s.mux.HandleFunc("POST /api/query", s.handleQuery)
	s.mux.HandleFunc("GET /api/courses", s.handleCourses)
	s.mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	s.mux.HandleFunc("DELETE /api/sessions/{id}", s.handleClearSession)
	s.mux.HandleFunc("GET /health", s.handleHealth)

	return s
}

// Handler returns the handler with middleware applied.
// Middleware order: recovery, then logging, then routes.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger))
}

// Run starts the server and blocks until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
