// Package api provides the HTTP surface for ChaosSynth.
//
// It exposes RESTful endpoints for chat turns, risk predictions, suggestion
// retrieval, profile management, feedback recording, and session resets.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/chaossynth/chaossynth/internal/flow"
)

// DefaultShutdownTimeout bounds graceful shutdown.
const DefaultShutdownTimeout = 10 * time.Second

// Server wires the turn engine to HTTP handlers.
type Server struct {
	engine *flow.Engine
}

// NewServer creates a server over the given engine.
func NewServer(engine *flow.Engine) *Server {
	return &Server{engine: engine}
}

// Handler builds the router with the standard middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Post("/message", s.messageHandler)
		r.Get("/predictions", s.predictionsHandler)
		r.Get("/suggestions", s.suggestionsHandler)
		r.Post("/profile", s.saveProfileHandler)
		r.Get("/profile", s.getProfileHandler)
		r.Post("/feedback", s.feedbackHandler)
		r.Post("/memory/consolidate", s.consolidateMemoryHandler)
		r.Post("/session/reset", s.resetSessionHandler)
	})

	return r
}

// Run serves HTTP on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		slog.Info("API server stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
