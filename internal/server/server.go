// Package server exposes sprite editing sessions over HTTP.
//
// The API is the boundary to a browser UI: the UI uploads layer files,
// sends reorder and visibility requests, and polls the current animation
// frame and cell preview. All state lives in in-memory sessions.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/matzehuels/spritestack/pkg/pipeline"
	"github.com/matzehuels/spritestack/pkg/session"
)

// Default limits.
const (
	DefaultRate          = 20 // requests per second per client
	DefaultBurst         = 40
	DefaultMaxUploadSize = 32 << 20
	DefaultCleanup       = 5 * time.Minute
)

// Config configures a Server.
type Config struct {
	Runner   *pipeline.Runner
	Sessions session.Store
	Logger   *log.Logger

	// Defaults seeds new sessions' options.
	Defaults pipeline.Options

	Rate          rate.Limit
	Burst         int
	MaxUploadSize int64
}

// Server is the HTTP API.
type Server struct {
	runner   *pipeline.Runner
	sessions session.Store
	logger   *log.Logger
	defaults pipeline.Options
	limiter  *clientLimiter
	maxBody  int64
	router   chi.Router
}

// New creates a server. Zero config fields take defaults.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	if cfg.Runner == nil {
		cfg.Runner = pipeline.NewRunner(nil, nil, nil, cfg.Logger)
	}
	if cfg.Sessions == nil {
		cfg.Sessions = session.NewMemoryStore(session.DefaultTTL)
	}
	if cfg.Rate == 0 {
		cfg.Rate = DefaultRate
	}
	if cfg.Burst == 0 {
		cfg.Burst = DefaultBurst
	}
	if cfg.MaxUploadSize == 0 {
		cfg.MaxUploadSize = DefaultMaxUploadSize
	}

	s := &Server{
		runner:   cfg.Runner,
		sessions: cfg.Sessions,
		logger:   cfg.Logger,
		defaults: cfg.Defaults,
		limiter:  newClientLimiter(cfg.Rate, cfg.Burst),
		maxBody:  cfg.MaxUploadSize,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)
	r.Use(s.rateLimit)

	r.Get("/healthz", s.handleHealth)
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Use(s.withSession)
			r.Delete("/", s.handleDeleteSession)

			r.Get("/layers", s.handleListLayers)
			r.Post("/layers", s.handleUpload)
			r.Post("/layers/move", s.handleMove)
			r.Put("/layers/{name}/visibility", s.handleVisibility)
			r.Post("/randomize", s.handleRandomize)

			r.Get("/config", s.handleGetConfig)
			r.Put("/config", s.handlePutConfig)

			r.Get("/frame", s.handleFrame)
			r.Get("/preview.png", s.handlePreview)
			r.Get("/export", s.handleExport)
		})
	})
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully. Expired sessions are cleaned up periodically.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if ms, ok := s.sessions.(*session.MemoryStore); ok {
		go ms.RunCleanup(ctx, DefaultCleanup)
	}
	go s.limiter.runCleanup(ctx, DefaultCleanup)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
