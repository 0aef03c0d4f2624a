// Package server exposes the metadata API over HTTP: asset lookups, lineage
// traversals, gold projections, and snapshot/refresh administration.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/metalake-labs/mdlh/internal/lineage"
	"github.com/metalake-labs/mdlh/internal/refresh"
	"github.com/metalake-labs/mdlh/internal/views"
	"github.com/metalake-labs/mdlh/pkg/meta"
)

// Server is the metadata API server.
type Server struct {
	store    meta.Store
	lineage  *lineage.Service
	views    *views.Service
	runner   *refresh.Runner
	host     string
	port     int
	interval time.Duration
	maxDepth int
	logger   *slog.Logger
}

// Config holds configuration for the API server.
type Config struct {
	Store   meta.Store
	Lineage *lineage.Service
	Views   *views.Service
	// Runner is optional; when nil, POST /api/refresh is disabled.
	Runner *refresh.Runner
	Host   string
	Port   int
	// RefreshInterval enables the periodic refresh ticker when positive.
	RefreshInterval time.Duration
	// MaxDepth caps the depth parameter of lineage queries.
	MaxDepth int
	Logger   *slog.Logger
}

// NewServer creates a new API server instance.
func NewServer(cfg Config) *Server {
	maxDepth := cfg.MaxDepth
	if maxDepth <= 0 {
		maxDepth = lineage.DefaultMaxDepth
	}
	return &Server{
		store:    cfg.Store,
		lineage:  cfg.Lineage,
		views:    cfg.Views,
		runner:   cfg.Runner,
		host:     cfg.Host,
		port:     cfg.Port,
		interval: cfg.RefreshInterval,
		maxDepth: maxDepth,
		logger:   cfg.Logger,
	}
}

// Routes builds the chi router with all API routes mounted.
func (s *Server) Routes() chi.Router {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/assets", s.handleListAssets)
		r.Get("/assets/{guid}", s.handleGetAsset)
		r.Get("/lineage/{guid}", s.handleLineage)
		r.Get("/views", s.handleListViews)
		r.Get("/views/{name}", s.handleView)
		r.Get("/snapshots", s.handleListSnapshots)
		r.Get("/snapshots/current", s.handleCurrentSnapshot)
		r.Get("/runs", s.handleListRuns)
		r.Post("/refresh", s.handleRefresh)
	})

	return r
}

// Serve starts the API server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	s.logger.Info("starting API server", "addr", fmt.Sprintf("http://%s", addr))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Routes(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Periodic refresh ticker if configured
	if s.runner != nil && s.interval > 0 {
		eg.Go(func() error {
			err := s.runner.RunEvery(egctx, s.interval)
			if err == context.Canceled {
				return nil
			}
			return err
		})
	}

	// HTTP server
	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down API server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
