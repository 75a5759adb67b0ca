// Package api exposes the search orchestrator over HTTP: /api/search,
// /api/suggestions, /api/related, /api/stats/cache, /api/info/index and a
// health check.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/larsson/sokmotor/pkg/analytics"
	"github.com/larsson/sokmotor/pkg/cache"
	"github.com/larsson/sokmotor/pkg/core"
	"github.com/larsson/sokmotor/pkg/index"
)

const (
	defaultTimeout  = 5 * time.Second
	shutdownTimeout = 10 * time.Second
)

// API is the HTTP server exposing the search orchestrator.
type API struct {
	svc       Service
	config    Config
	startedAt time.Time
}

// Config holds the HTTP server configuration.
type Config struct {
	Listen  string `mapstructure:"listen"`
	Version string `mapstructure:"-"`
}

// Service is the orchestrator surface the API handlers depend on; satisfied
// by *core.Orchestrator.
type Service interface {
	Search(rawQuery string, limit, offset int, strategy core.Strategy, now time.Time) (*core.ResultSet, error)
	Suggestions(prefix string, limit int) ([]string, error)
	Related(id index.PageID, limit int) ([]string, error)
	CacheStats() cache.Stats
	AnalyticsSnapshot() analytics.Snapshot
	IndexStats() index.Stats
}

// New creates an API instance bound to svc. It requires a listen address.
func New(cfg Config, svc Service) (*API, error) {
	if cfg.Listen == "" {
		return nil, fmt.Errorf("listen address must be specified")
	}

	return &API{config: cfg, svc: svc, startedAt: time.Now()}, nil
}

// Run starts the HTTP server and blocks until ctx is canceled, at which
// point in-flight requests are given a grace period to complete before the
// server is forcefully closed.
func (a *API) Run(ctx context.Context) error {
	s := &http.Server{
		Addr:              a.config.Listen,
		ReadHeaderTimeout: defaultTimeout,
		WriteTimeout:      defaultTimeout,
		Handler:           a.newMux(),
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		slog.WarnContext(ctx, "shutting down API server")

		if err := s.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(ctx, "graceful shutdown failed, forcing close", "error", err)

			if closeErr := s.Close(); closeErr != nil {
				slog.ErrorContext(ctx, "forced close failed", "error", closeErr)
			}
		}
	}()

	if err := s.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}

	return nil
}
