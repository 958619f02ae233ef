package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/gladston3/cf-reporting/internal/alerts"
	"github.com/gladston3/cf-reporting/internal/config"
	"github.com/gladston3/cf-reporting/internal/geo"
	"github.com/gladston3/cf-reporting/internal/metrics"
	"github.com/gladston3/cf-reporting/internal/reports"
	"github.com/gladston3/cf-reporting/internal/server"
	"github.com/gladston3/cf-reporting/internal/sse"
	"github.com/gladston3/cf-reporting/internal/storage"
	"github.com/gladston3/cf-reporting/internal/version"
)

const (
	cleanupInterval = 12 * time.Hour
	shutdownTimeout = 5 * time.Second
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the report HTTP service",
		Long: `Run the HTTP service.

Endpoints:
  GET  /health                  liveness and history database status
  GET  /api/templates           available report templates
  POST /api/reports/generate    generate a report, returns HTML
  GET  /api/reports/history     recent generations (?limit=N&zone=ID)
  GET  /api/reports/stats       per-template totals (?range=720h)
  GET  /api/reports/events      live generation events (SSE)
  GET  /api/status              history size, subscribers, geo cache
  GET  /api/alerts              alert rules and recently fired alerts
  GET  /metrics                 Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *cfg)
		},
	}
}

func runServe(ctx context.Context, cfg config.Config) error {
	var store *storage.Storage
	if cfg.HistoryEnabled() {
		s, err := storage.NewWithOptions(cfg.DBPath, storage.Options{QueryTimeout: cfg.DBQueryTimeout})
		if err != nil {
			return fmt.Errorf("open history database: %w", err)
		}
		defer s.Close()
		store = s
	} else {
		slog.Info("generation history disabled")
	}

	locator, err := geo.Open(cfg.MaxMindDBPath, geo.DefaultCacheConfig())
	if err != nil {
		slog.Warn("geo lookup disabled", "error", err)
	}
	defer locator.Close()

	hub := sse.NewHub()
	m := metrics.New(hub.ClientCount, dbSizeProvider(store), dbStatsProvider(store), geoStatsProvider(locator))
	if err := m.Register(); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	hub.SetDroppedCounter(m)

	opts := []server.Option{server.WithMetrics(m), server.WithGeo(locator)}
	if mgr := newAlertManager(alerts.LoadConfig(), store, hub, m); mgr != nil {
		mgr.Start(ctx)
		defer mgr.Stop()
		opts = append(opts, server.WithAlerts(mgr))
	}

	gen := reports.NewGenerator(newRegistry(cfg), newFetcherFactory(cfg, m))
	srv := server.New(gen, store, hub, cfg, opts...)
	defer srv.Close()

	if store != nil && cfg.HistoryRetention() > 0 {
		go runCleanup(ctx, store, cfg.HistoryRetention())
	}

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cfg.ListenAddr, "version", version.Version)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// SSE streams only end when their subscription closes
	hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("shutdown incomplete", "error", err)
	}
	slog.Info("shutdown complete")
	return nil
}

// newAlertManager returns nil when alerting is off or there is no history to
// evaluate rules against.
func newAlertManager(cfg alerts.Config, store *storage.Storage, hub *sse.Hub, m *metrics.Metrics) *alerts.Manager {
	if !cfg.Enabled {
		return nil
	}
	if store == nil {
		slog.Warn("alerting needs generation history, alerts disabled")
		return nil
	}
	return alerts.NewManager(cfg, storage.NewAlertStatsAdapter(store), alerts.WithOnFire(func(a alerts.Alert) {
		if m != nil {
			m.RecordAlert(string(a.Type), string(a.Severity))
		}
		if err := hub.PublishJSON(sse.EventAlert, a); err != nil {
			slog.Warn("failed to publish alert", "error", err)
		}
	}))
}

// runCleanup prunes history older than retention now and every cleanupInterval.
func runCleanup(ctx context.Context, store *storage.Storage, retention time.Duration) {
	cleanupHistory(ctx, store, retention, time.Now())

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			cleanupHistory(ctx, store, retention, now)
		}
	}
}

func cleanupHistory(ctx context.Context, store *storage.Storage, retention time.Duration, now time.Time) {
	n, err := store.DeleteGenerationsBefore(ctx, now.Add(-retention))
	if err != nil {
		slog.Error("history cleanup failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("history cleanup", "deleted", n)
	}
}

func dbSizeProvider(store *storage.Storage) func() int64 {
	if store == nil {
		return nil
	}
	return func() int64 {
		size, err := store.DBFileSize()
		if err != nil {
			return 0
		}
		return size
	}
}

func dbStatsProvider(store *storage.Storage) func() metrics.DBStats {
	if store == nil {
		return nil
	}
	return func() metrics.DBStats {
		n, err := store.CountGenerations(context.Background())
		if err != nil {
			slog.Debug("failed to count generations", "error", err)
		}
		return metrics.DBStats{Generations: n}
	}
}

func geoStatsProvider(locator *geo.Locator) func() *metrics.GeoCacheStats {
	return func() *metrics.GeoCacheStats {
		st, ok := locator.CacheStats()
		if !ok {
			return nil
		}
		return &metrics.GeoCacheStats{
			Size:     st.Size,
			Capacity: st.Capacity,
			Hits:     st.Hits,
			Misses:   st.Misses,
			Evicts:   st.Evicts,
			HitRate:  st.HitRate,
		}
	}
}
