package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ramshi122/crazy-time-predictor/internal/alerts"
	"github.com/ramshi122/crazy-time-predictor/internal/api"
	"github.com/ramshi122/crazy-time-predictor/internal/config"
	"github.com/ramshi122/crazy-time-predictor/internal/history"
	"github.com/ramshi122/crazy-time-predictor/internal/predictor"
	"github.com/ramshi122/crazy-time-predictor/internal/schedule"
	"github.com/ramshi122/crazy-time-predictor/internal/store"
	"github.com/ramshi122/crazy-time-predictor/internal/ws"
)

const (
	statusInterval = 5 * time.Second
	pruneInterval  = time.Hour
	shutdownGrace  = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, websocket stream and auto-predict scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		return serve(ctx, cfg)
	},
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := zap.L()
	log.Info("predictor starting",
		zap.Int("http_port", cfg.Server.HTTPPort),
		zap.String("auth_mode", cfg.Server.Auth.Mode),
		zap.String("storage", cfg.Storage.Backend),
		zap.Duration("interval", cfg.Schedule.Interval))

	c, err := newCore(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	rec, err := history.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer rec.Close()

	latest := store.New[*predictor.Round](0)
	go latest.Run(ctx)

	engine := alerts.New(cfg.Alerts)
	defer engine.Wait()

	// The hub reads status from the API handler, which is built after the
	// scheduler it reports on.
	var h *api.Handler
	hub := ws.New(func() any { return h.Status() }, statusInterval)

	runner := schedule.NewRunner(c.pred,
		func(_ context.Context, r *predictor.Round) { latest.Put(api.LatestKey, r) },
		func(ctx context.Context, r *predictor.Round) {
			if err := rec.Record(ctx, r); err != nil {
				log.Error("history: record failed", zap.String("round", r.ID), zap.Error(err))
			}
		},
		func(_ context.Context, r *predictor.Round) { hub.Publish(r) },
		func(_ context.Context, r *predictor.Round) { engine.Evaluate(r) },
		c.observe,
	)

	sched := schedule.New(cfg.Schedule, runner)
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	h = api.New(api.Deps{
		Server:    cfg.Server,
		Providers: cfg.Providers,
		Feed:      c.feed,
		Registry:  c.registry,
		Runner:    runner,
		Latest:    latest,
		Stats:     c.pred.Stats,
		Auto:      sched,
		History:   rec,
		Alerts:    engine,
		Metrics:   c.metrics.Handler(),
		Stream:    hub,
	})
	go hub.Run(ctx)

	if configPath != "" {
		go func() {
			err := config.Watch(ctx, configPath, func(next *config.Config) {
				setLevel(next.Log.Level)
				if next.Schedule.Enabled != sched.Enabled() {
					sched.Toggle()
				}
			})
			if err != nil {
				log.Error("config: watch stopped", zap.Error(err))
			}
		}()
	}

	if cfg.Storage.Retention > 0 {
		go prune(ctx, rec, cfg.Storage.Retention)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.Int("port", cfg.Server.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	log.Info("predictor shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// prune deletes rounds older than retention once per hour.
func prune(ctx context.Context, rec history.Recorder, retention time.Duration) {
	t := time.NewTicker(pruneInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := rec.Prune(ctx, now.Add(-retention))
			if err != nil {
				zap.L().Error("history: prune failed", zap.Error(err))
				continue
			}
			if n > 0 {
				zap.L().Info("history: pruned rounds", zap.Int64("count", n))
			}
		}
	}
}
