package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bidplus-harvester/internal/config"
	"bidplus-harvester/internal/metrics"
	"bidplus-harvester/internal/store"
)

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run harvest sweeps on a schedule and serve metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			d, err := buildDeps(cfg, log)
			if err != nil {
				return err
			}
			defer d.Close(log)

			return watch(cmd.Context(), cfg, d, log)
		},
	}
	config.RegisterFlags(cmd.Flags())
	config.RegisterWatchFlags(cmd.Flags())
	return cmd
}

func watch(ctx context.Context, cfg config.Config, d *deps, log *zap.Logger) error {
	var (
		mu      sync.Mutex
		running atomic.Bool
	)
	sweep := func() {
		if !mu.TryLock() {
			log.Info("previous run still in progress, skipping")
			return
		}
		defer mu.Unlock()
		running.Store(true)
		defer running.Store(false)
		if _, err := d.pipeline.Run(ctx); err != nil {
			log.Error("scheduled run failed", zap.Error(err))
		}
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	cl := cronLogger{log.Sugar()}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(cfg.Schedule, sweep); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newStatusMux(d.metrics, d.reports, &running),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("status server listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("status server error", zap.Error(err))
		}
	}()

	c.Start()
	log.Info("scheduler started", zap.String("schedule", cfg.Schedule))
	go sweep()

	<-ctx.Done()
	log.Info("shutting down")
	stopped := c.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("status server shutdown error", zap.Error(err))
	}
	<-stopped.Done()

	// Wait out the startup sweep, which cron does not track.
	mu.Lock()
	defer mu.Unlock()
	return nil
}

func newStatusMux(m *metrics.Metrics, reports store.ReportStore, running *atomic.Bool) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"status": "ok", "running": running.Load()}, http.StatusOK)
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		report, ok, err := reports.GetReport(r.Context())
		if err != nil {
			http.Error(w, "failed to load status", http.StatusBadGateway)
			return
		}
		if !ok {
			http.Error(w, "no completed run yet", http.StatusNotFound)
			return
		}
		writeJSON(w, report, http.StatusOK)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// cronLogger routes cron's logging through zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
