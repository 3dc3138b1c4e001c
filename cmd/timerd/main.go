package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/coreboxmedia/timerd/config"
	"github.com/coreboxmedia/timerd/internal/clock"
	"github.com/coreboxmedia/timerd/internal/health"
	ctxlog "github.com/coreboxmedia/timerd/internal/log"
	"github.com/coreboxmedia/timerd/internal/metrics"
	"github.com/coreboxmedia/timerd/internal/rescan"
	"github.com/coreboxmedia/timerd/internal/sched"
	"github.com/coreboxmedia/timerd/internal/storage"
	httptransport "github.com/coreboxmedia/timerd/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	var dbPinger health.Pinger
	var librariesFn httptransport.LibrariesFunc
	if cfg.DatabaseURL != "" {
		pool, err := storage.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			stop()
			log.Fatalf("db: %v", err)
		}
		defer pool.Close()

		if err := storage.Migrate(ctx, pool); err != nil {
			stop()
			log.Fatalf("migrate: %v", err)
		}

		registry := storage.NewRegistry(pool)
		for _, folder := range cfg.VirtualLibraryFolders {
			if err := registry.Register(ctx, filepath.Base(folder), folder); err != nil {
				logger.Error("register virtual library", "folder", folder, "error", err)
			}
		}

		dbPinger = pool
		librariesFn = registry.List
		logger.Info("storage connected", "virtual_libraries", len(cfg.VirtualLibraryFolders))
	} else {
		logger.Info("storage disabled, DATABASE_URL not set")
	}

	metrics.Register()
	checker := health.NewChecker(dbPinger, logger, prometheus.DefaultRegisterer)

	realClock := clock.Real{}
	scheduler := sched.New(
		realClock,
		sched.WithLogger(logger),
		sched.WithRecorder(metrics.NewRecorder()),
		sched.WithNormalQueueCap(cfg.NormalQueueCap),
	)

	if cfg.RescanCron != "" {
		scanner, err := rescan.New(cfg.RescanCron, func() {
			logger.Info("virtual library rescan triggered")
		}, logger)
		if err != nil {
			stop()
			log.Fatalf("rescan: %v", err)
		}
		if err := scanner.Start(scheduler, realClock.Now()); err != nil {
			stop()
			log.Fatalf("rescan start: %v", err)
		}
	}

	snapshotReqs := make(chan chan []sched.PendingRecord)
	go runEventLoop(ctx, scheduler, realClock, logger, snapshotReqs)

	router := httptransport.NewRouter(logger, snapshotFunc(snapshotReqs), librariesFn, checker)
	httpSrv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		logger.Info("http server started", "port", cfg.Port)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", "error", err)
		}
	}()

	metricsSrv := metrics.NewServer(":" + cfg.MetricsPort)
	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}

	logger.Info("timerd shut down")
}

// runEventLoop is the host event loop the scheduler contract assumes:
// it blocks until the next due record (or idleWait, whichever is
// sooner) and calls Pump exactly once each time that wait elapses,
// whether or not anything fired. A wake-up for a snapshot request (see
// below) does not call Pump. A real slimserver-style host would
// block on select()/epoll here instead of a bare timer; timerd has no
// other I/O to multiplex, so the timer wait stands in for it.
//
// snapshotReqs lets the HTTP layer read Scheduler.ListPending() without
// calling the unsynchronized Scheduler from its own goroutine: a
// request arrives as a response channel, which this, the Scheduler's
// sole caller, services inline and writes the snapshot back to.
func runEventLoop(ctx context.Context, s *sched.Scheduler, clk clock.Clock, logger *slog.Logger, snapshotReqs <-chan chan []sched.PendingRecord) {
	const idleWait = time.Second

	for {
		now := clk.Now()
		wait, ok := s.TimeUntilNext(now)
		if !ok || wait > idleWait {
			wait = idleWait
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("event loop shut down")
			return
		case resp := <-snapshotReqs:
			timer.Stop()
			resp <- s.ListPending()
			continue
		case <-timer.C:
		}

		s.Pump(clk.Now())
	}
}

// snapshotFunc adapts snapshotReqs into an httptransport.SnapshotFunc.
func snapshotFunc(snapshotReqs chan chan []sched.PendingRecord) httptransport.SnapshotFunc {
	return func(ctx context.Context) ([]sched.PendingRecord, error) {
		resp := make(chan []sched.PendingRecord, 1)
		select {
		case snapshotReqs <- resp:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		select {
		case pending := <-resp:
			return pending, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
