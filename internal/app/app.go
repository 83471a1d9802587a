package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/five82/heapdiff/internal/analysis"
	"github.com/five82/heapdiff/internal/config"
	"github.com/five82/heapdiff/internal/diffing"
	"github.com/five82/heapdiff/internal/prefs"
	"github.com/five82/heapdiff/internal/state"
	"github.com/five82/heapdiff/internal/telemetry"
	"github.com/five82/heapdiff/internal/ui"
	"github.com/five82/heapdiff/internal/viewparams"
)

const preflightTimeout = 3 * time.Second

// Options configure the heapdiff application.
type Options struct {
	Config    config.Config
	PrefsPath string // empty uses default ~/.config/heapdiff/prefs.toml
	Log       logrus.FieldLogger
}

// panel is the wired set of components behind the UI.
type panel struct {
	store       *state.Store
	worker      analysis.Worker
	coordinator *diffing.Coordinator
	params      *viewparams.Controller
	recorder    *telemetry.Recorder
}

// Run boots the heapdiff TUI until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	cfg := opts.Config

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		log.WithError(err).Warn("load prefs failed, using defaults")
	}

	worker, err := NewWorker(cfg, log)
	if err != nil {
		return err
	}
	if cfg.RemoteWorker() {
		if err := ensureWorkerAvailable(ctx, worker, cfg.WorkerAddr); err != nil {
			return err
		}
	}

	p := wire(cfg, worker, userPrefs, log)

	if cfg.Metrics {
		stop := serveMetrics(ctx, cfg.Listen, p.recorder.Handler(), log)
		defer stop()
	}

	// Populate the snapshot list before the UI draws its first frame.
	_ = refresh(ctx, p.store, worker, log.WithField("component", "poller"))
	StartPoller(ctx, p.store, worker, cfg.PollInterval, log)

	return ui.Run(ui.Options{
		Context:   ctx,
		Store:     p.store,
		Differ:    p.coordinator,
		Params:    p.params,
		Prefs:     userPrefs,
		PrefsPath: opts.PrefsPath,
		LogPath:   cfg.LogFile,
		Log:       log,
	})
}

// NewWorker returns the analysis worker cfg selects: an HTTP client when a
// worker address is configured, otherwise an in-process worker over the
// snapshot directory.
func NewWorker(cfg config.Config, log logrus.FieldLogger) (analysis.Worker, error) {
	if cfg.RemoteWorker() {
		client, err := analysis.NewClient(cfg.WorkerAddr)
		if err != nil {
			return nil, fmt.Errorf("init worker client: %w", err)
		}
		return client, nil
	}
	if err := os.MkdirAll(cfg.SnapshotDir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return analysis.NewLocal(cfg.SnapshotDir, log), nil
}

func wire(cfg config.Config, worker analysis.Worker, userPrefs prefs.Prefs, log logrus.FieldLogger) *panel {
	store := state.NewStore(state.State{
		View:    state.ViewCensus,
		Display: userPrefs.Display(),
	})
	store.Observe(func(a state.Action) {
		log.WithField("action", a.Type()).Debug("dispatch")
	})

	recorder := telemetry.New()
	coordinator := diffing.New(store, worker,
		diffing.WithLogger(log),
		diffing.WithTelemetry(recorder),
		diffing.WithMaxStaleRetries(cfg.MaxStaleRetries),
	)

	return &panel{
		store:       store,
		worker:      worker,
		coordinator: coordinator,
		params:      viewparams.New(store, coordinator, log),
		recorder:    recorder,
	}
}

// ensureWorkerAvailable fails fast when a remote worker is unreachable.
func ensureWorkerAvailable(ctx context.Context, lister analysis.Lister, addr string) error {
	checkCtx, cancel := context.WithTimeout(ctx, preflightTimeout)
	defer cancel()
	if _, err := lister.ListSnapshots(checkCtx); err != nil {
		return fmt.Errorf("worker not reachable at %s: %w", addr, err)
	}
	return nil
}

// serveMetrics exposes h on addr until ctx ends or the returned stop
// function is called. A listen failure is logged, not fatal.
func serveMetrics(ctx context.Context, addr string, h http.Handler, log logrus.FieldLogger) func() {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).WithField("addr", addr).Warn("metrics server stopped")
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}
