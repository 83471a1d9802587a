package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/five82/heapdiff/internal/analysis"
	"github.com/five82/heapdiff/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

func newWorkerCmd(flags *globalFlags) *cobra.Command {
	var (
		listen string
		dir    string
	)

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Serve snapshots and delta censuses over HTTP",
		Long: `Serve the snapshots in snapshot_dir over HTTP.

  The panel uses a worker when worker_addr is set in the config. Metrics are exposed on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*flags)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}
			if dir != "" {
				cfg.SnapshotDir = dir
			}
			if err := os.MkdirAll(cfg.SnapshotDir, 0o755); err != nil {
				return fmt.Errorf("create snapshot dir: %w", err)
			}

			log := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			rec := telemetry.New()
			srv := analysis.NewServer(analysis.NewLocal(cfg.SnapshotDir, log), log, rec)
			srv.Handle("GET /metrics", rec.Handler())

			return serve(cmd.Context(), &http.Server{
				Addr:              cfg.Listen,
				Handler:           srv,
				ReadHeaderTimeout: 5 * time.Second,
			}, log.WithFields(logrus.Fields{"addr": cfg.Listen, "dir": cfg.SnapshotDir}))
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (default from config)")
	cmd.Flags().StringVar(&dir, "dir", "", "snapshot directory (default from config)")
	return cmd
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, log logrus.FieldLogger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("worker listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("worker: %w", err)
	case <-ctx.Done():
	}

	log.Info("worker shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
