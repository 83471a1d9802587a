package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/five82/heapdiff/internal/app"
	"github.com/five82/heapdiff/internal/config"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	var (
		flags     globalFlags
		prefsPath string
	)

	root := &cobra.Command{
		Use:   "heapdiff",
		Short: "Compare heap snapshots and browse what grew.",
		Long: `heapdiff lists heap snapshots and shows the delta census between any two of them.

  Run without a subcommand to open the interactive panel. Use 'heapdiff worker' to serve snapshots over HTTP and 'heapdiff diff' to print a delta census without the panel.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			// The panel owns the terminal, so logs always go to a file.
			log, closeLog, err := newFileLogger(cfg)
			if err != nil {
				return err
			}
			defer closeLog()

			return app.Run(cmd.Context(), app.Options{
				Config:    cfg,
				PrefsPath: prefsPath,
				Log:       log,
			})
		},
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default ~/.config/heapdiff/config.toml)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override log_level from the config file")
	root.Flags().StringVar(&prefsPath, "prefs", "", "preferences file (default ~/.config/heapdiff/prefs.toml)")

	root.AddCommand(newWorkerCmd(&flags), newDiffCmd(&flags))
	return root
}

func loadConfig(flags globalFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if flags.logLevel != "" {
		level, err := logrus.ParseLevel(flags.logLevel)
		if err != nil {
			return config.Config{}, fmt.Errorf("--log-level: %w", err)
		}
		cfg.LogLevel = level
	}
	return cfg, nil
}

func newFileLogger(cfg config.Config) (*logrus.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	log := newLogger(file, cfg.LogLevel)
	log.SetFormatter(&logrus.JSONFormatter{})
	return log, func() { _ = file.Close() }, nil
}

func newLogger(out io.Writer, level logrus.Level) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
	return log
}
