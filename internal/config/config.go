package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
)

// Config captures everything heapdiff reads from config.toml.
type Config struct {
	SnapshotDir     string
	WorkerAddr      string
	Listen          string
	LogLevel        logrus.Level
	LogFile         string
	PollInterval    time.Duration
	MaxStaleRetries int
	Metrics         bool
}

const (
	defaultConfigPath   = "~/.config/heapdiff/config.toml"
	defaultSnapshotDir  = "~/.local/share/heapdiff/snapshots"
	defaultLogFile      = "~/.local/state/heapdiff/heapdiff.log"
	defaultListen       = "127.0.0.1:7490"
	defaultLogLevel     = logrus.InfoLevel
	defaultPollInterval = 2 * time.Second
	minPollInterval     = 100 * time.Millisecond
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		SnapshotDir:  mustExpand(defaultSnapshotDir),
		Listen:       defaultListen,
		LogLevel:     defaultLogLevel,
		LogFile:      mustExpand(defaultLogFile),
		PollInterval: defaultPollInterval,
	}
}

// Load locates and parses the heapdiff config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		SnapshotDir     string `toml:"snapshot_dir"`
		WorkerAddr      string `toml:"worker_addr"`
		Listen          string `toml:"listen"`
		LogLevel        string `toml:"log_level"`
		LogFile         string `toml:"log_file"`
		PollInterval    string `toml:"poll_interval"`
		MaxStaleRetries int    `toml:"max_stale_retries"`
		Metrics         bool   `toml:"metrics"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if dir := strings.TrimSpace(raw.SnapshotDir); dir != "" {
		cfg.SnapshotDir = mustExpand(dir)
	}
	cfg.WorkerAddr = strings.TrimSpace(raw.WorkerAddr)
	if listen := strings.TrimSpace(raw.Listen); listen != "" {
		cfg.Listen = listen
	}
	if level := strings.TrimSpace(raw.LogLevel); level != "" {
		parsed, err := logrus.ParseLevel(level)
		if err != nil {
			return Config{}, fmt.Errorf("parse config: log_level: %w", err)
		}
		cfg.LogLevel = parsed
	}
	if logFile := strings.TrimSpace(raw.LogFile); logFile != "" {
		cfg.LogFile = mustExpand(logFile)
	}
	if interval := strings.TrimSpace(raw.PollInterval); interval != "" {
		parsed, err := time.ParseDuration(interval)
		if err != nil {
			return Config{}, fmt.Errorf("parse config: poll_interval: %w", err)
		}
		if parsed < minPollInterval {
			parsed = minPollInterval
		}
		cfg.PollInterval = parsed
	}
	if raw.MaxStaleRetries < 0 {
		return Config{}, fmt.Errorf("parse config: max_stale_retries must not be negative")
	}
	cfg.MaxStaleRetries = raw.MaxStaleRetries
	cfg.Metrics = raw.Metrics

	return cfg, nil
}

// RemoteWorker reports whether diffs are computed by a separate worker
// process rather than in-process.
func (c Config) RemoteWorker() bool {
	return strings.TrimSpace(c.WorkerAddr) != ""
}

// DefaultPath returns the expanded default config location.
func DefaultPath() string {
	return mustExpand(defaultConfigPath)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

// ExpandPath expands a leading ~ and makes path absolute.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
