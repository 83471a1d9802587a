package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Listen != defaultListen {
		t.Fatalf("Listen = %q, want %q", cfg.Listen, defaultListen)
	}
	wantDir, err := expandPath(defaultSnapshotDir)
	if err != nil {
		t.Fatalf("expandPath(defaultSnapshotDir) returned error: %v", err)
	}
	if cfg.SnapshotDir != wantDir {
		t.Fatalf("SnapshotDir = %q, want %q", cfg.SnapshotDir, wantDir)
	}
	if cfg.LogLevel != logrus.InfoLevel {
		t.Fatalf("LogLevel = %v, want info", cfg.LogLevel)
	}
	if cfg.PollInterval != defaultPollInterval {
		t.Fatalf("PollInterval = %v, want %v", cfg.PollInterval, defaultPollInterval)
	}
	if cfg.RemoteWorker() {
		t.Fatalf("RemoteWorker = true, want in-process default")
	}
	if cfg.MaxStaleRetries != 0 || cfg.Metrics {
		t.Fatalf("MaxStaleRetries/Metrics = %d/%v, want 0/false", cfg.MaxStaleRetries, cfg.Metrics)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := writeConfig(t, `
snapshot_dir = "  ~/heap  "
worker_addr = " 10.0.0.5:9999 "
listen = "0.0.0.0:7000"
log_level = "debug"
log_file = "~/logs/heapdiff.log"
poll_interval = "500ms"
max_stale_retries = 3
metrics = true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.SnapshotDir != filepath.Join(home, "heap") {
		t.Fatalf("SnapshotDir = %q, want %q", cfg.SnapshotDir, filepath.Join(home, "heap"))
	}
	if cfg.WorkerAddr != "10.0.0.5:9999" || !cfg.RemoteWorker() {
		t.Fatalf("WorkerAddr = %q, want %q", cfg.WorkerAddr, "10.0.0.5:9999")
	}
	if cfg.Listen != "0.0.0.0:7000" {
		t.Fatalf("Listen = %q, want %q", cfg.Listen, "0.0.0.0:7000")
	}
	if cfg.LogLevel != logrus.DebugLevel {
		t.Fatalf("LogLevel = %v, want debug", cfg.LogLevel)
	}
	if !strings.HasPrefix(cfg.LogFile, home) {
		t.Fatalf("LogFile = %q, want it under HOME %q", cfg.LogFile, home)
	}
	if cfg.PollInterval != 500*time.Millisecond {
		t.Fatalf("PollInterval = %v, want 500ms", cfg.PollInterval)
	}
	if cfg.MaxStaleRetries != 3 || !cfg.Metrics {
		t.Fatalf("MaxStaleRetries/Metrics = %d/%v, want 3/true", cfg.MaxStaleRetries, cfg.Metrics)
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(writeConfig(t, `
listen = "   "
snapshot_dir = ""
log_level = ""
`))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Listen != defaultListen {
		t.Fatalf("Listen = %q, want %q", cfg.Listen, defaultListen)
	}
	wantDir, err := expandPath(defaultSnapshotDir)
	if err != nil {
		t.Fatalf("expandPath(defaultSnapshotDir) returned error: %v", err)
	}
	if cfg.SnapshotDir != wantDir {
		t.Fatalf("SnapshotDir = %q, want %q", cfg.SnapshotDir, wantDir)
	}
}

func TestLoad_ClampsPollInterval(t *testing.T) {
	cfg, err := Load(writeConfig(t, `poll_interval = "1ms"`))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.PollInterval != minPollInterval {
		t.Fatalf("PollInterval = %v, want %v", cfg.PollInterval, minPollInterval)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"invalid toml":      `listen = [`,
		"unknown log level": `log_level = "loud"`,
		"bad interval":      `poll_interval = "soon"`,
		"negative retries":  `max_stale_retries = -1`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			if err == nil {
				t.Fatalf("Load returned nil error, want error")
			}
			if !strings.Contains(err.Error(), "parse config") {
				t.Fatalf("Load error = %q, want it to mention parse config", err.Error())
			}
		})
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := ExpandPath("~/a/b")
	if err != nil {
		t.Fatalf("ExpandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("ExpandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}

func TestDefaultPath_UnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got := DefaultPath()
	if !strings.HasPrefix(got, home) || !strings.HasSuffix(got, filepath.FromSlash("/heapdiff/config.toml")) {
		t.Fatalf("DefaultPath = %q, want ~/.config/heapdiff/config.toml under %q", got, home)
	}
}
