// Package prefs handles heapdiff user preferences persistence.
// Preferences are stored in ~/.config/heapdiff/prefs.toml.
package prefs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/heapdiff/internal/census"
)

// Prefs holds user preferences for heapdiff.
type Prefs struct {
	Theme     string `toml:"theme"`
	Breakdown string `toml:"breakdown"`
	Inverted  bool   `toml:"inverted"`
}

const (
	defaultPrefsPath = "~/.config/heapdiff/prefs.toml"
	defaultTheme     = "Dracula"
)

// Defaults returns the preferences used when nothing is saved.
func Defaults() Prefs {
	return Prefs{Theme: defaultTheme, Breakdown: string(census.DefaultDisplay().Breakdown)}
}

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Display returns the census display the preferences describe.
func (p Prefs) Display() census.Display {
	b, err := census.ParseBreakdown(p.Breakdown)
	if err != nil {
		b = census.DefaultDisplay().Breakdown
	}
	return census.Display{Breakdown: b, Inverted: p.Inverted}
}

// WithDisplay returns a copy of p recording display.
func (p Prefs) WithDisplay(display census.Display) Prefs {
	p.Breakdown = string(display.Breakdown)
	p.Inverted = display.Inverted
	return p
}

// Load reads preferences from the given path, falling back to defaults if missing.
func Load(path string) (Prefs, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Defaults(), nil
	}

	prefs := Defaults()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return prefs, nil
		}
		return prefs, nil // Graceful degradation
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return prefs, nil // Graceful degradation
	}

	if err := toml.Unmarshal(bytes, &prefs); err != nil {
		return Defaults(), nil // Graceful degradation
	}

	if strings.TrimSpace(prefs.Theme) == "" {
		prefs.Theme = defaultTheme
	}
	if _, err := census.ParseBreakdown(strings.TrimSpace(prefs.Breakdown)); err != nil {
		prefs.Breakdown = Defaults().Breakdown
	}

	return prefs, nil
}

// Save writes preferences to the given path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	bytes, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(resolved, bytes, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}

	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPrefsPath)
	}
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
