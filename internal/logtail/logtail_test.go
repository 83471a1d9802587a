package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
)

func messages(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Raw
	}
	return out
}

func TestRead(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}
	if err := os.WriteFile(logPath, []byte(content.String()), 0o644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{"read all (0)", 0, expectedAll},
		{"read all (negative)", -1, expectedAll},
		{"read partial (5)", 5, expectedAll[5:]},
		{"read exactly all (10)", 10, expectedAll},
		{"read more than exists (20)", 20, expectedAll},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if diff := cmp.Diff(tt.expected, messages(got)); diff != "" {
				t.Errorf("Read() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "missing.log"), 10)
	if err != nil {
		t.Fatalf("Read() error = %v, want nil", err)
	}
	if got != nil {
		t.Fatalf("Read() = %v, want nil", got)
	}
}

func TestParse_LogrusJSON(t *testing.T) {
	var buf strings.Builder
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.WithFields(logrus.Fields{"component": "coordinator", "attempt": 2}).Warn("stale result dropped")

	e := Parse(strings.TrimSpace(buf.String()))
	if e.Raw != "" {
		t.Fatalf("Raw = %q, want empty", e.Raw)
	}
	if e.Level != logrus.WarnLevel {
		t.Fatalf("Level = %v, want warning", e.Level)
	}
	if e.Message != "stale result dropped" {
		t.Fatalf("Message = %q", e.Message)
	}
	if e.Time.IsZero() {
		t.Fatalf("Time is zero")
	}
	want := map[string]any{"component": "coordinator", "attempt": float64(2)}
	if diff := cmp.Diff(want, e.Fields); diff != "" {
		t.Fatalf("Fields mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_PlainText(t *testing.T) {
	for _, line := range []string{"plain text", "{not json", ""} {
		e := Parse(line)
		if e.Raw != line || e.Level != logrus.InfoLevel {
			t.Fatalf("Parse(%q) = %+v, want raw info entry", line, e)
		}
	}
}

func TestEntryString(t *testing.T) {
	e := Entry{
		Time:    time.Date(2026, 3, 1, 9, 30, 5, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "diff failed",
		Fields:  map[string]any{"second": "b", "first": "a"},
	}
	if got, want := e.String(), "09:30:05 WARN  diff failed first=a second=b"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}

	raw := Entry{Raw: "something odd"}
	if got := raw.String(); got != "something odd" {
		t.Fatalf("String() = %q, want raw line", got)
	}
}
