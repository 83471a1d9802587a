package logtail

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Entry is one parsed log line.
type Entry struct {
	Time    time.Time
	Level   logrus.Level
	Message string
	Fields  map[string]any
	// Raw holds the line as written when it was not a JSON log record.
	Raw string
}

// Read returns the last maxLines entries of the log at path, oldest first.
// A missing file is not an error. maxLines <= 0 reads the whole file.
func Read(path string, maxLines int) ([]Entry, error) {
	lines, err := tail(path, maxLines)
	if err != nil {
		return nil, err
	}
	if lines == nil {
		return nil, nil
	}
	entries := make([]Entry, len(lines))
	for i, line := range lines {
		entries[i] = Parse(line)
	}
	return entries, nil
}

func tail(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Parse decodes a logrus JSON record. Anything else is kept as Raw at info
// level.
func Parse(line string) Entry {
	var record map[string]any
	if !strings.HasPrefix(strings.TrimSpace(line), "{") || json.Unmarshal([]byte(line), &record) != nil {
		return Entry{Level: logrus.InfoLevel, Raw: line}
	}

	e := Entry{Level: logrus.InfoLevel, Fields: map[string]any{}}
	for k, v := range record {
		switch k {
		case logrus.FieldKeyMsg:
			e.Message, _ = v.(string)
		case logrus.FieldKeyLevel:
			if s, ok := v.(string); ok {
				if lvl, err := logrus.ParseLevel(s); err == nil {
					e.Level = lvl
				}
			}
		case logrus.FieldKeyTime:
			if s, ok := v.(string); ok {
				e.Time, _ = time.Parse(time.RFC3339, s)
			}
		default:
			e.Fields[k] = v
		}
	}
	return e
}

// String renders the entry on one line: time, level, message, then fields
// sorted by key.
func (e Entry) String() string {
	if e.Raw != "" || (e.Message == "" && len(e.Fields) == 0) {
		return e.Raw
	}
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Format("15:04:05"))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s %s", strings.ToUpper(levelName(e.Level)), e.Message)
	for _, k := range slices.Sorted(maps.Keys(e.Fields)) {
		fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
	}
	return b.String()
}

func levelName(l logrus.Level) string {
	if l == logrus.WarnLevel {
		return "warn"
	}
	return l.String()
}
