package analysis

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/five82/heapdiff/internal/census"
	"github.com/five82/heapdiff/internal/snapshot"
)

// Local is an in-process worker over a directory of snapshot files.
type Local struct {
	dir   string
	log   logrus.FieldLogger
	group singleflight.Group

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	state   snapshot.State
	modTime time.Time
	snap    *census.HeapSnapshot
	err     error
}

// NewLocal returns a worker serving snapshots under dir. An empty dir
// serves any path and lists nothing.
func NewLocal(dir string, log logrus.FieldLogger) *Local {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if dir != "" {
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
	}
	return &Local{
		dir:     dir,
		log:     log.WithField("component", "local-worker"),
		entries: make(map[string]*cacheEntry),
	}
}

// ListSnapshots returns every snapshot file in the directory, oldest first.
func (l *Local) ListSnapshots(ctx context.Context) ([]snapshot.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.dir == "" {
		return nil, nil
	}
	dirEntries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("list snapshot dir: %w", err)
	}

	snaps := make([]snapshot.Snapshot, 0, len(dirEntries))
	for _, entry := range dirEntries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), snapshot.FileSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
		}
		path := filepath.Join(l.dir, entry.Name())
		snap := snapshot.Snapshot{
			ID:      entry.Name(),
			Path:    path,
			State:   snapshot.StateSaved,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
		l.applyCacheState(&snap)
		snaps = append(snaps, snap)
	}

	sort.SliceStable(snaps, func(i, j int) bool {
		if !snaps[i].ModTime.Equal(snaps[j].ModTime) {
			return snaps[i].ModTime.Before(snaps[j].ModTime)
		}
		return snaps[i].ID < snaps[j].ID
	})
	return snaps, nil
}

func (l *Local) applyCacheState(snap *snapshot.Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[snap.Path]
	if !ok {
		return
	}
	if entry.state != snapshot.StateReading && !entry.modTime.Equal(snap.ModTime) {
		delete(l.entries, snap.Path)
		return
	}
	snap.State = entry.state
	if entry.err != nil {
		snap.Error = entry.err.Error()
	}
}

// TakeCensusDiff reads both snapshots concurrently and returns their delta.
func (l *Local) TakeCensusDiff(ctx context.Context, pathA, pathB string, spec census.BreakdownSpec, opts census.TreeOptions) (census.Delta, error) {
	if !spec.Breakdown.Valid() {
		return census.Delta{}, fmt.Errorf("unknown breakdown %q", spec.Breakdown)
	}

	var first, second *census.HeapSnapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		first, err = l.load(gctx, pathA)
		return err
	})
	g.Go(func() error {
		var err error
		second, err = l.load(gctx, pathB)
		return err
	})
	if err := g.Wait(); err != nil {
		return census.Delta{}, err
	}

	start := time.Now()
	delta := census.Diff(first, second, spec, opts)
	l.log.WithFields(logrus.Fields{
		"first":     filepath.Base(pathA),
		"second":    filepath.Base(pathB),
		"breakdown": spec.Breakdown,
		"inverted":  opts.Inverted,
		"filter":    opts.Filter,
		"elapsed":   time.Since(start),
	}).Debug("census diff computed")
	return delta, nil
}

func (l *Local) load(ctx context.Context, path string) (*census.HeapSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resolved, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrSnapshotNotFound)
		}
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}

	l.mu.Lock()
	if entry, ok := l.entries[resolved]; ok && entry.state == snapshot.StateRead && entry.modTime.Equal(info.ModTime()) {
		l.mu.Unlock()
		return entry.snap, nil
	}
	l.mu.Unlock()

	v, err, _ := l.group.Do(resolved, func() (any, error) {
		l.setEntry(resolved, &cacheEntry{state: snapshot.StateReading, modTime: info.ModTime()})
		snap, err := census.ReadFile(resolved)
		if err != nil {
			l.setEntry(resolved, &cacheEntry{state: snapshot.StateError, modTime: info.ModTime(), err: err})
			l.log.WithError(err).WithField("path", resolved).Warn("snapshot read failed")
			return nil, err
		}
		l.setEntry(resolved, &cacheEntry{state: snapshot.StateRead, modTime: info.ModTime(), snap: snap})
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*census.HeapSnapshot), nil
}

func (l *Local) setEntry(path string, entry *cacheEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[path] = entry
}

// resolve maps a requested path onto the snapshot directory. Bare file names
// are taken relative to the directory; anything outside it is rejected.
func (l *Local) resolve(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("empty path: %w", ErrSnapshotNotFound)
	}
	if l.dir == "" {
		return filepath.Clean(trimmed), nil
	}
	if !filepath.IsAbs(trimmed) {
		trimmed = filepath.Join(l.dir, trimmed)
	}
	rel, err := filepath.Rel(l.dir, filepath.Clean(trimmed))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the snapshot dir: %w", path, ErrSnapshotNotFound)
	}
	return filepath.Join(l.dir, rel), nil
}
