// Package snapshot models the heap snapshots a user can select for diffing.
package snapshot

import (
	"strings"
	"time"
)

// State is the lifecycle state of a heap snapshot as seen by the panel.
type State string

const (
	StateSaved     State = "saved"
	StateImporting State = "importing"
	StateReading   State = "reading"
	StateRead      State = "read"
	StateDeleting  State = "deleting"
	StateError     State = "error"
)

// Snapshot is one selectable heap snapshot.
type Snapshot struct {
	ID      string    `json:"id"`
	Path    string    `json:"path"`
	State   State     `json:"state"`
	Error   string    `json:"error,omitempty"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// IsDiffable reports whether the snapshot may be compared against another.
// A snapshot that is still being imported or read, is being deleted, or
// failed to parse is not diffable.
func IsDiffable(s Snapshot) bool {
	switch s.State {
	case StateSaved, StateRead:
		return true
	default:
		return false
	}
}

// Label returns a short display name for the snapshot.
func (s Snapshot) Label() string {
	name := s.ID
	if name == "" {
		name = s.Path
	}
	return strings.TrimSuffix(name, FileSuffix)
}

// FileSuffix is the extension of snapshot files on disk.
const FileSuffix = ".heapsnapshot.json"
