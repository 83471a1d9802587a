package state

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/five82/heapdiff/internal/census"
	"github.com/five82/heapdiff/internal/snapshot"
)

// View is the top-level panel view.
type View string

const (
	ViewCensus  View = "census"
	ViewDiffing View = "diffing"
)

// DiffStatus is the lifecycle of the delta census for the selected pair.
type DiffStatus string

const (
	DiffIdle     DiffStatus = "idle"
	DiffInFlight DiffStatus = "in-flight"
	DiffReady    DiffStatus = "ready"
	DiffError    DiffStatus = "error"
)

// DiffRequest is the parameter set of the computation currently in flight.
type DiffRequest struct {
	FirstID  string
	SecondID string
	Filter   string
	Display  census.Display
}

// DiffCensus is a completed delta census, tagged with the pair and view
// parameters it was computed under. Report and ParentMap are never mutated
// after dispatch and are shared between snapshots.
type DiffCensus struct {
	FirstID   string
	SecondID  string
	Report    *census.TreeNode
	ParentMap census.ParentMap
	Filter    string
	Display   census.Display
	Expanded  map[int]bool
	Focused   int
}

// Matches reports whether the census was computed for the given pair under
// the given parameters.
func (c *DiffCensus) Matches(firstID, secondID, filter string, display census.Display) bool {
	if c == nil || c.Report == nil {
		return false
	}
	return c.FirstID == firstID && c.SecondID == secondID &&
		census.UpToDate(filter, display, c.Filter, c.Display)
}

// Diffing is the diffing-view state. It exists only while the view is
// ViewDiffing.
type Diffing struct {
	FirstSnapshotID  string
	SecondSnapshotID string
	State            DiffStatus
	Request          *DiffRequest
	Census           *DiffCensus
	Err              error
}

// Selected reports whether exactly this pair is selected.
func (d *Diffing) Selected(firstID, secondID string) bool {
	return d != nil && d.FirstSnapshotID == firstID && d.SecondSnapshotID == secondID
}

// State is the full panel state.
type State struct {
	View      View
	Snapshots []snapshot.Snapshot
	Filter    string
	Display   census.Display
	Diffing   *Diffing

	LastListed              time.Time
	ListError               error
	ConsecutiveListFailures int
}

// IsDiffing reports whether the panel is in diffing view.
func (s State) IsDiffing() bool {
	return s.Diffing != nil
}

// Snapshot looks up a snapshot by id.
func (s State) Snapshot(id string) (snapshot.Snapshot, bool) {
	for _, snap := range s.Snapshots {
		if snap.ID == id {
			return snap, true
		}
	}
	return snapshot.Snapshot{}, false
}

// IsOffline returns true when snapshot listing has failed repeatedly.
func (s State) IsOffline() bool {
	return s.ConsecutiveListFailures >= 2
}

// Store holds the panel state and applies dispatched actions to it.
type Store struct {
	mu        sync.RWMutex
	state     State
	observers []func(Action)
}

// NewStore returns a store seeded with initial. A zero Store is also ready
// to use and starts in the census view with no display configured.
func NewStore(initial State) *Store {
	if initial.View == "" {
		initial.View = ViewCensus
	}
	return &Store{state: cloneState(initial)}
}

// Dispatch applies an action. Observers run after the state is updated,
// outside the store lock.
func (s *Store) Dispatch(action Action) {
	if action == nil {
		return
	}
	s.mu.Lock()
	s.state = reduce(s.state, action)
	observers := slices.Clone(s.observers)
	s.mu.Unlock()

	for _, observe := range observers {
		observe(action)
	}
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneState(s.state)
}

// Observe registers fn to be called after every dispatch.
func (s *Store) Observe(fn func(Action)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func cloneState(in State) State {
	out := in
	out.Snapshots = slices.Clone(in.Snapshots)
	if in.Diffing != nil {
		d := *in.Diffing
		if in.Diffing.Request != nil {
			req := *in.Diffing.Request
			d.Request = &req
		}
		if in.Diffing.Census != nil {
			c := *in.Diffing.Census
			c.Expanded = maps.Clone(in.Diffing.Census.Expanded)
			d.Census = &c
		}
		out.Diffing = &d
	}
	return out
}
