package state

import (
	"slices"
	"time"

	"github.com/five82/heapdiff/internal/snapshot"
)

// reduce applies action to s. It runs under the store's write lock and may
// mutate s in place; readers only ever see clones.
func reduce(s State, action Action) State {
	switch a := action.(type) {
	case ChangeView:
		s.View = a.View
		if a.View == ViewDiffing {
			s.Diffing = &Diffing{State: DiffIdle}
		} else {
			s.Diffing = nil
		}

	case SelectSnapshotForDiffing:
		if s.Diffing == nil {
			return s
		}
		// Only listed snapshots can be selected.
		if _, ok := s.Snapshot(a.Snapshot.ID); !ok {
			return s
		}
		d := s.Diffing
		switch {
		case d.FirstSnapshotID == "":
			d.FirstSnapshotID = a.Snapshot.ID
		case d.SecondSnapshotID == "":
			d.SecondSnapshotID = a.Snapshot.ID
		default:
			d.FirstSnapshotID = a.Snapshot.ID
			d.SecondSnapshotID = ""
		}
		resetDiff(d)

	case TakeCensusDiffStart:
		if s.Diffing == nil {
			return s
		}
		s.Diffing.State = DiffInFlight
		s.Diffing.Err = nil
		s.Diffing.Census = nil
		s.Diffing.Request = &DiffRequest{
			FirstID:  a.First.ID,
			SecondID: a.Second.ID,
			Filter:   a.Filter,
			Display:  a.Display,
		}

	case TakeCensusDiffEnd:
		if !s.Diffing.Selected(a.First.ID, a.Second.ID) {
			return s
		}
		s.Diffing.State = DiffReady
		s.Diffing.Request = nil
		s.Diffing.Err = nil
		s.Diffing.Census = &DiffCensus{
			FirstID:   a.First.ID,
			SecondID:  a.Second.ID,
			Report:    a.Report,
			ParentMap: a.ParentMap,
			Filter:    a.Filter,
			Display:   a.Display,
			Expanded:  make(map[int]bool),
		}

	case DiffingError:
		if s.Diffing == nil {
			return s
		}
		s.Diffing.State = DiffError
		s.Diffing.Err = a.Err
		s.Diffing.Request = nil
		s.Diffing.Census = nil

	case ExpandDiffingCensusNode:
		if c := diffCensus(s); c != nil && a.Node != nil {
			c.Expanded[a.Node.ID] = true
		}

	case CollapseDiffingCensusNode:
		if c := diffCensus(s); c != nil && a.Node != nil {
			delete(c.Expanded, a.Node.ID)
		}

	case FocusDiffingCensusNode:
		if c := diffCensus(s); c != nil {
			c.Focused = 0
			if a.Node != nil {
				c.Focused = a.Node.ID
			}
		}

	case SetFilterString:
		s.Filter = a.Filter

	case SetCensusDisplay:
		s.Display = a.Display

	case SnapshotsListed:
		s.Snapshots = slices.Clone(a.Snapshots)
		s.LastListed = time.Now()
		s.ListError = nil
		s.ConsecutiveListFailures = 0
		dropMissingSelection(s.Diffing, s.Snapshots)

	case SnapshotsListError:
		s.LastListed = time.Now()
		s.ListError = a.Err
		s.ConsecutiveListFailures++
	}
	return s
}

func resetDiff(d *Diffing) {
	d.State = DiffIdle
	d.Request = nil
	d.Census = nil
	d.Err = nil
}

func diffCensus(s State) *DiffCensus {
	if s.Diffing == nil || s.Diffing.Census == nil {
		return nil
	}
	if s.Diffing.Census.Expanded == nil {
		s.Diffing.Census.Expanded = make(map[int]bool)
	}
	return s.Diffing.Census
}

// dropMissingSelection clears selected snapshots that no longer exist,
// keeping the remaining one as the first selection.
func dropMissingSelection(d *Diffing, snaps []snapshot.Snapshot) {
	if d == nil {
		return
	}
	exists := func(id string) bool {
		return slices.ContainsFunc(snaps, func(s snapshot.Snapshot) bool { return s.ID == id })
	}
	first, second := d.FirstSnapshotID, d.SecondSnapshotID
	if first != "" && !exists(first) {
		first = ""
	}
	if second != "" && !exists(second) {
		second = ""
	}
	if first == "" {
		first, second = second, ""
	}
	if first == d.FirstSnapshotID && second == d.SecondSnapshotID {
		return
	}
	d.FirstSnapshotID = first
	d.SecondSnapshotID = second
	resetDiff(d)
}
