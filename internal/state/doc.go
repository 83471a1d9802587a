// Package state provides the thread-safe panel store for heapdiff.
//
// # Overview
//
// The Store holds everything the panel renders: the known snapshots, the
// census filter and display, and, while the diffing view is open, the
// diffing selection and its delta census. Components never mutate state
// directly; they dispatch actions and read copies.
//
//	Writers:                       Readers:
//	┌──────────────────┐          ┌──────────────────┐
//	│ poller           │          │ ui tick          │
//	│ diffing coord.   │─Dispatch→│ diffing coord.   │
//	│ viewparams       │  (mutex) │  store.State()   │
//	└──────────────────┘          └──────────────────┘
//
// # Actions
//
// Every transition is a small struct implementing Action. The reducer
// switches on the concrete type:
//
//   - ChangeView: entering ViewDiffing creates an idle Diffing, any other
//     view drops it
//   - SelectSnapshotForDiffing: fills the first slot, then the second; a
//     third selection starts over with the snapshot as first
//   - TakeCensusDiffStart / TakeCensusDiffEnd / DiffingError: the delta
//     census lifecycle (idle → in-flight → ready | error)
//   - Expand/Collapse/FocusDiffingCensusNode: tree UI state on the census
//   - SetFilterString / SetCensusDisplay: view parameters
//   - SnapshotsListed / SnapshotsListError: poller results
//
// TakeCensusDiffEnd is ignored unless its pair is still selected, so a
// late result can never land on a different selection.
//
// # Concurrency Model
//
// Dispatch takes the write lock, State takes the read lock and returns a
// deep copy of the mutable parts (snapshot slice, diffing and census
// structs, expanded set). Delta reports are immutable once dispatched and
// are shared rather than copied.
//
// Observers registered with Observe run after each dispatch, outside the
// lock, in registration order.
//
// # Value Semantics
//
// The filter is a string and the display a comparable struct. Staleness
// checks compare them with ==, so a store that rebuilds an equal display
// does not invalidate a census computed under it.
package state
