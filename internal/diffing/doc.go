// Package diffing keeps the delta census between two selected heap snapshots
// consistent with the store's current view parameters.
//
// # Protocol
//
// Refresh is the "make sure the diff is current" entry point. It does nothing
// until two snapshots are selected, and nothing while a computation is already
// in flight: the running computation re-checks the filter and display when the
// worker answers and recomputes if either moved. A result is committed with
// TAKE_CENSUS_DIFF_END only when the pair and parameters it was computed
// under are still the store's current ones; anything else is dropped without
// an error.
//
//	IDLE --start--> IN_FLIGHT --ok, params unchanged--> READY
//	                IN_FLIGHT --ok, params changed----> IN_FLIGHT (recompute)
//	                IN_FLIGHT --worker failed---------> ERROR
//
// # Concurrency
//
// A Coordinator is safe for concurrent use. Reading the store, deciding, and
// dispatching happen under one mutex; the worker call runs outside it. A
// refresh for a new selection that arrives while the coordinator is busy is
// folded into a single trailing refresh, so one Coordinator never has more
// than one worker call outstanding.
//
// Store observers run inside Dispatch and must not call back into the
// Coordinator.
//
// # Preconditions
//
// Selecting a snapshot that is not diffable, or selecting-and-refreshing
// outside the diffing view, panics with *AssertionError before anything is
// dispatched.
package diffing
