// Package app provides the orchestration layer for the heapdiff TUI.
//
// # Overview
//
// This package wires together configuration, the analysis worker, the panel
// store, the diffing coordinator and the UI. It is the composition root:
// every dependency is built here and handed to the packages that use it.
//
// # Startup
//
//  1. Load user preferences (theme and census display)
//  2. Build the worker: an HTTP client when worker_addr is set, otherwise
//     an in-process worker over snapshot_dir
//  3. For a remote worker, verify it answers within 3 seconds
//  4. Create the store seeded with the saved census display
//  5. Build the coordinator and view parameter controller on top of it
//  6. Optionally serve Prometheus metrics on the listen address
//  7. List snapshots once, start the poller, then run the UI (blocks)
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       ├─────> NewWorker()           Local or Client
//	       ├─────> state.NewStore()      Panel state
//	       ├─────> diffing.New()         Stale-result-discarding refresh
//	       ├─────> viewparams.New()      Filter and display changes
//	       ├─────> StartPoller()         Snapshot listing
//	       └─────> ui.Run()              TUI (blocks)
//
// # Polling Behavior
//
// The poller lists snapshots at poll_interval. Consecutive failures double
// the delay up to 30 seconds and two or more mark the panel offline. A
// successful listing resets the delay.
//
// # Error Handling
//
// Run returns an error when the worker cannot be built or a configured
// remote worker is unreachable at startup. Listing and diffing failures
// after startup are recorded in the store and shown by the UI.
package app
