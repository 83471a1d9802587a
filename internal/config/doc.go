// Package config loads heapdiff's TOML configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/heapdiff/config.toml (default)
//  3. If the config file doesn't exist, fall back to hardcoded defaults
//  4. If the file exists but fields are missing/empty, use defaults
//
// # Default Values
//
//   - Snapshot directory: ~/.local/share/heapdiff/snapshots
//   - Worker address: empty (diffs are computed in-process)
//   - Worker listen address: 127.0.0.1:7490
//   - Log level: info
//   - Log file: ~/.local/state/heapdiff/heapdiff.log
//   - Poll interval: 2s (never below 100ms)
//   - Max stale retries: 0 (recompute for as long as parameters keep changing)
//   - Metrics: off
//
// # TOML Format
//
//	snapshot_dir = "~/heap"
//	worker_addr = "127.0.0.1:7490"
//	listen = "0.0.0.0:7490"
//	log_level = "debug"
//	log_file = "~/heapdiff.log"
//	poll_interval = "500ms"
//	max_stale_retries = 5
//	metrics = true
//
// Every field is optional. Tilde expansion is performed for snapshot_dir and
// log_file.
//
// # Error Handling
//
// Load returns errors for unreadable files, invalid TOML, an unknown
// log_level, an unparsable poll_interval, and a negative max_stale_retries.
// A missing config file is not an error.
package config
