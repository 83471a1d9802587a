// Package analysis provides the heap-analysis worker that computes delta
// censuses for the diffing panel.
//
// # Implementations
//
//   - Local: in-process worker reading snapshot files from a directory.
//     Parsed snapshots are cached per path and invalidated when the file's
//     modification time changes. Both inputs of a diff are read
//     concurrently and concurrent reads of the same file are collapsed.
//   - Client: HTTP client for a remote `heapdiff worker`.
//   - Server: http.Handler exposing any Worker over HTTP.
//
// # HTTP API
//
//	GET  /api/snapshots     → SnapshotListResponse
//	POST /api/census-diff   CensusDiffRequest → census.Delta
//
// Errors are returned as {"error": "..."} with a 4xx/5xx status; an unknown
// snapshot path maps to 404 and back to ErrSnapshotNotFound on the client.
//
// # Snapshot State
//
// Local reports each file as saved until it is first read, reading while it
// is being parsed, read once cached, and error when parsing failed. Only
// saved and read snapshots are diffable.
package analysis
