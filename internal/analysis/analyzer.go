package analysis

import (
	"context"
	"errors"

	"github.com/five82/heapdiff/internal/census"
	"github.com/five82/heapdiff/internal/snapshot"
)

// ErrSnapshotNotFound is returned when a requested snapshot path is not a
// snapshot the worker knows about.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Analyzer computes delta censuses between two snapshot files. A call is a
// single request/response; there is no streaming and no way to cancel the
// work once the worker has accepted it other than ctx.
type Analyzer interface {
	TakeCensusDiff(ctx context.Context, pathA, pathB string, spec census.BreakdownSpec, opts census.TreeOptions) (census.Delta, error)
}

// Lister enumerates the snapshots a worker can analyze.
type Lister interface {
	ListSnapshots(ctx context.Context) ([]snapshot.Snapshot, error)
}

// Worker is an Analyzer that can also list its snapshots.
type Worker interface {
	Analyzer
	Lister
}

// Ensure both implementations satisfy Worker at compile time.
var (
	_ Worker = (*Local)(nil)
	_ Worker = (*Client)(nil)
)

// CensusDiffRequest is the POST /api/census-diff body.
type CensusDiffRequest struct {
	PathA     string               `json:"path_a"`
	PathB     string               `json:"path_b"`
	Breakdown census.BreakdownSpec `json:"breakdown"`
	Options   census.TreeOptions   `json:"options"`
}

// SnapshotListResponse is the GET /api/snapshots body.
type SnapshotListResponse struct {
	Snapshots []snapshot.Snapshot `json:"snapshots"`
}

type errorResponse struct {
	Error string `json:"error"`
}
