package diffing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/five82/heapdiff/internal/analysis"
	"github.com/five82/heapdiff/internal/census"
	"github.com/five82/heapdiff/internal/snapshot"
	"github.com/five82/heapdiff/internal/state"
)

// Store is the part of the state store the coordinator drives.
type Store interface {
	Dispatch(state.Action)
	State() state.State
}

// Telemetry records completed diffs.
type Telemetry interface {
	CountDiff(filter string, display census.Display)
}

type nopTelemetry struct{}

func (nopTelemetry) CountDiff(string, census.Display) {}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger. The default is the logrus standard logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Coordinator) {
		if log != nil {
			c.log = log
		}
	}
}

// WithTelemetry sets where completed diffs are counted.
func WithTelemetry(t Telemetry) Option {
	return func(c *Coordinator) {
		if t != nil {
			c.telemetry = t
		}
	}
}

// WithMaxStaleRetries bounds how many times one computation is restarted
// because the view parameters changed while the worker was busy. Zero, the
// default, means no bound.
func WithMaxStaleRetries(n int) Option {
	return func(c *Coordinator) {
		if n >= 0 {
			c.maxStaleRetries = n
		}
	}
}

// Coordinator owns the lifecycle of the delta census for the selected pair.
type Coordinator struct {
	store           Store
	analyzer        analysis.Analyzer
	log             logrus.FieldLogger
	telemetry       Telemetry
	maxStaleRetries int

	mu     sync.Mutex
	active bool
	dirty  bool
}

// New returns a Coordinator dispatching to store and computing with analyzer.
func New(store Store, analyzer analysis.Analyzer, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:     store,
		analyzer:  analyzer,
		log:       logrus.StandardLogger(),
		telemetry: nopTelemetry{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithField("component", "diffing")
	return c
}

// ToggleDiffing switches between the census and diffing views.
func (c *Coordinator) ToggleDiffing() {
	c.mu.Lock()
	defer c.mu.Unlock()

	view := state.ViewDiffing
	if c.store.State().IsDiffing() {
		view = state.ViewCensus
	}
	c.store.Dispatch(state.ChangeView{View: view})
}

// SelectSnapshotForDiffing adds s to the diffing selection without computing
// anything. s must be diffable.
func (c *Coordinator) SelectSnapshotForDiffing(s snapshot.Snapshot) {
	must(snapshot.IsDiffable(s), "snapshot %q is not diffable (state %s)", s.ID, s.State)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Dispatch(state.SelectSnapshotForDiffing{Snapshot: s})
}

// SelectSnapshotForDiffingAndRefresh selects s and brings the diff up to date.
// The panel must already be in the diffing view.
func (c *Coordinator) SelectSnapshotForDiffingAndRefresh(ctx context.Context, s snapshot.Snapshot) {
	must(c.store.State().IsDiffing(), "select and refresh requires the diffing view")
	c.SelectSnapshotForDiffing(s)
	c.Refresh(ctx)
}

// Refresh computes the delta census for the selected pair unless there is
// nothing to compare, a computation is already in flight, or the stored
// result is already current. When this coordinator is already computing,
// the refresh is folded into a trailing run of that computation and Refresh
// returns at once; otherwise it blocks until the computation is done.
func (c *Coordinator) Refresh(ctx context.Context) {
	first, second, ok := c.lockedPendingPair()
	if !ok {
		return
	}
	c.TakeCensusDiff(ctx, first, second)
}

func (c *Coordinator) lockedPendingPair() (snapshot.Snapshot, snapshot.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingPair()
}

// pendingPair returns the selected pair when a refresh has work to do. The
// caller holds c.mu.
func (c *Coordinator) pendingPair() (snapshot.Snapshot, snapshot.Snapshot, bool) {
	st := c.store.State()
	d := st.Diffing
	if d == nil || d.SecondSnapshotID == "" {
		return snapshot.Snapshot{}, snapshot.Snapshot{}, false
	}
	must(d.FirstSnapshotID != "", "second snapshot %q selected without a first", d.SecondSnapshotID)
	if d.State == state.DiffInFlight {
		return snapshot.Snapshot{}, snapshot.Snapshot{}, false
	}

	// A listing can drop a selected snapshot; the next one clears the
	// selection.
	first, okFirst := st.Snapshot(d.FirstSnapshotID)
	second, okSecond := st.Snapshot(d.SecondSnapshotID)
	if !okFirst || !okSecond {
		c.log.WithFields(logrus.Fields{
			"first":  d.FirstSnapshotID,
			"second": d.SecondSnapshotID,
		}).Debug("selected snapshot no longer listed, skipping refresh")
		return snapshot.Snapshot{}, snapshot.Snapshot{}, false
	}

	// The worker flags a snapshot as reading while it parses it; the next
	// listing clears that.
	if !snapshot.IsDiffable(first) || !snapshot.IsDiffable(second) {
		c.log.WithFields(logrus.Fields{
			"first":        first.ID,
			"first_state":  first.State,
			"second":       second.ID,
			"second_state": second.State,
		}).Debug("selected snapshots not diffable yet, skipping refresh")
		return snapshot.Snapshot{}, snapshot.Snapshot{}, false
	}
	return first, second, true
}

// TakeCensusDiff computes the delta census between first and second under
// the store's current view parameters and commits it if it is still current
// when the worker answers. Both snapshots must be diffable.
func (c *Coordinator) TakeCensusDiff(ctx context.Context, first, second snapshot.Snapshot) {
	must(snapshot.IsDiffable(first), "first snapshot %q is not diffable (state %s)", first.ID, first.State)
	must(snapshot.IsDiffable(second), "second snapshot %q is not diffable (state %s)", second.ID, second.State)

	c.mu.Lock()
	if c.active {
		c.dirty = true
		c.mu.Unlock()
		return
	}
	c.active = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.active = false
		c.dirty = false
		c.mu.Unlock()
	}()

	c.compute(ctx, first, second)
	for {
		next, nextSecond, again, ok := c.trailingPair()
		if !again {
			return
		}
		if ok {
			c.compute(ctx, next, nextSecond)
		}
	}
}

// trailingPair consumes a refresh folded into the active computation. again
// is false when none is pending.
func (c *Coordinator) trailingPair() (first, second snapshot.Snapshot, again, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return first, second, false, false
	}
	c.dirty = false
	first, second, ok = c.pendingPair()
	return first, second, true, ok
}

// compute runs the start/await/verify loop for one pair.
func (c *Coordinator) compute(ctx context.Context, first, second snapshot.Snapshot) {
	log := c.log.WithFields(logrus.Fields{"first": first.ID, "second": second.ID})

	c.mu.Lock()
	if st := c.store.State(); st.Diffing != nil && st.Diffing.State == state.DiffReady &&
		st.Diffing.Census.Matches(first.ID, second.ID, st.Filter, st.Display) {
		c.mu.Unlock()
		log.Debug("delta census already current")
		return
	}
	c.mu.Unlock()

	for attempt := 1; ; attempt++ {
		c.mu.Lock()
		st := c.store.State()
		filter, display := st.Filter, st.Display
		if !st.Diffing.Selected(first.ID, second.ID) {
			c.mu.Unlock()
			log.Debug("selection changed before request, abandoning")
			return
		}
		c.store.Dispatch(state.TakeCensusDiffStart{
			First:   first,
			Second:  second,
			Filter:  filter,
			Display: display,
		})
		c.mu.Unlock()

		opts := census.TreeOptions{Inverted: display.Inverted, Filter: filter}
		start := time.Now()
		delta, err := c.analyzer.TakeCensusDiff(ctx, first.Path, second.Path, census.BreakdownSpec{Breakdown: display.Breakdown}, opts)
		elapsed := time.Since(start)

		c.mu.Lock()
		st = c.store.State()
		if !st.Diffing.Selected(first.ID, second.ID) {
			c.mu.Unlock()
			if err != nil {
				log.WithError(err).Debug("dropping failure for deselected pair")
			} else {
				log.Debug("dropping result for deselected pair")
			}
			return
		}
		if err != nil {
			c.store.Dispatch(state.DiffingError{Err: err})
			c.mu.Unlock()
			log.WithError(err).WithField("elapsed", elapsed).Error("census diff failed")
			return
		}
		if census.UpToDate(st.Filter, st.Display, filter, display) {
			c.store.Dispatch(state.TakeCensusDiffEnd{
				First:     first,
				Second:    second,
				Report:    delta.Report,
				ParentMap: delta.ParentMap,
				Filter:    filter,
				Display:   display,
			})
			c.mu.Unlock()
			c.telemetry.CountDiff(filter, display)
			log.WithFields(logrus.Fields{
				"breakdown": display.Breakdown,
				"inverted":  display.Inverted,
				"filter":    filter,
				"attempts":  attempt,
				"elapsed":   elapsed,
			}).Info("delta census ready")
			return
		}
		if c.maxStaleRetries > 0 && attempt > c.maxStaleRetries {
			err := fmt.Errorf("%w: gave up after %d attempts", ErrParamsUnstable, attempt)
			c.store.Dispatch(state.DiffingError{Err: err})
			c.mu.Unlock()
			log.WithError(err).Warn("census diff abandoned")
			return
		}
		c.mu.Unlock()
		log.WithField("attempt", attempt).Debug("view parameters changed during request, recomputing")
	}
}

// ExpandNode expands node in the delta tree.
func (c *Coordinator) ExpandNode(node *census.TreeNode) {
	c.store.Dispatch(state.ExpandDiffingCensusNode{Node: node})
}

// CollapseNode collapses node in the delta tree.
func (c *Coordinator) CollapseNode(node *census.TreeNode) {
	c.store.Dispatch(state.CollapseDiffingCensusNode{Node: node})
}

// FocusNode focuses node in the delta tree. A nil node clears the focus.
func (c *Coordinator) FocusNode(node *census.TreeNode) {
	c.store.Dispatch(state.FocusDiffingCensusNode{Node: node})
}
