// Package viewparams changes the census filter and display and brings the
// diff view up to date afterwards.
package viewparams

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/five82/heapdiff/internal/census"
	"github.com/five82/heapdiff/internal/state"
)

// Store is the part of the state store the controller needs.
type Store interface {
	Dispatch(state.Action)
	State() state.State
}

// Refresher brings the diff up to date with the current view parameters.
// The diffing coordinator satisfies it; this package never imports it.
type Refresher interface {
	Refresh(ctx context.Context)
}

// Controller owns changes to the filter and the census display.
type Controller struct {
	store     Store
	refresher Refresher
	log       logrus.FieldLogger
}

// New returns a Controller. refresher may be nil when nothing needs to be
// refreshed after a change.
func New(store Store, refresher Refresher, log logrus.FieldLogger) *Controller {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Controller{
		store:     store,
		refresher: refresher,
		log:       log.WithField("component", "viewparams"),
	}
}

// SetFilter replaces the filter string. Surrounding whitespace is ignored
// and an empty filter clears it.
func (c *Controller) SetFilter(ctx context.Context, filter string) {
	filter = strings.TrimSpace(filter)
	if c.store.State().Filter == filter {
		return
	}
	c.store.Dispatch(state.SetFilterString{Filter: filter})
	c.log.WithField("filter", filter).Debug("filter changed")
	c.refresh(ctx)
}

// SetDisplay replaces the census display. Unknown breakdowns are ignored.
func (c *Controller) SetDisplay(ctx context.Context, display census.Display) {
	if !display.Breakdown.Valid() {
		c.log.WithField("breakdown", display.Breakdown).Warn("ignoring unknown breakdown")
		return
	}
	if c.store.State().Display == display {
		return
	}
	c.store.Dispatch(state.SetCensusDisplay{Display: display})
	c.log.WithField("display", display.String()).Debug("display changed")
	c.refresh(ctx)
}

// SetBreakdown changes only the breakdown of the current display.
func (c *Controller) SetBreakdown(ctx context.Context, b census.Breakdown) {
	display := c.store.State().Display
	display.Breakdown = b
	c.SetDisplay(ctx, display)
}

// CycleBreakdown moves to the next breakdown.
func (c *Controller) CycleBreakdown(ctx context.Context) {
	c.SetBreakdown(ctx, census.NextBreakdown(c.store.State().Display.Breakdown))
}

// ToggleInverted flips between the normal and inverted tree.
func (c *Controller) ToggleInverted(ctx context.Context) {
	display := c.store.State().Display
	display.Inverted = !display.Inverted
	c.SetDisplay(ctx, display)
}

func (c *Controller) refresh(ctx context.Context) {
	if c.refresher == nil || !c.store.State().IsDiffing() {
		return
	}
	c.refresher.Refresh(ctx)
}
