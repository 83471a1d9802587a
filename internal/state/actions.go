package state

import (
	"github.com/five82/heapdiff/internal/census"
	"github.com/five82/heapdiff/internal/snapshot"
)

// ActionType names a state transition.
type ActionType string

const (
	ActionChangeView                ActionType = "CHANGE_VIEW"
	ActionSelectSnapshotForDiffing  ActionType = "SELECT_SNAPSHOT_FOR_DIFFING"
	ActionTakeCensusDiffStart       ActionType = "TAKE_CENSUS_DIFF_START"
	ActionTakeCensusDiffEnd         ActionType = "TAKE_CENSUS_DIFF_END"
	ActionDiffingError              ActionType = "DIFFING_ERROR"
	ActionExpandDiffingCensusNode   ActionType = "EXPAND_DIFFING_CENSUS_NODE"
	ActionCollapseDiffingCensusNode ActionType = "COLLAPSE_DIFFING_CENSUS_NODE"
	ActionFocusDiffingCensusNode    ActionType = "FOCUS_DIFFING_CENSUS_NODE"
	ActionSetFilterString           ActionType = "SET_FILTER_STRING"
	ActionSetCensusDisplay          ActionType = "SET_CENSUS_DISPLAY"
	ActionSnapshotsListed           ActionType = "SNAPSHOTS_LISTED"
	ActionSnapshotsListError        ActionType = "SNAPSHOTS_LIST_ERROR"
)

// Action is a state transition dispatched to the Store.
type Action interface {
	Type() ActionType
}

// ChangeView switches the panel between census and diffing views.
type ChangeView struct {
	View View
}

// SelectSnapshotForDiffing adds a snapshot to the diffing selection.
type SelectSnapshotForDiffing struct {
	Snapshot snapshot.Snapshot
}

// TakeCensusDiffStart marks a delta census computation as in flight.
type TakeCensusDiffStart struct {
	First   snapshot.Snapshot
	Second  snapshot.Snapshot
	Filter  string
	Display census.Display
}

// TakeCensusDiffEnd carries a completed delta census.
type TakeCensusDiffEnd struct {
	First     snapshot.Snapshot
	Second    snapshot.Snapshot
	Report    *census.TreeNode
	ParentMap census.ParentMap
	Filter    string
	Display   census.Display
}

// DiffingError records a failed delta census computation.
type DiffingError struct {
	Err error
}

// ExpandDiffingCensusNode expands a node of the delta tree.
type ExpandDiffingCensusNode struct {
	Node *census.TreeNode
}

// CollapseDiffingCensusNode collapses a node of the delta tree.
type CollapseDiffingCensusNode struct {
	Node *census.TreeNode
}

// FocusDiffingCensusNode focuses a node of the delta tree.
type FocusDiffingCensusNode struct {
	Node *census.TreeNode
}

// SetFilterString replaces the census filter. Empty clears it.
type SetFilterString struct {
	Filter string
}

// SetCensusDisplay replaces the census display.
type SetCensusDisplay struct {
	Display census.Display
}

// SnapshotsListed replaces the known snapshot list.
type SnapshotsListed struct {
	Snapshots []snapshot.Snapshot
}

// SnapshotsListError records a failed snapshot listing.
type SnapshotsListError struct {
	Err error
}

func (ChangeView) Type() ActionType                { return ActionChangeView }
func (SelectSnapshotForDiffing) Type() ActionType  { return ActionSelectSnapshotForDiffing }
func (TakeCensusDiffStart) Type() ActionType       { return ActionTakeCensusDiffStart }
func (TakeCensusDiffEnd) Type() ActionType         { return ActionTakeCensusDiffEnd }
func (DiffingError) Type() ActionType              { return ActionDiffingError }
func (ExpandDiffingCensusNode) Type() ActionType   { return ActionExpandDiffingCensusNode }
func (CollapseDiffingCensusNode) Type() ActionType { return ActionCollapseDiffingCensusNode }
func (FocusDiffingCensusNode) Type() ActionType    { return ActionFocusDiffingCensusNode }
func (SetFilterString) Type() ActionType           { return ActionSetFilterString }
func (SetCensusDisplay) Type() ActionType          { return ActionSetCensusDisplay }
func (SnapshotsListed) Type() ActionType           { return ActionSnapshotsListed }
func (SnapshotsListError) Type() ActionType        { return ActionSnapshotsListError }
