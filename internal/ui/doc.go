// Package ui provides the terminal interface for heapdiff.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program with two panes: the snapshot list on the
// left and the delta census tree on the right. The model never mutates panel
// state directly. Key presses call into the diffing coordinator or the view
// parameter controller, and the model re-reads the store on every tick and
// after each command completes.
//
// # Package Structure
//
//   - model.go: Model, Update loop, key handling and commands
//   - view.go: layout, header, footer, snapshot pane and help overlay
//   - tree.go: flattening and rendering of the delta tree
//   - keys.go: key bindings
//   - theme.go: color themes and derived lipgloss styles
//
// # Blocking Work
//
// Coordinator calls can wait on the analysis worker, so they run inside
// tea.Cmd functions and report the resulting store state as a message.
// Snapshots that are not diffable are filtered out before they reach the
// coordinator.
//
// # Log Pane
//
// The panel owns the terminal, so logs go to a file. Pressing L swaps the
// tree pane for the tail of that file, re-read on every tick while shown.
//
// # Preferences
//
// The theme and census display are saved to the preferences file whenever
// they change.
package ui
