package ui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/five82/heapdiff/internal/census"
	"github.com/five82/heapdiff/internal/logtail"
	"github.com/five82/heapdiff/internal/prefs"
	"github.com/five82/heapdiff/internal/snapshot"
	"github.com/five82/heapdiff/internal/state"
)

// StateSource is read on every tick.
type StateSource interface {
	State() state.State
}

// Differ drives the diffing view.
type Differ interface {
	ToggleDiffing()
	SelectSnapshotForDiffingAndRefresh(ctx context.Context, s snapshot.Snapshot)
	Refresh(ctx context.Context)
	ExpandNode(node *census.TreeNode)
	CollapseNode(node *census.TreeNode)
	FocusNode(node *census.TreeNode)
}

// ViewParams changes the filter and census display.
type ViewParams interface {
	SetFilter(ctx context.Context, filter string)
	CycleBreakdown(ctx context.Context)
	ToggleInverted(ctx context.Context)
}

type pane int

const (
	paneSnapshots pane = iota
	paneTree
)

const (
	snapshotPaneWidth = 34
	maxLogEntries     = 500
)

// Options configures the UI.
type Options struct {
	Context   context.Context
	Store     StateSource
	Differ    Differ
	Params    ViewParams
	PollTick  time.Duration
	Prefs     prefs.Prefs
	PrefsPath string
	LogPath   string
	Log       logrus.FieldLogger
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	store     StateSource
	differ    Differ
	params    ViewParams
	prefs     prefs.Prefs
	prefsPath string
	logPath   string
	pollTick  time.Duration
	log       logrus.FieldLogger
	keys      keyMap

	// UI state
	theme       Theme
	width       int
	height      int
	ready       bool
	focusedPane pane
	showHelp    bool

	// Data state
	state       state.State
	lastUpdated time.Time

	// Snapshot list
	selectedRow int

	// Delta tree
	treeCursor   int
	treeViewport viewport.Model

	// Filter input
	filtering   bool
	filterInput textinput.Model

	// Log pane
	showLogs   bool
	logEntries []logtail.Entry
	logErr     error
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick <= 0 || pollTick > time.Second {
		pollTick = 250 * time.Millisecond
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	input := textinput.New()
	input.Prompt = "/"
	input.Placeholder = "filter buckets"
	input.CharLimit = 128

	m := Model{
		ctx:         ctx,
		store:       opts.Store,
		differ:      opts.Differ,
		params:      opts.Params,
		prefs:       opts.Prefs,
		prefsPath:   prefsPath,
		logPath:     opts.LogPath,
		pollTick:    pollTick,
		log:         log.WithField("component", "ui"),
		keys:        DefaultKeyMap(),
		theme:       GetTheme(opts.Prefs.Theme),
		filterInput: input,
	}
	if m.store != nil {
		m.state = m.store.State()
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.store != nil {
		cmds = append(cmds, fetchStateCmd(m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.treeViewport = viewport.New(m.treePaneWidth(), m.contentHeight())
		}
		m.ready = true
		m.resizeTree()
		m.updateTreeViewport()
		return m, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd(m.pollTick)}
		if m.store != nil {
			cmds = append(cmds, fetchStateCmd(m.store))
		}
		if m.showLogs {
			cmds = append(cmds, readLogsCmd(m.logPath))
		}
		return m, tea.Batch(cmds...)

	case logsMsg:
		m.logEntries = msg.entries
		m.logErr = msg.err
		return m, nil

	case stateMsg:
		m.applyState(state.State(msg))
		return m, nil
	}

	return m, nil
}

// applyState installs a fresh store snapshot and keeps cursors in range.
func (m *Model) applyState(st state.State) {
	m.state = st
	m.lastUpdated = time.Now()

	if n := len(st.Snapshots); m.selectedRow >= n {
		m.selectedRow = max(n-1, 0)
	}

	rows := currentRows(st)
	if c := st.Diffing; c != nil && c.Census != nil && c.Census.Focused != 0 {
		if idx := rowIndex(rows, c.Census.Focused); idx >= 0 {
			m.treeCursor = idx
		}
	}
	if m.treeCursor >= len(rows) {
		m.treeCursor = max(len(rows)-1, 0)
	}

	m.persistDisplay()
	m.updateTreeViewport()
}

// persistDisplay saves the census display whenever it changes.
func (m *Model) persistDisplay() {
	if m.state.Display.Breakdown == "" || m.state.Display == m.prefs.Display() {
		return
	}
	m.prefs = m.prefs.WithDisplay(m.state.Display)
	m.savePrefs()
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
		m.log.WithError(err).Warn("save prefs failed")
	}
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.filtering {
		return m.handleFilterKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		m.savePrefs()
		m.updateTreeViewport()
		return m, nil

	case key.Matches(msg, m.keys.ToggleLogs):
		if m.logPath == "" {
			return m, nil
		}
		m.showLogs = !m.showLogs
		if m.showLogs {
			return m, readLogsCmd(m.logPath)
		}
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		if m.focusedPane == paneSnapshots {
			m.focusedPane = paneTree
		} else {
			m.focusedPane = paneSnapshots
		}
		m.updateTreeViewport()
		return m, nil

	case key.Matches(msg, m.keys.ToggleDiffing):
		if m.differ == nil {
			return m, nil
		}
		m.differ.ToggleDiffing()
		return m, fetchStateCmd(m.store)

	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		m.filterInput.SetValue(m.state.Filter)
		m.filterInput.CursorEnd()
		return m, m.filterInput.Focus()

	case key.Matches(msg, m.keys.CycleBreakdown):
		return m, m.paramsCmd(func(ctx context.Context) { m.params.CycleBreakdown(ctx) })

	case key.Matches(msg, m.keys.ToggleInverted):
		return m, m.paramsCmd(func(ctx context.Context) { m.params.ToggleInverted(ctx) })

	case key.Matches(msg, m.keys.Refresh):
		if m.differ == nil {
			return m, nil
		}
		return m, m.diffCmd(func(ctx context.Context) { m.differ.Refresh(ctx) })
	}

	if m.focusedPane == paneTree {
		return m.handleTreeKey(msg)
	}
	return m.handleSnapshotKey(msg)
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.filtering = false
		m.filterInput.Blur()
		filter := m.filterInput.Value()
		return m, m.paramsCmd(func(ctx context.Context) { m.params.SetFilter(ctx, filter) })

	case key.Matches(msg, m.keys.Cancel):
		m.filtering = false
		m.filterInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return m, cmd
}

// handleSnapshotKey processes keyboard input for the snapshot list.
func (m Model) handleSnapshotKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	count := len(m.state.Snapshots)
	if count == 0 {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Down):
		if m.selectedRow < count-1 {
			m.selectedRow++
		}
	case key.Matches(msg, m.keys.Up):
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case key.Matches(msg, m.keys.Top):
		m.selectedRow = 0
	case key.Matches(msg, m.keys.Bottom):
		m.selectedRow = count - 1
	case key.Matches(msg, m.keys.Select):
		return m, m.selectCmd()
	}
	return m, nil
}

// selectCmd selects the snapshot under the cursor for diffing. Snapshots
// that cannot be diffed are never handed to the coordinator.
func (m Model) selectCmd() tea.Cmd {
	if m.differ == nil || !m.state.IsDiffing() {
		return nil
	}
	if m.selectedRow < 0 || m.selectedRow >= len(m.state.Snapshots) {
		return nil
	}
	snap := m.state.Snapshots[m.selectedRow]
	if !snapshot.IsDiffable(snap) {
		m.log.WithFields(logrus.Fields{"snapshot": snap.ID, "state": snap.State}).Debug("snapshot not diffable")
		return nil
	}
	return m.diffCmd(func(ctx context.Context) { m.differ.SelectSnapshotForDiffingAndRefresh(ctx, snap) })
}

// handleTreeKey processes keyboard input for the delta tree.
func (m Model) handleTreeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := currentRows(m.state)
	if len(rows) == 0 || m.differ == nil {
		return m, nil
	}
	cursor := min(m.treeCursor, len(rows)-1)

	switch {
	case key.Matches(msg, m.keys.Down):
		cursor = min(cursor+1, len(rows)-1)
	case key.Matches(msg, m.keys.Up):
		cursor = max(cursor-1, 0)
	case key.Matches(msg, m.keys.Top):
		cursor = 0
	case key.Matches(msg, m.keys.Bottom):
		cursor = len(rows) - 1
	case key.Matches(msg, m.keys.Expand):
		if row := rows[cursor]; row.hasChildren && !row.expanded {
			m.differ.ExpandNode(row.node)
		}
		return m, fetchStateCmd(m.store)
	case key.Matches(msg, m.keys.Collapse):
		row := rows[cursor]
		if row.expanded {
			m.differ.CollapseNode(row.node)
		} else if parent, ok := m.parentOf(row.node); ok {
			m.differ.CollapseNode(parent)
			m.differ.FocusNode(parent)
		}
		return m, fetchStateCmd(m.store)
	default:
		return m, nil
	}

	m.treeCursor = cursor
	m.differ.FocusNode(rows[cursor].node)
	m.updateTreeViewport()
	return m, fetchStateCmd(m.store)
}

// parentOf resolves the parent of node through the census parent map. The
// root is never returned.
func (m Model) parentOf(node *census.TreeNode) (*census.TreeNode, bool) {
	c := m.state.Diffing.Census
	parentID, ok := c.ParentMap[node.ID]
	if !ok || parentID == c.Report.ID {
		return nil, false
	}
	parent := census.Find(c.Report, parentID)
	return parent, parent != nil
}

// Messages

type tickMsg time.Time

type stateMsg state.State

type logsMsg struct {
	entries []logtail.Entry
	err     error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchStateCmd(store StateSource) tea.Cmd {
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		return stateMsg(store.State())
	}
}

func readLogsCmd(path string) tea.Cmd {
	return func() tea.Msg {
		entries, err := logtail.Read(path, maxLogEntries)
		return logsMsg{entries: entries, err: err}
	}
}

// diffCmd runs a coordinator call off the update loop and reports the
// resulting state.
func (m Model) diffCmd(fn func(ctx context.Context)) tea.Cmd {
	ctx, store := m.ctx, m.store
	return func() tea.Msg {
		fn(ctx)
		if store == nil {
			return nil
		}
		return stateMsg(store.State())
	}
}

func (m Model) paramsCmd(fn func(ctx context.Context)) tea.Cmd {
	if m.params == nil {
		return nil
	}
	return m.diffCmd(fn)
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
