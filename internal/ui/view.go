package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/five82/heapdiff/internal/logtail"
	"github.com/five82/heapdiff/internal/report"
	"github.com/five82/heapdiff/internal/snapshot"
	"github.com/five82/heapdiff/internal/state"
)

// chrome is the number of lines used by header, footer and pane borders.
const chrome = 4

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	right := m.renderTreePane()
	if m.showLogs {
		right = m.renderLogPane()
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.renderSnapshotPane(), right))
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) contentHeight() int {
	return max(m.height-chrome, 1)
}

func (m Model) treePaneWidth() int {
	return max(m.width-snapshotPaneWidth-4, 20)
}

func (m *Model) resizeTree() {
	m.treeViewport.Width = m.treePaneWidth()
	m.treeViewport.Height = m.contentHeight()
}

// updateTreeViewport re-renders the tree and scrolls the cursor into view.
func (m *Model) updateTreeViewport() {
	if !m.ready {
		return
	}
	m.treeViewport.SetContent(strings.Join(m.renderTreeLines(m.treeViewport.Width), "\n"))

	top := m.treeViewport.YOffset
	height := m.treeViewport.Height
	switch {
	case m.treeCursor < top:
		m.treeViewport.SetYOffset(m.treeCursor)
	case height > 0 && m.treeCursor >= top+height:
		m.treeViewport.SetYOffset(m.treeCursor - height + 1)
	}
}

func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	mode := "census"
	if m.state.IsDiffing() {
		mode = "diffing"
	}

	parts := []string{
		styles.Logo.Render("heapdiff"),
		styles.AccentText.Render(mode),
		styles.Text.Render(m.state.Display.String()),
	}
	if m.filtering {
		parts = append(parts, m.filterInput.View())
	} else if m.state.Filter != "" {
		parts = append(parts, styles.InfoText.Render("/"+m.state.Filter))
	}
	if m.state.IsOffline() {
		parts = append(parts, styles.DangerText.Render("OFFLINE"))
	} else if m.state.ListError != nil {
		parts = append(parts, styles.WarningText.Render("list failed"))
	}
	return styles.Header.Width(max(m.width, 1)).Render(strings.Join(parts, "  "))
}

func (m Model) renderFooter() string {
	styles := m.theme.Styles()
	var hints []string
	for _, binding := range m.keys.ShortHelp() {
		h := binding.Help()
		hints = append(hints, h.Key+" "+h.Desc)
	}
	status := m.diffStatus()
	line := status + "  " + styles.FaintText.Render(strings.Join(hints, " · "))
	return styles.Footer.Width(max(m.width, 1)).Render(line)
}

func (m Model) diffStatus() string {
	styles := m.theme.Styles()
	d := m.state.Diffing
	if d == nil {
		return styles.MutedText.Render("not diffing")
	}
	pair := pairLabel(m.state, d)
	switch d.State {
	case state.DiffInFlight:
		return styles.InfoText.Render("computing " + pair)
	case state.DiffReady:
		if d.Census != nil && d.Census.Report != nil {
			return styles.SuccessText.Render(pair+" ") +
				styles.DeltaStyle(d.Census.Report.TotalBytes).Render(report.FormatBytes(d.Census.Report.TotalBytes))
		}
		return styles.SuccessText.Render(pair)
	case state.DiffError:
		return styles.DangerText.Render("error: " + errString(d.Err))
	default:
		return styles.MutedText.Render(pair)
	}
}

func pairLabel(st state.State, d *state.Diffing) string {
	label := func(id string) string {
		if id == "" {
			return "?"
		}
		if s, ok := st.Snapshot(id); ok {
			return s.Label()
		}
		return id
	}
	return label(d.FirstSnapshotID) + " → " + label(d.SecondSnapshotID)
}

func (m Model) renderSnapshotPane() string {
	styles := m.theme.Styles()
	width := snapshotPaneWidth
	height := m.contentHeight()

	var lines []string
	if len(m.state.Snapshots) == 0 {
		lines = append(lines, styles.MutedText.Render("No snapshots."))
	}
	for i, snap := range m.state.Snapshots {
		lines = append(lines, m.renderSnapshotRow(i, snap, width))
	}
	if len(lines) > height {
		start := min(max(m.selectedRow-height+1, 0), len(lines)-height)
		lines = lines[start : start+height]
	}

	pane := styles.Pane
	if m.focusedPane == paneSnapshots {
		pane = styles.FocusedPane
	}
	return pane.Width(width).Height(height).Render(strings.Join(lines, "\n"))
}

func (m Model) renderSnapshotRow(i int, snap snapshot.Snapshot, width int) string {
	styles := m.theme.Styles()
	marker := "  "
	if d := m.state.Diffing; d != nil {
		switch snap.ID {
		case d.FirstSnapshotID:
			marker = "A "
		case d.SecondSnapshotID:
			marker = "B "
		}
	}
	badge := styles.StatusStyle(snap.State).Render(string(snap.State))
	nameWidth := max(width-lipgloss.Width(badge)-4, 4)
	name := fmt.Sprintf("%-*s", nameWidth, truncate(snap.Label(), nameWidth))

	if i == m.selectedRow && m.focusedPane == paneSnapshots {
		return styles.Selected.Render(marker+name) + " " + badge
	}
	return styles.AccentText.Render(marker) + styles.Text.Render(name) + " " + badge
}

func (m Model) renderTreePane() string {
	styles := m.theme.Styles()
	pane := styles.Pane
	if m.focusedPane == paneTree {
		pane = styles.FocusedPane
	}
	return pane.Width(m.treePaneWidth()).Height(m.contentHeight()).Render(m.treeViewport.View())
}

func (m Model) renderLogPane() string {
	styles := m.theme.Styles()
	width := m.treePaneWidth()
	height := m.contentHeight()

	var lines []string
	switch {
	case m.logErr != nil:
		lines = []string{styles.DangerText.Render("log: " + m.logErr.Error())}
	case len(m.logEntries) == 0:
		lines = []string{styles.MutedText.Render("No log entries.")}
	default:
		entries := m.logEntries[max(len(m.logEntries)-height, 0):]
		for _, e := range entries {
			lines = append(lines, m.logLineStyle(e).Render(truncate(e.String(), width)))
		}
	}
	return styles.FocusedPane.Width(width).Height(height).Render(strings.Join(lines, "\n"))
}

func (m Model) logLineStyle(e logtail.Entry) lipgloss.Style {
	styles := m.theme.Styles()
	switch {
	case e.Level <= logrus.ErrorLevel:
		return styles.DangerText
	case e.Level == logrus.WarnLevel:
		return styles.WarningText
	case e.Level >= logrus.DebugLevel:
		return styles.FaintText
	default:
		return styles.Text
	}
}

// renderHelp renders the help overlay.
func (m Model) renderHelp() string {
	styles := m.theme.Styles()
	titles := []string{"Navigation", "Tree", "Diffing", "View", "General"}

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Keyboard Shortcuts"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 30)))
	b.WriteString("\n\n")

	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Warning)).
		Width(12)
	groups := m.keys.FullHelp()
	for i, group := range groups {
		if i < len(titles) {
			b.WriteString(styles.AccentText.Bold(true).Render(titles[i]))
			b.WriteString("\n")
		}
		for _, binding := range group {
			h := binding.Help()
			b.WriteString(keyStyle.Render(h.Key))
			b.WriteString(styles.Text.Render(h.Desc))
			b.WriteString("\n")
		}
		if i < len(groups)-1 {
			b.WriteString("\n")
		}
	}

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Width(40)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(m.theme.Background)),
	)
}
