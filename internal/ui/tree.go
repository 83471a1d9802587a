package ui

import (
	"fmt"
	"strings"

	"github.com/five82/heapdiff/internal/census"
	"github.com/five82/heapdiff/internal/report"
	"github.com/five82/heapdiff/internal/state"
)

// treeRow is one visible line of the delta tree.
type treeRow struct {
	node        *census.TreeNode
	depth       int
	expanded    bool
	hasChildren bool
}

// visibleRows flattens the delta tree below the root, descending only into
// expanded nodes.
func visibleRows(root *census.TreeNode, expanded map[int]bool) []treeRow {
	if root == nil {
		return nil
	}
	var rows []treeRow
	var visit func(node *census.TreeNode, depth int)
	visit = func(node *census.TreeNode, depth int) {
		open := expanded[node.ID]
		rows = append(rows, treeRow{
			node:        node,
			depth:       depth,
			expanded:    open,
			hasChildren: len(node.Children) > 0,
		})
		if !open {
			return
		}
		for _, child := range node.Children {
			visit(child, depth+1)
		}
	}
	for _, child := range root.Children {
		visit(child, 0)
	}
	return rows
}

// rowIndex returns the index of the row showing node id, or -1.
func rowIndex(rows []treeRow, id int) int {
	for i, row := range rows {
		if row.node.ID == id {
			return i
		}
	}
	return -1
}

// currentRows returns the visible rows of the committed diff, if any.
func currentRows(st state.State) []treeRow {
	if st.Diffing == nil || st.Diffing.Census == nil {
		return nil
	}
	return visibleRows(st.Diffing.Census.Report, st.Diffing.Census.Expanded)
}

func (m Model) renderTreeLines(width int) []string {
	styles := m.theme.Styles()
	rows := currentRows(m.state)
	if len(rows) == 0 {
		return []string{styles.MutedText.Render(m.emptyTreeMessage())}
	}

	nameWidth := width - 26
	if nameWidth < 10 {
		nameWidth = 10
	}
	lines := make([]string, 0, len(rows))
	for i, row := range rows {
		marker := "  "
		if row.hasChildren {
			marker = "▸ "
			if row.expanded {
				marker = "▾ "
			}
		}
		label := strings.Repeat("  ", row.depth) + marker + row.node.Name
		label = truncate(label, nameWidth)
		bytes := fmt.Sprintf("%12s", report.FormatBytes(row.node.TotalBytes))
		count := fmt.Sprintf("%9s", report.FormatCount(row.node.TotalCount))

		if i == m.treeCursor && m.focusedPane == paneTree {
			line := fmt.Sprintf("%-*s %s %s", nameWidth, label, bytes, count)
			lines = append(lines, styles.Selected.Render(line))
			continue
		}
		line := styles.Text.Render(fmt.Sprintf("%-*s ", nameWidth, label)) +
			styles.DeltaStyle(row.node.TotalBytes).Render(bytes) + " " +
			styles.MutedText.Render(count)
		lines = append(lines, line)
	}
	return lines
}

func (m Model) emptyTreeMessage() string {
	d := m.state.Diffing
	switch {
	case d == nil:
		return "Press d to compare two snapshots."
	case d.FirstSnapshotID == "":
		return "Select the first snapshot (space)."
	case d.SecondSnapshotID == "":
		return "Select the second snapshot (space)."
	case d.State == state.DiffInFlight:
		return "Computing delta census…"
	case d.State == state.DiffError:
		return "Diff failed: " + errString(d.Err)
	case d.Census != nil:
		return "No changes between the selected snapshots."
	default:
		return "Press r to compute the diff."
	}
}

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if width <= 0 || len(runes) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(runes[:width-1]) + "…"
}
