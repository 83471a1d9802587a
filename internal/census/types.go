// Package census aggregates heap snapshots into census trees and computes
// the delta between two of them.
package census

import "fmt"

// Breakdown names the grouping scheme used to bucket heap objects.
type Breakdown string

const (
	BreakdownCoarseType      Breakdown = "coarseType"
	BreakdownObjectClass     Breakdown = "objectClass"
	BreakdownInternalType    Breakdown = "internalType"
	BreakdownAllocationStack Breakdown = "allocationStack"
)

var breakdownOrder = []Breakdown{
	BreakdownCoarseType,
	BreakdownObjectClass,
	BreakdownInternalType,
	BreakdownAllocationStack,
}

// Breakdowns returns the supported breakdowns in display order.
func Breakdowns() []Breakdown {
	return append([]Breakdown(nil), breakdownOrder...)
}

// Valid reports whether b is a known breakdown.
func (b Breakdown) Valid() bool {
	for _, known := range breakdownOrder {
		if b == known {
			return true
		}
	}
	return false
}

// ParseBreakdown validates a breakdown name.
func ParseBreakdown(name string) (Breakdown, error) {
	b := Breakdown(name)
	if !b.Valid() {
		return "", fmt.Errorf("unknown breakdown %q", name)
	}
	return b, nil
}

// NextBreakdown returns the breakdown after current in the cycle.
func NextBreakdown(current Breakdown) Breakdown {
	for i, b := range breakdownOrder {
		if b == current {
			return breakdownOrder[(i+1)%len(breakdownOrder)]
		}
	}
	return breakdownOrder[0]
}

// Display is how a census is shaped for rendering. It is a value type: two
// displays are the same display exactly when they compare equal.
type Display struct {
	Breakdown Breakdown `json:"breakdown"`
	Inverted  bool      `json:"inverted"`
}

// DefaultDisplay is the display used when nothing else is configured.
func DefaultDisplay() Display {
	return Display{Breakdown: BreakdownCoarseType}
}

func (d Display) String() string {
	if d.Inverted {
		return string(d.Breakdown) + " (inverted)"
	}
	return string(d.Breakdown)
}

// BreakdownSpec is the breakdown half of a census request.
type BreakdownSpec struct {
	Breakdown Breakdown `json:"breakdown"`
}

// TreeOptions shapes the tree a census request produces. An empty Filter
// means no filtering.
type TreeOptions struct {
	Inverted bool   `json:"inverted"`
	Filter   string `json:"filter,omitempty"`
}

// TreeNode is one bucket of a census or delta tree. Count and Bytes cover
// objects bucketed exactly at this node; the Total fields include children.
// In a delta tree every value is second minus first.
type TreeNode struct {
	ID         int         `json:"id"`
	Name       string      `json:"name"`
	Count      int64       `json:"count"`
	Bytes      int64       `json:"bytes"`
	TotalCount int64       `json:"total_count"`
	TotalBytes int64       `json:"total_bytes"`
	Children   []*TreeNode `json:"children,omitempty"`
}

// ParentMap maps a node id to its parent's id. The root has no entry.
type ParentMap map[int]int

// Delta is the result of diffing two censuses.
type Delta struct {
	Report    *TreeNode `json:"report"`
	ParentMap ParentMap `json:"parent_map"`
}

// UpToDate reports whether a result tagged with taggedFilter and
// taggedDisplay still matches the current filter and display.
func UpToDate(filter string, display Display, taggedFilter string, taggedDisplay Display) bool {
	return filter == taggedFilter && display == taggedDisplay
}

// Find returns the node with the given id, or nil.
func Find(root *TreeNode, id int) *TreeNode {
	if root == nil {
		return nil
	}
	if root.ID == id {
		return root
	}
	for _, child := range root.Children {
		if found := Find(child, id); found != nil {
			return found
		}
	}
	return nil
}

// Walk visits every node depth first, parents before children. Returning
// false from fn skips the node's children.
func Walk(root *TreeNode, fn func(node *TreeNode, depth int) bool) {
	walk(root, 0, fn)
}

func walk(node *TreeNode, depth int, fn func(*TreeNode, int) bool) {
	if node == nil {
		return
	}
	if !fn(node, depth) {
		return
	}
	for _, child := range node.Children {
		walk(child, depth+1, fn)
	}
}
