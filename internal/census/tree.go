package census

import (
	"sort"
	"strings"
)

const (
	rootName       = "(root)"
	unknownBucket  = "(unknown)"
	noStackBucket  = "(no stack)"
	otherCoarseKey = "other"
)

// Diff builds the delta tree between two snapshots: every value is the
// second snapshot's minus the first's. Buckets that did not change are
// pruned.
func Diff(first, second *HeapSnapshot, spec BreakdownSpec, opts TreeOptions) Delta {
	b := newBuilder()
	if first != nil {
		b.add(first, spec.Breakdown, opts, -1)
	}
	if second != nil {
		b.add(second, spec.Breakdown, opts, 1)
	}
	return b.finish(true)
}

// bucketPath returns the census path of an object group, outermost bucket
// first.
func bucketPath(g ObjectGroup, breakdown Breakdown) []string {
	switch breakdown {
	case BreakdownObjectClass:
		return []string{orUnknown(g.Class)}
	case BreakdownInternalType:
		return []string{orUnknown(g.InternalType)}
	case BreakdownAllocationStack:
		if len(g.Stack) == 0 {
			return []string{noStackBucket}
		}
		return append([]string(nil), g.Stack...)
	default:
		coarse := strings.TrimSpace(g.CoarseType)
		if coarse == "" {
			coarse = otherCoarseKey
		}
		leaf := g.Class
		if strings.TrimSpace(leaf) == "" {
			leaf = g.InternalType
		}
		return []string{coarse, orUnknown(leaf)}
	}
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return unknownBucket
	}
	return s
}

func matchesFilter(path []string, filter string) bool {
	if filter == "" {
		return true
	}
	needle := strings.ToLower(filter)
	for _, segment := range path {
		if strings.Contains(strings.ToLower(segment), needle) {
			return true
		}
	}
	return false
}

type buildNode struct {
	name     string
	count    int64
	bytes    int64
	children map[string]*buildNode
}

func (n *buildNode) child(name string) *buildNode {
	if n.children == nil {
		n.children = make(map[string]*buildNode)
	}
	c, ok := n.children[name]
	if !ok {
		c = &buildNode{name: name}
		n.children[name] = c
	}
	return c
}

type builder struct {
	root *buildNode
}

func newBuilder() *builder {
	return &builder{root: &buildNode{name: rootName}}
}

func (b *builder) add(snap *HeapSnapshot, breakdown Breakdown, opts TreeOptions, sign int64) {
	for _, group := range snap.Objects {
		path := bucketPath(group, breakdown)
		if opts.Inverted {
			reverse(path)
		}
		if !matchesFilter(path, opts.Filter) {
			continue
		}
		node := b.root
		for _, segment := range path {
			node = node.child(segment)
		}
		node.count += sign * group.Count
		node.bytes += sign * group.Bytes
	}
}

func (b *builder) finish(prune bool) Delta {
	parents := make(ParentMap)
	nextID := 1
	root := convert(b.root, prune, true)
	assignIDs(root, 0, &nextID, parents)
	return Delta{Report: root, ParentMap: parents}
}

func convert(n *buildNode, prune, isRoot bool) *TreeNode {
	out := &TreeNode{
		Name:       n.name,
		Count:      n.count,
		Bytes:      n.bytes,
		TotalCount: n.count,
		TotalBytes: n.bytes,
	}
	for _, c := range n.children {
		child := convert(c, prune, false)
		if child == nil {
			continue
		}
		out.TotalCount += child.TotalCount
		out.TotalBytes += child.TotalBytes
		out.Children = append(out.Children, child)
	}
	if prune && !isRoot && len(out.Children) == 0 && out.Count == 0 && out.Bytes == 0 {
		return nil
	}
	sort.Slice(out.Children, func(i, j int) bool {
		a, b := abs(out.Children[i].TotalBytes), abs(out.Children[j].TotalBytes)
		if a != b {
			return a > b
		}
		return out.Children[i].Name < out.Children[j].Name
	})
	return out
}

func assignIDs(node *TreeNode, parent int, next *int, parents ParentMap) {
	node.ID = *next
	*next++
	if parent != 0 {
		parents[node.ID] = parent
	}
	for _, child := range node.Children {
		assignIDs(child, node.ID, next, parents)
	}
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
