package census

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// take builds the census tree for a single snapshot.
func take(snap *HeapSnapshot, spec BreakdownSpec, opts TreeOptions) Delta {
	b := newBuilder()
	if snap != nil {
		b.add(snap, spec.Breakdown, opts, 1)
	}
	return b.finish(false)
}

func firstSnapshot() *HeapSnapshot {
	return &HeapSnapshot{Objects: []ObjectGroup{
		{CoarseType: "objects", Class: "Array", Count: 2, Bytes: 64},
		{CoarseType: "strings", InternalType: "JSString", Count: 10, Bytes: 200},
	}}
}

func secondSnapshot() *HeapSnapshot {
	return &HeapSnapshot{Objects: []ObjectGroup{
		{CoarseType: "objects", Class: "Array", Count: 5, Bytes: 160},
		{CoarseType: "strings", InternalType: "JSString", Count: 10, Bytes: 200},
		{CoarseType: "scripts", InternalType: "JSScript", Count: 1, Bytes: 500},
	}}
}

func TestDiff_CoarseTypePrunesUnchangedBuckets(t *testing.T) {
	got := Diff(firstSnapshot(), secondSnapshot(), BreakdownSpec{Breakdown: BreakdownCoarseType}, TreeOptions{})

	want := &TreeNode{
		ID: 1, Name: rootName, TotalCount: 4, TotalBytes: 596,
		Children: []*TreeNode{
			{
				ID: 2, Name: "scripts", TotalCount: 1, TotalBytes: 500,
				Children: []*TreeNode{
					{ID: 3, Name: "JSScript", Count: 1, Bytes: 500, TotalCount: 1, TotalBytes: 500},
				},
			},
			{
				ID: 4, Name: "objects", TotalCount: 3, TotalBytes: 96,
				Children: []*TreeNode{
					{ID: 5, Name: "Array", Count: 3, Bytes: 96, TotalCount: 3, TotalBytes: 96},
				},
			},
		},
	}
	if diff := cmp.Diff(want, got.Report); diff != "" {
		t.Fatalf("delta report mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, ParentMap{2: 1, 3: 2, 4: 1, 5: 4}, got.ParentMap)
}

func TestDiff_NegativeDeltaWhenObjectsFreed(t *testing.T) {
	got := Diff(secondSnapshot(), firstSnapshot(), BreakdownSpec{Breakdown: BreakdownObjectClass}, TreeOptions{})

	require.NotNil(t, got.Report)
	assert.Equal(t, int64(-4), got.Report.TotalCount)
	assert.Equal(t, int64(-596), got.Report.TotalBytes)
	require.Len(t, got.Report.Children, 2)
	assert.Equal(t, unknownBucket, got.Report.Children[0].Name)
	assert.Equal(t, "Array", got.Report.Children[1].Name)
}

func TestTake_InvertedReversesPaths(t *testing.T) {
	got := take(secondSnapshot(), BreakdownSpec{Breakdown: BreakdownCoarseType}, TreeOptions{Inverted: true})

	require.Len(t, got.Report.Children, 3)
	names := make([]string, 0, 3)
	for _, child := range got.Report.Children {
		names = append(names, child.Name)
	}
	assert.Equal(t, []string{"JSScript", "JSString", "Array"}, names)
	require.Len(t, got.Report.Children[0].Children, 1)
	assert.Equal(t, "scripts", got.Report.Children[0].Children[0].Name)
}

func TestTake_FilterMatchesAnySegment(t *testing.T) {
	spec := BreakdownSpec{Breakdown: BreakdownCoarseType}

	got := take(secondSnapshot(), spec, TreeOptions{Filter: "SCRIPT"})
	require.Len(t, got.Report.Children, 1)
	assert.Equal(t, "scripts", got.Report.Children[0].Name)
	assert.Equal(t, int64(500), got.Report.TotalBytes)

	got = take(secondSnapshot(), spec, TreeOptions{Filter: "array"})
	require.Len(t, got.Report.Children, 1)
	assert.Equal(t, "objects", got.Report.Children[0].Name)
}

func TestTake_AllocationStack(t *testing.T) {
	snap := &HeapSnapshot{Objects: []ObjectGroup{
		{CoarseType: "objects", Count: 1, Bytes: 32, Stack: []string{"main.js:1", "alloc.js:9"}},
		{CoarseType: "objects", Count: 1, Bytes: 16},
	}}

	got := take(snap, BreakdownSpec{Breakdown: BreakdownAllocationStack}, TreeOptions{})
	require.Len(t, got.Report.Children, 2)
	assert.Equal(t, "main.js:1", got.Report.Children[0].Name)
	assert.Equal(t, "alloc.js:9", got.Report.Children[0].Children[0].Name)
	assert.Equal(t, noStackBucket, got.Report.Children[1].Name)

	inverted := take(snap, BreakdownSpec{Breakdown: BreakdownAllocationStack}, TreeOptions{Inverted: true})
	assert.Equal(t, "alloc.js:9", inverted.Report.Children[0].Name)
	// The source snapshot must not be reordered by inversion.
	assert.Equal(t, "main.js:1", snap.Objects[0].Stack[0])
}

func TestFindAndWalk(t *testing.T) {
	got := Diff(firstSnapshot(), secondSnapshot(), BreakdownSpec{Breakdown: BreakdownCoarseType}, TreeOptions{})

	node := Find(got.Report, 5)
	require.NotNil(t, node)
	assert.Equal(t, "Array", node.Name)
	assert.Nil(t, Find(got.Report, 99))

	var visited []int
	Walk(got.Report, func(n *TreeNode, depth int) bool {
		visited = append(visited, n.ID)
		return n.Name != "scripts"
	})
	assert.Equal(t, []int{1, 2, 4, 5}, visited)
}

func TestUpToDateComparesByValue(t *testing.T) {
	a := Display{Breakdown: BreakdownCoarseType}
	b := Display{Breakdown: BreakdownCoarseType}
	assert.True(t, UpToDate("", a, "", b))
	assert.False(t, UpToDate("x", a, "", b))
	assert.False(t, UpToDate("", a, "", Display{Breakdown: BreakdownCoarseType, Inverted: true}))
}

func TestNextBreakdownCycles(t *testing.T) {
	b := BreakdownCoarseType
	for range Breakdowns() {
		b = NextBreakdown(b)
	}
	assert.Equal(t, BreakdownCoarseType, b)
	assert.Equal(t, BreakdownCoarseType, NextBreakdown("bogus"))

	_, err := ParseBreakdown("bogus")
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	snap, err := Parse(strings.NewReader(`{"objects":[{"coarseType":"objects","class":"Map","count":2,"bytes":48}]}`))
	require.NoError(t, err)
	require.Len(t, snap.Objects, 1)
	assert.Equal(t, "Map", snap.Objects[0].Class)

	_, err = Parse(strings.NewReader(`{"objects":[{"count":-1}]}`))
	assert.ErrorContains(t, err, "negative")

	_, err = Parse(strings.NewReader(`{not json`))
	assert.ErrorContains(t, err, "decode snapshot")
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.heapsnapshot.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"objects":[]}`), 0o600))

	snap, err := ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, snap.Objects)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "open snapshot")
}
