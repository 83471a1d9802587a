package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/heapdiff/internal/census"
)

func sampleDelta() census.Delta {
	return census.Delta{
		Report: &census.TreeNode{ID: 1, Name: "(root)", TotalCount: 2, TotalBytes: 2048, Children: []*census.TreeNode{
			{ID: 2, Name: "objects", TotalCount: 3, TotalBytes: 3072, Children: []*census.TreeNode{
				{ID: 3, Name: "Array", Count: 3, Bytes: 3072, TotalCount: 3, TotalBytes: 3072},
			}},
			{ID: 4, Name: "strings", TotalCount: -1, TotalBytes: -1024},
		}},
		ParentMap: census.ParentMap{2: 1, 3: 2, 4: 1},
	}
}

func TestWriteRendersIndentedTree(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleDelta(), Options{NoColor: true, Title: "a -> b"}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "a -> b", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "(root)"))
	assert.True(t, strings.HasPrefix(lines[2], "  objects"))
	assert.True(t, strings.HasPrefix(lines[3], "    Array"))
	assert.Contains(t, lines[3], "+3.0 KiB")
	assert.Contains(t, lines[4], "-1.0 KiB")
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestWriteHonoursMaxDepth(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleDelta(), Options{NoColor: true, MaxDepth: 1}))

	assert.NotContains(t, buf.String(), "Array")
	assert.Contains(t, buf.String(), "strings")
}

func TestWriteWithoutReport(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, census.Delta{}, Options{}))
}

func TestFormatBytes(t *testing.T) {
	cases := map[int64]string{
		0:        "0 B",
		12:       "+12 B",
		-12:      "-12 B",
		1536:     "+1.5 KiB",
		-3 << 20: "-3.0 MiB",
		5 << 30:  "+5.0 GiB",
	}
	for in, want := range cases {
		if got := FormatBytes(in); got != want {
			t.Fatalf("FormatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatCount(t *testing.T) {
	assert.Equal(t, "+4", FormatCount(4))
	assert.Equal(t, "-4", FormatCount(-4))
	assert.Equal(t, "0", FormatCount(0))
}
