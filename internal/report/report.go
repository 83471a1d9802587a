// Package report renders a delta census as indented text for terminals and
// pipelines.
package report

import (
	"fmt"
	"io"
	"strings"

	fcolor "github.com/fatih/color"

	"github.com/five82/heapdiff/internal/census"
)

// Options controls rendering.
type Options struct {
	// MaxDepth limits how many levels below the root are printed. Zero
	// prints the whole tree.
	MaxDepth int
	// NoColor disables ANSI colors regardless of the terminal.
	NoColor bool
	// Title is printed above the tree when set.
	Title string
}

type palette struct {
	title  *fcolor.Color
	grew   *fcolor.Color
	shrank *fcolor.Color
	flat   *fcolor.Color
}

func newPalette(noColor bool) palette {
	p := palette{
		title:  fcolor.New(fcolor.Bold),
		grew:   fcolor.New(fcolor.FgRed),
		shrank: fcolor.New(fcolor.FgGreen),
		flat:   fcolor.New(fcolor.Faint),
	}
	if noColor {
		for _, c := range []*fcolor.Color{p.title, p.grew, p.shrank, p.flat} {
			c.DisableColor()
		}
	}
	return p
}

// Write prints delta to w. Growth is red, shrinkage green.
func Write(w io.Writer, delta census.Delta, opts Options) error {
	if delta.Report == nil {
		return fmt.Errorf("delta has no report")
	}
	p := newPalette(opts.NoColor)

	if opts.Title != "" {
		if _, err := p.title.Fprintln(w, opts.Title); err != nil {
			return err
		}
	}

	var werr error
	census.Walk(delta.Report, func(node *census.TreeNode, depth int) bool {
		if werr != nil {
			return false
		}
		c := p.flat
		switch {
		case node.TotalBytes > 0:
			c = p.grew
		case node.TotalBytes < 0:
			c = p.shrank
		}
		line := fmt.Sprintf("%s%-*s %12s %10s",
			strings.Repeat("  ", depth),
			nameWidth(depth), node.Name,
			FormatBytes(node.TotalBytes),
			FormatCount(node.TotalCount),
		)
		if _, err := c.Fprintln(w, line); err != nil {
			werr = err
			return false
		}
		return opts.MaxDepth == 0 || depth < opts.MaxDepth
	})
	return werr
}

func nameWidth(depth int) int {
	width := 40 - 2*depth
	if width < 12 {
		width = 12
	}
	return width
}

// FormatBytes renders a signed byte delta with a binary unit, e.g. "+1.5 KiB".
func FormatBytes(n int64) string {
	sign := "+"
	if n < 0 {
		sign = "-"
		n = -n
	}
	if n == 0 {
		return "0 B"
	}
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%s%d B", sign, n)
	}
	value := float64(n)
	suffixes := []string{"KiB", "MiB", "GiB", "TiB"}
	i := -1
	for value >= unit && i < len(suffixes)-1 {
		value /= unit
		i++
	}
	return fmt.Sprintf("%s%.1f %s", sign, value, suffixes[i])
}

// FormatCount renders a signed object count delta.
func FormatCount(n int64) string {
	if n > 0 {
		return fmt.Sprintf("+%d", n)
	}
	return fmt.Sprintf("%d", n)
}
