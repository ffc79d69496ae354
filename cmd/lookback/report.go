package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/born-ml/lookback/internal/backend/webgpu"
	"github.com/born-ml/lookback/internal/scan"
	"github.com/fatih/color"
	"golang.org/x/term"
)

type colors struct {
	pass, fail, dim, head *color.Color
	tags                  map[scan.Tag]*color.Color
}

// palette returns the colors for w; they are disabled unless w is a terminal.
func palette(w io.Writer) colors {
	c := colors{
		pass: color.New(color.FgGreen, color.Bold),
		fail: color.New(color.FgRed, color.Bold),
		dim:  color.New(color.Faint),
		head: color.New(color.FgCyan, color.Bold),
		tags: map[scan.Tag]*color.Color{
			scan.Uninitialized:     color.New(color.FgRed),
			scan.AggregateKnown:    color.New(color.FgYellow),
			scan.AggregateZero:     color.New(color.FgYellow, color.Faint),
			scan.GlobalPrefixKnown: color.New(color.FgGreen),
			scan.GlobalPrefixZero:  color.New(color.FgGreen, color.Faint),
		},
	}
	if !isTerminal(w) {
		for _, col := range []*color.Color{c.pass, c.fail, c.dim, c.head} {
			col.DisableColor()
		}
		for _, col := range c.tags {
			col.DisableColor()
		}
	}
	return c
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (c colors) tag(t scan.Tag) string {
	if col, ok := c.tags[t]; ok {
		return col.Sprint(t.String())
	}
	return t.String()
}

func (c colors) verdict(ok bool) string {
	if ok {
		return c.pass.Sprint("PASS")
	}
	return c.fail.Sprint("FAIL")
}

// printPlan writes one line per level of the ladder.
func printPlan(w io.Writer, c colors, plan []scan.LevelPlan) {
	fmt.Fprintln(w, c.head.Sprint("ladder"))
	for k, lv := range plan {
		fmt.Fprintf(w, "  level %d: %d elements, %d blocks, %s\n", k, lv.Length, lv.Blocks, lv.Pass)
	}
}

// printTrace dumps the final State Cells of every level, at most limit per level.
func printTrace(w io.Writer, c colors, tr *scan.Trace, limit int) {
	if tr == nil {
		fmt.Fprintln(w, c.dim.Sprint("no trace recorded"))
		return
	}
	for k, lv := range tr.Levels {
		fmt.Fprintf(w, "%s %d: %s pass, %d blocks, claimed %d\n",
			c.head.Sprint("level"), k, lv.Pass, lv.Blocks, lv.Claimed)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  block\ttag\taggregate\tprefix\tinclusive")
		for b, cell := range lv.Cells {
			if b == limit {
				fmt.Fprintf(tw, "  %s\n", c.dim.Sprintf("... %d more", len(lv.Cells)-limit))
				break
			}
			fmt.Fprintf(tw, "  %d\t%s\t%g\t%g\t%g\n", b, c.tag(cell.Tag), cell.Aggregate, cell.Prefix, cell.Inclusive)
		}
		tw.Flush()
	}
	if !tr.AllResolved() {
		fmt.Fprintln(w, c.fail.Sprint("unresolved cells remain"))
	}
}

// printMemory writes the device buffer statistics after a GPU scan.
func printMemory(w io.Writer, c colors, m webgpu.MemoryStats) {
	fmt.Fprintf(w, "%s %d active buffers, %d bytes held, peak %d bytes\n",
		c.head.Sprint("memory"), m.ActiveBuffers, m.TotalAllocatedBytes, m.PeakMemoryBytes)
	fmt.Fprintf(w, "  pool: %d hits, %d misses, %d idle buffers\n", m.PoolHits, m.PoolMisses, m.PooledBuffers)
}

func joinOr(s []string, none string) string {
	if len(s) == 0 {
		return none
	}
	return strings.Join(s, ", ")
}
