package main

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/katalvlaran/fastmarch/fastmarch"
	"github.com/katalvlaran/fastmarch/scenario"
)

// report prints the run summary and, with dump, every cell's output time.
func report(w io.Writer, sc *scenario.Scenario, res *fastmarch.Result, dump bool) error {
	g := res.Times.Grid()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "scenario:\t%s\n", sc.Path)
	fmt.Fprintf(tw, "grid:\t%s (%d cells)\n", shape(g.Size()), g.Len())
	fmt.Fprintf(tw, "region:\t%s\n", res.Region)
	fmt.Fprintf(tw, "speed:\tmin %s, max %s, %d impassable\n", num(sc.SpeedMin), num(sc.SpeedMax), sc.Impassable)
	fmt.Fprintf(tw, "components:\t%d\n", sc.Components)
	fmt.Fprintf(tw, "stop reason:\t%s\n", res.StopReason)
	fmt.Fprintf(tw, "alive:\t%d\n", res.CountLabel(fastmarch.Alive))
	fmt.Fprintf(tw, "trial:\t%d\n", res.CountLabel(fastmarch.Trial))
	fmt.Fprintf(tw, "far:\t%d\n", res.CountLabel(fastmarch.Far))
	fmt.Fprintf(tw, "target value:\t%s\n", num(res.TargetValue))
	fmt.Fprintf(tw, "reached targets:\t%d/%d\n", res.ReachedCount, len(sc.Targets))
	for _, n := range res.ReachedTargets {
		fmt.Fprintf(tw, "  %s\tt=%s\n", n.Index, num(n.Time))
	}
	if len(sc.Isolated) > 0 {
		fmt.Fprintf(tw, "isolated targets:\t%d\n", len(sc.Isolated))
		for _, idx := range sc.Isolated {
			fmt.Fprintf(tw, "  %s\t\n", idx)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if !dump {
		return nil
	}

	fmt.Fprintln(w)
	if g.Dims() == 2 {
		// one line per row, axis 0 left to right
		data := res.Times.Data()
		nx := g.AxisSize(0)
		for y := 0; y < g.AxisSize(1); y++ {
			row := make([]string, nx)
			for x := range row {
				row[x] = num(data[y*nx+x])
			}
			fmt.Fprintln(w, strings.Join(row, " "))
		}
		return nil
	}
	for off, v := range res.Times.Data() {
		fmt.Fprintf(w, "%s %s %s\n", g.Index(off), res.Labels[off], num(v))
	}

	return nil
}

func shape(size []int) string {
	parts := make([]string, len(size))
	for i, s := range size {
		parts[i] = strconv.Itoa(s)
	}

	return strings.Join(parts, "x")
}

func num(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	return strconv.FormatFloat(v, 'g', 6, 64)
}
