package fastmarch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/katalvlaran/fastmarch/grid"
)

// GradientField holds one gradient vector per cell, cell-major:
// component d of the cell at offset lives at data[offset*dims+d].
// Cells that never became Alive keep a zero vector.
type GradientField struct {
	grid *grid.Grid
	dims int
	data []float64
}

func newGradientField(g *grid.Grid) *GradientField {
	return &GradientField{grid: g, dims: g.Dims(), data: make([]float64, g.Len()*g.Dims())}
}

// Grid returns the grid the gradients are sampled on.
func (gf *GradientField) Grid() *grid.Grid { return gf.grid }

// Data exposes the backing slice (cell-major, Dims() components per cell).
func (gf *GradientField) Data() []float64 { return gf.data }

// AtOffset returns the gradient of the cell at offset. The slice aliases the field.
func (gf *GradientField) AtOffset(offset int) []float64 {
	return gf.data[offset*gf.dims : (offset+1)*gf.dims : (offset+1)*gf.dims]
}

// At returns a copy of the gradient at idx.
func (gf *GradientField) At(idx grid.Index) ([]float64, error) {
	off, err := gf.grid.Offset(idx)
	if err != nil {
		return nil, err
	}

	return append([]float64(nil), gf.AtOffset(off)...), nil
}

// Magnitude returns the Euclidean norm of the gradient at offset.
func (gf *GradientField) Magnitude(offset int) float64 {
	return floats.Norm(gf.AtOffset(offset), 2)
}

// computeGradientAt writes the upwind gradient of the Alive cell at offset
// into dst. Per axis, with b = T(x) − T(x−1) and f = T(x+1) − T(x) taken
// only from Alive neighbours (0 otherwise):
//
//	max(b, −f) < 0 → 0
//	b > −f         → b / h
//	otherwise      → f / h
func computeGradientAt(g *grid.Grid, times []float64, states []Label, offset int, dst []float64) {
	t := times[offset]
	for d := range dst {
		var back, fwd float64
		if n, ok := g.Neighbor(offset, d, -1); ok && states[n] == Alive {
			back = t - times[n]
		}
		if n, ok := g.Neighbor(offset, d, +1); ok && states[n] == Alive {
			fwd = times[n] - t
		}
		switch {
		case max(back, -fwd) < 0:
			dst[d] = 0
		case back > -fwd:
			dst[d] = back / g.AxisSpacing(d)
		default:
			dst[d] = fwd / g.AxisSpacing(d)
		}
	}
}

// UpwindGradient computes the upwind gradient of every Alive cell of times.
// labels must have one entry per cell. The grid is split into slabs along
// its last axis and each slab is handled by one of at most workers goroutines;
// every worker writes only its own slab. Cancellation is checked between cells.
func UpwindGradient(ctx context.Context, times *grid.Field, labels []Label, workers int) (*GradientField, error) {
	g := times.Grid()
	if len(labels) != g.Len() {
		return nil, fmt.Errorf("%w: %d labels for %d cells", ErrLabelsMismatch, len(labels), g.Len())
	}
	if workers < 1 {
		workers = 1
	}

	gf := newGradientField(g)
	last := g.Dims() - 1
	rows, stride := g.AxisSize(last), g.Stride(last)
	if workers > rows {
		workers = rows
	}
	data := times.Data()

	eg, ctx := errgroup.WithContext(ctx)
	chunk := (rows + workers - 1) / workers
	for lo := 0; lo < rows; lo += chunk {
		from, to := lo*stride, min(lo+chunk, rows)*stride
		eg.Go(func() error {
			for off := from; off < to; off++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				if labels[off] != Alive {
					continue
				}
				computeGradientAt(g, data, labels, off, gf.AtOffset(off))
			}

			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("fastmarch: gradient: %w", err)
	}

	return gf, nil
}
