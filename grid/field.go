package grid

import "fmt"

// Field stores one float64 sample per cell of a Grid in flat-offset order.
type Field struct {
	grid *Grid
	data []float64
}

// NewField allocates a field over g with every sample set to fill.
func NewField(g *Grid, fill float64) *Field {
	data := make([]float64, g.Len())
	if fill != 0 {
		for i := range data {
			data[i] = fill
		}
	}

	return &Field{grid: g, data: data}
}

// FromSlice wraps data (flat-offset order) as a field over g. data is not copied.
// Returns ErrDimensionMismatch if len(data) != g.Len().
func FromSlice(g *Grid, data []float64) (*Field, error) {
	if len(data) != g.Len() {
		return nil, fmt.Errorf("%w: %d samples for %d cells", ErrDimensionMismatch, len(data), g.Len())
	}

	return &Field{grid: g, data: data}, nil
}

// From2D builds a 2D field from rows of samples: values[y][x] becomes the cell
// at Index{x, y}. The input is deep-copied.
// Returns ErrEmptyGrid if values has no rows or no columns,
// ErrNonRectangular if any row length differs.
// Complexity: O(W×H) time and memory.
func From2D(values [][]float64, opts ...Option) (*Field, error) {
	if len(values) == 0 || len(values[0]) == 0 {
		return nil, ErrEmptyGrid
	}
	h, w := len(values), len(values[0])
	for _, row := range values {
		if len(row) != w {
			return nil, ErrNonRectangular
		}
	}
	g, err := New([]int{w, h}, opts...)
	if err != nil {
		return nil, err
	}
	data := make([]float64, 0, w*h)
	for y := 0; y < h; y++ {
		data = append(data, values[y]...)
	}

	return &Field{grid: g, data: data}, nil
}

// Grid returns the grid the field is sampled on.
func (f *Field) Grid() *Grid { return f.grid }

// Data exposes the underlying samples in flat-offset order.
func (f *Field) Data() []float64 { return f.data }

// AtOffset returns the sample at a flat offset. No bounds check beyond the slice's.
func (f *Field) AtOffset(offset int) float64 { return f.data[offset] }

// SetOffset stores v at a flat offset.
func (f *Field) SetOffset(offset int, v float64) { f.data[offset] = v }

// At returns the sample at idx, or ErrOutOfRange / ErrDimensionMismatch.
func (f *Field) At(idx Index) (float64, error) {
	off, err := f.grid.Offset(idx)
	if err != nil {
		return 0, err
	}

	return f.data[off], nil
}

// Set stores v at idx, or returns ErrOutOfRange / ErrDimensionMismatch.
func (f *Field) Set(idx Index, v float64) error {
	off, err := f.grid.Offset(idx)
	if err != nil {
		return err
	}
	f.data[off] = v

	return nil
}

// Fill sets every sample of r to v. Cells of r outside the grid are ignored.
func (f *Field) Fill(r Region, v float64) {
	cropped, ok := r.Crop(f.grid.Bounds())
	if !ok {
		return
	}
	forEach(cropped, func(idx Index) {
		f.data[f.grid.offset(idx)] = v
	})
}

// Clone returns a deep copy of f sharing the (immutable) grid.
func (f *Field) Clone() *Field {
	return &Field{grid: f.grid, data: append([]float64(nil), f.data...)}
}

// Crop copies the samples of r into a new field whose grid has r's shape,
// the same spacing, and its origin at the physical point of r.Start.
// Returns ErrRegion if r is not inside the field's grid.
// Complexity: O(|r|).
func (f *Field) Crop(r Region) (*Field, error) {
	sub, err := f.grid.Sub(r)
	if err != nil {
		return nil, err
	}
	out := NewField(sub, 0)
	local := make(Index, r.Dims())
	forEach(r, func(idx Index) {
		for d := range idx {
			local[d] = idx[d] - r.Start[d]
		}
		out.data[sub.offset(local)] = f.data[f.grid.offset(idx)]
	})

	return out, nil
}

// forEach visits every index of r in flat-offset order (axis 0 fastest).
// The Index passed to fn is reused between calls.
func forEach(r Region, fn func(Index)) {
	if r.Len() == 0 {
		return
	}
	idx := r.Start.Clone()
	for {
		fn(idx)
		d := 0
		for ; d < len(idx); d++ {
			idx[d]++
			if idx[d] < r.Start[d]+r.Size[d] {
				break
			}
			idx[d] = r.Start[d]
		}
		if d == len(idx) {
			return
		}
	}
}
