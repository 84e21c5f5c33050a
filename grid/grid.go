// Package grid provides utilities to address a dense N-dimensional lattice.
// It supports:
//
//   - Index ↔ flat offset conversion (row-major, axis 0 fastest)
//   - Bounds-checked axis neighbours on flat offsets
//   - Physical coordinates from spacing and origin
package grid

import (
	"fmt"
	"math"
)

// New constructs a Grid of the given per-axis size.
// Returns ErrEmptyGrid if size is empty or any axis length is ≤ 0,
// ErrDimensionMismatch if spacing/origin arity differs from len(size),
// ErrBadSpacing if a spacing value is not finite and positive.
// Complexity: O(N).
func New(size []int, opts ...Option) (*Grid, error) {
	if len(size) == 0 {
		return nil, ErrEmptyGrid
	}
	n := len(size)
	cfg := Options{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Spacing == nil {
		cfg.Spacing = make([]float64, n)
		for d := range cfg.Spacing {
			cfg.Spacing[d] = 1
		}
	}
	if cfg.Origin == nil {
		cfg.Origin = make([]float64, n)
	}
	if len(cfg.Spacing) != n {
		return nil, fmt.Errorf("%w: %d spacing values for %d axes", ErrDimensionMismatch, len(cfg.Spacing), n)
	}
	if len(cfg.Origin) != n {
		return nil, fmt.Errorf("%w: %d origin values for %d axes", ErrDimensionMismatch, len(cfg.Origin), n)
	}

	g := &Grid{
		size:    make([]int, n),
		spacing: make([]float64, n),
		origin:  make([]float64, n),
		strides: make([]int, n),
		length:  1,
	}
	for d := 0; d < n; d++ {
		if size[d] <= 0 {
			return nil, ErrEmptyGrid
		}
		h := cfg.Spacing[d]
		if h <= 0 || math.IsNaN(h) || math.IsInf(h, 0) {
			return nil, fmt.Errorf("%w: axis %d spacing=%g", ErrBadSpacing, d, h)
		}
		g.size[d] = size[d]
		g.spacing[d] = h
		g.origin[d] = cfg.Origin[d]
		g.strides[d] = g.length
		g.length *= size[d]
	}

	return g, nil
}

// Dims returns the number of axes.
func (g *Grid) Dims() int { return len(g.size) }

// Len returns the total number of cells.
func (g *Grid) Len() int { return g.length }

// Size returns a copy of the per-axis sizes.
func (g *Grid) Size() []int { return append([]int(nil), g.size...) }

// Spacing returns a copy of the per-axis spacing.
func (g *Grid) Spacing() []float64 { return append([]float64(nil), g.spacing...) }

// Origin returns a copy of the physical origin.
func (g *Grid) Origin() []float64 { return append([]float64(nil), g.origin...) }

// AxisSize returns the number of cells along axis d.
func (g *Grid) AxisSize(d int) int { return g.size[d] }

// AxisSpacing returns the spacing along axis d.
func (g *Grid) AxisSpacing(d int) float64 { return g.spacing[d] }

// Stride returns the flat offset distance between neighbours along axis d.
func (g *Grid) Stride(d int) int { return g.strides[d] }

// Bounds returns the region covering the whole grid.
func (g *Grid) Bounds() Region {
	return Region{Start: make(Index, len(g.size)), Size: g.Size()}
}

// SameShape reports whether g and other have identical per-axis sizes.
func (g *Grid) SameShape(other *Grid) bool {
	if other == nil || len(g.size) != len(other.size) {
		return false
	}
	for d := range g.size {
		if g.size[d] != other.size[d] {
			return false
		}
	}

	return true
}

// InBounds reports whether idx lies within the grid boundaries.
// Complexity: O(N).
func (g *Grid) InBounds(idx Index) bool {
	if len(idx) != len(g.size) {
		return false
	}
	for d, v := range idx {
		if v < 0 || v >= g.size[d] {
			return false
		}
	}

	return true
}

// Offset converts idx to its flat offset.
// Returns ErrDimensionMismatch or ErrOutOfRange for bad indices.
func (g *Grid) Offset(idx Index) (int, error) {
	if len(idx) != len(g.size) {
		return 0, fmt.Errorf("%w: index %v on %d-d grid", ErrDimensionMismatch, idx, len(g.size))
	}
	if !g.InBounds(idx) {
		return 0, fmt.Errorf("%w: %v", ErrOutOfRange, idx)
	}

	return g.offset(idx), nil
}

// offset assumes idx is valid.
func (g *Grid) offset(idx Index) int {
	off := 0
	for d, v := range idx {
		off += v * g.strides[d]
	}

	return off
}

// Index converts a flat offset back to an Index.
// The result is undefined for offsets outside [0, Len()).
func (g *Grid) Index(offset int) Index {
	idx := make(Index, len(g.size))
	g.IndexInto(offset, idx)

	return idx
}

// IndexInto writes the Index of offset into dst, which must have Dims() entries.
// It allows hot loops to reuse one buffer.
func (g *Grid) IndexInto(offset int, dst Index) {
	for d := len(g.size) - 1; d >= 0; d-- {
		dst[d] = offset / g.strides[d]
		offset -= dst[d] * g.strides[d]
	}
}

// Coordinate returns the axis-d component of the Index of offset.
// Complexity: O(1).
func (g *Grid) Coordinate(offset, d int) int {
	return (offset / g.strides[d]) % g.size[d]
}

// Neighbor returns the offset of the cell one step along axis d in direction
// dir (+1 or -1) from offset, and false if that step leaves the grid.
// Complexity: O(1).
func (g *Grid) Neighbor(offset, d, dir int) (int, bool) {
	c := g.Coordinate(offset, d) + dir
	if c < 0 || c >= g.size[d] {
		return 0, false
	}

	return offset + dir*g.strides[d], true
}

// Point returns the physical coordinate of idx: origin + idx·spacing.
func (g *Grid) Point(idx Index) []float64 {
	p := make([]float64, len(g.size))
	for d := range p {
		p[d] = g.origin[d] + float64(idx[d])*g.spacing[d]
	}

	return p
}

// Sub returns a grid with the shape of r whose origin is the physical point
// of r.Start, keeping the spacing. r must lie within g.
func (g *Grid) Sub(r Region) (*Grid, error) {
	if !r.Within(g.Bounds()) {
		return nil, fmt.Errorf("%w: %v not within %v", ErrRegion, r, g.Bounds())
	}

	return New(r.Size, WithSpacing(g.spacing...), WithOrigin(g.Point(r.Start)...))
}
