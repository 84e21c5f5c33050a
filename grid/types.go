// Package grid defines core types, options, and sentinel errors
// for the grid subpackage of github.com/katalvlaran/fastmarch.
package grid

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for grid operations.
var (
	// ErrEmptyGrid indicates a grid with no axes or an axis of non-positive length.
	ErrEmptyGrid = errors.New("grid: grid must have at least one axis and every axis length must be > 0")
	// ErrNonRectangular indicates rows of differing lengths.
	ErrNonRectangular = errors.New("grid: all rows must have the same length")
	// ErrBadSpacing indicates a spacing value that is not a finite positive number.
	ErrBadSpacing = errors.New("grid: spacing must be finite and > 0")
	// ErrDimensionMismatch indicates an argument whose arity disagrees with the grid.
	ErrDimensionMismatch = errors.New("grid: dimension mismatch")
	// ErrOutOfRange indicates an index outside the grid.
	ErrOutOfRange = errors.New("grid: index out of range")
	// ErrRegion indicates a requested region that lies outside the available region.
	ErrRegion = errors.New("grid: requested region outside available region")
)

// Index addresses one cell, one integer per axis (axis 0 first).
type Index []int

// String formats the index as "(i,j,k)".
func (idx Index) String() string {
	parts := make([]string, len(idx))
	for d, v := range idx {
		parts[d] = fmt.Sprint(v)
	}

	return "(" + strings.Join(parts, ",") + ")"
}

// Equal reports whether two indices address the same cell.
func (idx Index) Equal(other Index) bool {
	if len(idx) != len(other) {
		return false
	}
	for d := range idx {
		if idx[d] != other[d] {
			return false
		}
	}

	return true
}

// Clone returns an independent copy of idx.
func (idx Index) Clone() Index {
	out := make(Index, len(idx))
	copy(out, idx)

	return out
}

// Options configures the physical geometry of a Grid.
//
// Spacing – distance between neighbouring samples along each axis. Default 1 on every axis.
// Origin  – physical coordinate of the cell with index 0. Default 0 on every axis.
type Options struct {
	Spacing []float64
	Origin  []float64
}

// Option represents a functional option for configuring a Grid.
type Option func(*Options)

// WithSpacing sets per-axis spacing. The number of values must match the grid dimension.
func WithSpacing(spacing ...float64) Option {
	return func(o *Options) {
		o.Spacing = append([]float64(nil), spacing...)
	}
}

// WithOrigin sets the physical origin. The number of values must match the grid dimension.
func WithOrigin(origin ...float64) Option {
	return func(o *Options) {
		o.Origin = append([]float64(nil), origin...)
	}
}

// Grid describes a dense N-dimensional lattice. It is immutable once built.
// size, spacing and origin have one entry per axis; strides[d] is the flat
// offset distance between neighbours along axis d (strides[0] == 1).
type Grid struct {
	size    []int
	spacing []float64
	origin  []float64
	strides []int
	length  int
}
