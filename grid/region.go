package grid

import (
	"fmt"
)

// Region is an axis-aligned box of cells: Start is the lowest corner and
// Size the number of cells along each axis.
type Region struct {
	Start Index
	Size  []int
}

// NewRegion builds a region, copying its arguments.
func NewRegion(start Index, size []int) Region {
	return Region{Start: start.Clone(), Size: append([]int(nil), size...)}
}

// String formats the region as "start=(…) size=(…)".
func (r Region) String() string {
	return fmt.Sprintf("start=%v size=%v", r.Start, Index(r.Size))
}

// Dims returns the number of axes of r.
func (r Region) Dims() int { return len(r.Size) }

// Len returns the number of cells in r; 0 for an empty or malformed region.
func (r Region) Len() int {
	if len(r.Start) != len(r.Size) || len(r.Size) == 0 {
		return 0
	}
	n := 1
	for _, s := range r.Size {
		if s <= 0 {
			return 0
		}
		n *= s
	}

	return n
}

// Contains reports whether idx lies inside r.
func (r Region) Contains(idx Index) bool {
	if len(idx) != len(r.Size) || len(r.Start) != len(r.Size) {
		return false
	}
	for d, v := range idx {
		if v < r.Start[d] || v >= r.Start[d]+r.Size[d] {
			return false
		}
	}

	return true
}

// Within reports whether r is non-empty and entirely inside bounds.
func (r Region) Within(bounds Region) bool {
	if r.Len() == 0 || r.Dims() != bounds.Dims() || len(bounds.Start) != bounds.Dims() {
		return false
	}
	for d := range r.Size {
		if r.Start[d] < bounds.Start[d] || r.Start[d]+r.Size[d] > bounds.Start[d]+bounds.Size[d] {
			return false
		}
	}

	return true
}

// Pad grows r by radius cells on every side of every axis.
func (r Region) Pad(radius int) Region {
	out := NewRegion(r.Start, r.Size)
	for d := range out.Size {
		out.Start[d] -= radius
		out.Size[d] += 2 * radius
	}

	return out
}

// Crop intersects r with bounds. It returns false, leaving r unchanged in the
// result, when the two regions do not overlap on some axis.
func (r Region) Crop(bounds Region) (Region, bool) {
	if r.Dims() != bounds.Dims() || len(r.Start) != r.Dims() || len(bounds.Start) != bounds.Dims() {
		return r, false
	}
	out := NewRegion(r.Start, r.Size)
	for d := range r.Size {
		lo := max(r.Start[d], bounds.Start[d])
		hi := min(r.Start[d]+r.Size[d], bounds.Start[d]+bounds.Size[d])
		if hi <= lo {
			return r, false
		}
		out.Start[d] = lo
		out.Size[d] = hi - lo
	}

	return out, true
}

// RequestedInputRegion computes the input region a stencil of the given
// radius needs to produce out: out padded by radius, cropped to available.
// Returns ErrRegion when the padded region does not overlap available, or
// when out itself is not inside available.
func RequestedInputRegion(out, available Region, radius int) (Region, error) {
	padded := out.Pad(radius)
	cropped, ok := padded.Crop(available)
	if !ok {
		return Region{}, fmt.Errorf("%w: %v does not overlap %v", ErrRegion, padded, available)
	}
	if !out.Within(available) {
		return Region{}, fmt.Errorf("%w: %v not within %v", ErrRegion, out, available)
	}

	return cropped, nil
}
