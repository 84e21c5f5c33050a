package fastmarch

import (
	"fmt"

	"github.com/katalvlaran/fastmarch/grid"
)

// Result is the outcome of one Run.
//
// Times, Labels and Gradient are sampled on the solved region's own grid
// (local indices, origin at the region start). The accessors below and
// every Node in the result use speed-field indices.
type Result struct {
	// Times holds arrival times of Alive cells, tentative times of cells
	// left Trial by an early stop, and UnreachedValue elsewhere.
	Times *grid.Field
	// Labels is the final state of every cell.
	Labels []Label
	// Gradient is nil unless a gradient mode was selected.
	Gradient *GradientField

	// ReachedTargets lists distinct targets in the order they became Alive.
	ReachedTargets []Node
	ReachedCount   int
	// TargetValue is the time at which the target condition was met (0 if it
	// never was), or the last processed time in NoTargets mode.
	TargetValue float64

	// Processed lists every Alive transition in order, seeds first.
	// Empty unless WithCollectPoints was given.
	Processed []Node

	Region     grid.Region
	StopReason StopReason
}

// local converts a speed-field index into an offset of the result grids.
func (r *Result) local(idx grid.Index) (int, error) {
	if len(idx) != r.Region.Dims() {
		return 0, fmt.Errorf("%w: index %v on %d-d region", grid.ErrDimensionMismatch, idx, r.Region.Dims())
	}
	if !r.Region.Contains(idx) {
		return 0, fmt.Errorf("%w: %v outside %v", grid.ErrOutOfRange, idx, r.Region)
	}
	local := make(grid.Index, len(idx))
	for d := range idx {
		local[d] = idx[d] - r.Region.Start[d]
	}

	return r.Times.Grid().Offset(local)
}

// TimeAt returns the output time at idx.
func (r *Result) TimeAt(idx grid.Index) (float64, error) {
	off, err := r.local(idx)
	if err != nil {
		return 0, err
	}

	return r.Times.AtOffset(off), nil
}

// LabelAt returns the final label at idx.
func (r *Result) LabelAt(idx grid.Index) (Label, error) {
	off, err := r.local(idx)
	if err != nil {
		return Far, err
	}

	return r.Labels[off], nil
}

// GradientAt returns a copy of the gradient at idx.
// Returns ErrNoGradient when the run did not compute gradients.
func (r *Result) GradientAt(idx grid.Index) ([]float64, error) {
	if r.Gradient == nil {
		return nil, ErrNoGradient
	}
	off, err := r.local(idx)
	if err != nil {
		return nil, err
	}

	return append([]float64(nil), r.Gradient.AtOffset(off)...), nil
}

// CountLabel returns the number of cells carrying label l.
func (r *Result) CountLabel(l Label) int {
	n := 0
	for _, v := range r.Labels {
		if v == l {
			n++
		}
	}

	return n
}
