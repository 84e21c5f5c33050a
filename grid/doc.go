// Package grid provides the minimal N-dimensional sampled-grid adapter the
// fast marching solver is built on.
//
// What:
//
//   - Grid describes a dense N-dimensional lattice: per-axis size, physical
//     spacing and origin. Cells are addressed either by an Index (one integer
//     per axis) or by a flat offset (row-major, axis 0 fastest).
//   - Region is an axis-aligned box of cells (Start + Size) with the pad/crop
//     helpers needed to compute the input region a stencil operation requires.
//   - Field stores one float64 per cell of a Grid (speed images, arrival times).
//   - Components labels connected passable regions of a Field.
//
// Why:
//
//   - Front propagation walks 2·N axis neighbors per cell; flat offsets and
//     precomputed strides keep that loop free of allocations and branching on
//     dimension count.
//   - Spacing is carried with the grid so finite differences can be expressed
//     in physical units.
//
// Complexity:
//
//   - Offset / Index conversion: O(N).
//   - Neighbor:                  O(1) (one division and one modulo).
//   - Field.Crop:                O(|region|).
//   - Components:                O(Len·N).
//
// Errors:
//
//   - ErrEmptyGrid: no axes, or an axis of length ≤ 0.
//   - ErrNonRectangular: 2D input rows of differing lengths.
//   - ErrBadSpacing: spacing ≤ 0, NaN or Inf.
//   - ErrDimensionMismatch: index, spacing, origin or data arity disagree with the grid.
//   - ErrOutOfRange: index outside the grid.
//   - ErrRegion: requested region does not overlap the available region.
//
// The grid does not model direction cosines, pixel types or metadata; those
// belong to a real image container and are not needed by the solver.
package grid
