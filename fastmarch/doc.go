// Package fastmarch solves the Eikonal equation |∇T| = 1/F on an
// N-dimensional regular grid with the fast marching method.
//
// A front starts at the seed cells and advances outward; T(x) is the time at
// which it reaches cell x when moving with local speed F(x). Cells go through
// three labels:
//
//	Far   → not yet touched.
//	Trial → in the narrow band, holding a tentative time.
//	Alive → final time, never changes again.
//
// Each step extracts the Trial cell with the smallest time, freezes it and
// recomputes its non-Alive neighbours with an upwind finite-difference update.
// Cells therefore become Alive in non-decreasing time order.
//
// Complexity:
//
//   - Time:  O(n log n) over the n reached cells.
//   - Space: O(n) plus the heap, which may hold up to 2N entries per cell
//     under lazy decrease-key.
//
// Notes on implementation choices:
//
//   - The Trial queue is a binary heap with lazy decrease-key: improved times
//     are pushed as new entries and stale ones are dropped when extracted.
//   - Equal times leave the queue in insertion order, so runs are reproducible.
//   - Cells with speed ≤ 0 (after normalization) are never queued.
//   - A candidate time is never lower than the time of the cell that produced it.
//   - Propagation stops early at StoppingValue, or TargetOffset after the
//     target condition is met. The gradient post-pass runs in parallel.
//
// Example:
//
//	speed, _ := grid.From2D(rows)
//	eng, err := fastmarch.New(speed,
//		fastmarch.WithAliveSeeds(fastmarch.Node{Index: grid.Index{0, 0}}),
//		fastmarch.WithTargets(grid.Index{9, 9}),
//		fastmarch.WithTargetReachedMode(fastmarch.OneTarget),
//	)
//	if err != nil { ... }
//	res, err := eng.Run(ctx)
package fastmarch
