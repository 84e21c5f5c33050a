package fastmarch

import (
	"fmt"

	"github.com/katalvlaran/fastmarch/grid"
)

// TargetTracker watches Alive transitions for a fixed set of target cells and
// decides when the target condition is met.
//
// Once the condition is met at time t the tracker reports the stopping value
// t + offset.
type TargetTracker struct {
	indices []grid.Index // caller indices, distinct, in registration order
	lookup  map[int]int  // flat offset -> position in indices

	mode     TargetCondition
	required int
	offset   float64

	hit             []bool
	reached         []Node
	lastReachedTime float64
	satisfied       bool
}

// NewTargetTracker registers targets on g. Duplicate indices count once.
// Returns ErrTargetOutOfRegion for an index outside g. The tracker starts in
// NoTargets mode.
func NewTargetTracker(g *grid.Grid, targets []grid.Index) (*TargetTracker, error) {
	offsets := make([]int, len(targets))
	for i, idx := range targets {
		off, err := g.Offset(idx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v: %w", ErrTargetOutOfRegion, idx, err)
		}
		offsets[i] = off
	}

	return newTargetTracker(offsets, targets), nil
}

// newTargetTracker builds a tracker from precomputed offsets; indices are
// what the tracker reports back and may live in another coordinate system.
func newTargetTracker(offsets []int, indices []grid.Index) *TargetTracker {
	tt := &TargetTracker{lookup: make(map[int]int, len(offsets))}
	for i, off := range offsets {
		if _, dup := tt.lookup[off]; dup {
			continue
		}
		tt.lookup[off] = len(tt.indices)
		tt.indices = append(tt.indices, indices[i].Clone())
	}
	tt.hit = make([]bool, len(tt.indices))

	return tt
}

// Configure switches the target reached mode. count is used by SomeTargets
// only. On error the tracker is left exactly as it was.
//
//   - NoTargets:   always valid.
//   - OneTarget:   at least one target must be registered.
//   - SomeTargets: 1 ≤ count ≤ number of distinct targets.
//   - AllTargets:  at least one target must be registered.
func (tt *TargetTracker) Configure(mode TargetCondition, count int) error {
	required := 0
	switch mode {
	case NoTargets:
	case OneTarget:
		required = 1
	case SomeTargets:
		if count < 1 {
			return fmt.Errorf("%w: %w", ErrConfiguration, ErrBadTargetCount)
		}
		required = count
	case AllTargets:
		required = len(tt.indices)
	default:
		return fmt.Errorf("%w: %d", ErrBadTargetMode, int(mode))
	}
	if mode != NoTargets {
		if len(tt.indices) == 0 {
			return fmt.Errorf("%w: cannot set %v", ErrNoTargets, mode)
		}
		if required > len(tt.indices) {
			return fmt.Errorf("%w: available %d; requested %d", ErrNotEnoughTargets, len(tt.indices), required)
		}
	}
	tt.mode = mode
	tt.required = required

	return nil
}

// SetOffset sets the arrival-time margin added after the condition is met.
func (tt *TargetTracker) SetOffset(offset float64) error {
	if !(offset >= 0) {
		return fmt.Errorf("%w: %w", ErrConfiguration, ErrBadTargetOffset)
	}
	tt.offset = offset

	return nil
}

// Reset forgets every reached target, keeping the configuration.
func (tt *TargetTracker) Reset() {
	for i := range tt.hit {
		tt.hit[i] = false
	}
	tt.reached = tt.reached[:0]
	tt.lastReachedTime = 0
	tt.satisfied = false
}

// Observe records that the cell at offset became Alive at time t.
// It returns the stopping value and true exactly once: when the condition
// becomes satisfied by this observation.
func (tt *TargetTracker) Observe(offset int, t float64) (float64, bool) {
	if tt.mode == NoTargets {
		tt.lastReachedTime = t
		return 0, false
	}
	pos, ok := tt.lookup[offset]
	if !ok || tt.hit[pos] {
		return 0, false
	}
	tt.hit[pos] = true
	tt.reached = append(tt.reached, Node{Index: tt.indices[pos], Time: t})
	if tt.satisfied || len(tt.reached) < tt.required {
		return 0, false
	}
	tt.satisfied = true
	tt.lastReachedTime = t

	return t + tt.offset, true
}

// Mode returns the current target reached mode and the required count.
func (tt *TargetTracker) Mode() (TargetCondition, int) { return tt.mode, tt.required }

// Offset returns the configured target offset.
func (tt *TargetTracker) Offset() float64 { return tt.offset }

// Len returns the number of distinct targets.
func (tt *TargetTracker) Len() int { return len(tt.indices) }

// ReachedCount returns how many distinct targets have become Alive.
func (tt *TargetTracker) ReachedCount() int { return len(tt.reached) }

// Reached returns the reached targets in the order they became Alive.
func (tt *TargetTracker) Reached() []Node {
	return append([]Node(nil), tt.reached...)
}

// Satisfied reports whether the target condition has been met.
func (tt *TargetTracker) Satisfied() bool { return tt.satisfied }

// LastReachedTime returns the time at which the condition was met, or in
// NoTargets mode the last observed time.
func (tt *TargetTracker) LastReachedTime() float64 { return tt.lastReachedTime }
