// Package fastmarch defines core types and configuration options for the
// fast marching Eikonal solver.
//
// Options:
//
//	– AliveSeeds / TrialSeeds: initial front, caller-supplied times.
//	– Targets + TargetMode:    stop once enough targets became Alive (plus TargetOffset).
//	– StoppingValue:           absolute arrival-time cap.
//	– NormalizationFactor:     speed values are divided by this factor.
//	– Order:                   first- or second-order upwind differences.
//	– Gradient:                none, incremental or post-pass upwind gradient.
//	– Region:                  solve only inside a sub-region of the speed field.
//	– UnreachedValue:          output value of cells the front never reached.
//
// Errors (sentinel):
//
//	– ErrConfiguration and everything wrapping it: invalid setup, detected before propagation.
//	– ErrRegion:   requested region outside the available speed field.
//	– ErrNilSpeed: neither a speed field nor a constant speed was supplied.
package fastmarch

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"runtime"

	"github.com/katalvlaran/fastmarch/grid"
)

// Sentinel errors returned by the fast marching implementation.
var (
	// ErrConfiguration is the root of every setup error. Callers can match the
	// whole family with errors.Is(err, ErrConfiguration).
	ErrConfiguration = errors.New("fastmarch: configuration error")

	// ErrRegion indicates a requested region that lies outside the speed field
	// after padding by the stencil radius and cropping.
	ErrRegion = errors.New("fastmarch: requested region outside available input")

	// ErrNilSpeed indicates that neither a speed field nor WithSpeedConstant was supplied.
	ErrNilSpeed = errors.New("fastmarch: speed field is nil")

	// ErrNoSeeds indicates that no Alive or Trial seed was supplied.
	ErrNoSeeds = fmt.Errorf("%w: no seed points", ErrConfiguration)

	// ErrSeedOutOfRegion indicates a seed outside the solved region.
	ErrSeedOutOfRegion = fmt.Errorf("%w: seed outside region", ErrConfiguration)

	// ErrBadSeedTime indicates a seed with a NaN or infinite time.
	ErrBadSeedTime = fmt.Errorf("%w: seed time must be finite", ErrConfiguration)

	// ErrTargetOutOfRegion indicates a target outside the solved region.
	ErrTargetOutOfRegion = fmt.Errorf("%w: target outside region", ErrConfiguration)

	// ErrNoTargets indicates a target-reached mode requested with an empty target set.
	ErrNoTargets = fmt.Errorf("%w: no target point set", ErrConfiguration)

	// ErrNotEnoughTargets indicates a target-reached mode requiring more
	// distinct targets than were registered.
	ErrNotEnoughTargets = fmt.Errorf("%w: not enough target points", ErrConfiguration)

	// ErrBadTargetMode indicates an unknown TargetCondition value.
	ErrBadTargetMode = fmt.Errorf("%w: unknown target reached mode", ErrConfiguration)

	// ErrBadNormalization indicates a NormalizationFactor that is not finite and positive.
	ErrBadNormalization = fmt.Errorf("%w: normalization factor must be finite and > 0", ErrConfiguration)

	// ErrBadOrder indicates an unknown difference Order.
	ErrBadOrder = fmt.Errorf("%w: unknown difference order", ErrConfiguration)

	// ErrBadGradientMode indicates an unknown GradientMode.
	ErrBadGradientMode = fmt.Errorf("%w: unknown gradient mode", ErrConfiguration)

	// ErrNoGradient indicates a gradient lookup on a result computed with GradientNone.
	ErrNoGradient = errors.New("fastmarch: gradient was not computed")

	// ErrLabelsMismatch indicates a label slice whose length differs from the grid.
	ErrLabelsMismatch = errors.New("fastmarch: label count does not match grid")

	// ErrBadTargetOffset indicates a negative or NaN target offset (option panic).
	ErrBadTargetOffset = errors.New("fastmarch: target offset must be >= 0")

	// ErrBadTargetCount indicates SomeTargets with k < 1 (option panic).
	ErrBadTargetCount = errors.New("fastmarch: target count must be >= 1")

	// ErrBadWorkers indicates a non-positive worker count (option panic).
	ErrBadWorkers = errors.New("fastmarch: worker count must be >= 1")
)

// Label is the propagation state of a cell.
type Label uint8

const (
	// Far cells have not been touched by the front; their time is meaningless.
	Far Label = iota
	// Trial cells carry a tentative time and sit in the narrow band.
	Trial
	// Alive cells carry their final time.
	Alive
)

// String returns the label name.
func (l Label) String() string {
	switch l {
	case Far:
		return "Far"
	case Trial:
		return "Trial"
	case Alive:
		return "Alive"
	default:
		return fmt.Sprintf("Label(%d)", uint8(l))
	}
}

// TargetCondition selects how many targets must be reached before the front stops.
type TargetCondition int

const (
	// NoTargets never stops on targets; TargetValue is the last processed time.
	NoTargets TargetCondition = iota
	// OneTarget stops once any one target has become Alive.
	OneTarget
	// SomeTargets stops once a configured number of distinct targets have become Alive.
	SomeTargets
	// AllTargets stops once every distinct target has become Alive.
	AllTargets
)

// String returns the condition name.
func (c TargetCondition) String() string {
	switch c {
	case NoTargets:
		return "NoTargets"
	case OneTarget:
		return "OneTarget"
	case SomeTargets:
		return "SomeTargets"
	case AllTargets:
		return "AllTargets"
	default:
		return fmt.Sprintf("TargetCondition(%d)", int(c))
	}
}

// Order selects the upwind finite-difference order.
type Order int

const (
	// FirstOrder uses one-sided first differences on every axis.
	FirstOrder Order = iota + 1
	// SecondOrder uses one-sided second differences where two upwind Alive
	// cells are available, first differences elsewhere.
	SecondOrder
)

// String returns "first" or "second".
func (o Order) String() string {
	switch o {
	case FirstOrder:
		return "first"
	case SecondOrder:
		return "second"
	default:
		return fmt.Sprintf("Order(%d)", int(o))
	}
}

// GradientMode selects whether and when the upwind gradient is computed.
type GradientMode int

const (
	// GradientNone skips gradient computation.
	GradientNone GradientMode = iota
	// GradientIncremental computes each cell's gradient right after it becomes Alive.
	GradientIncremental
	// GradientPostPass computes all gradients in parallel after propagation.
	GradientPostPass
)

// String returns the mode name.
func (m GradientMode) String() string {
	switch m {
	case GradientNone:
		return "none"
	case GradientIncremental:
		return "incremental"
	case GradientPostPass:
		return "postpass"
	default:
		return fmt.Sprintf("GradientMode(%d)", int(m))
	}
}

// StopReason reports why propagation ended.
type StopReason int

const (
	// StopQueueEmpty: every reachable cell was processed.
	StopQueueEmpty StopReason = iota
	// StopValueExceeded: the next arrival time exceeded StoppingValue.
	StopValueExceeded
	// StopTargetsReached: the target condition was met and the front passed
	// the last reached time plus TargetOffset.
	StopTargetsReached
)

// String returns the reason name.
func (r StopReason) String() string {
	switch r {
	case StopQueueEmpty:
		return "queue empty"
	case StopValueExceeded:
		return "stopping value exceeded"
	case StopTargetsReached:
		return "targets reached"
	default:
		return fmt.Sprintf("StopReason(%d)", int(r))
	}
}

// Node pairs a cell index with an arrival time.
type Node struct {
	Index grid.Index
	Time  float64
}

// Options configures the behavior of the fast marching engine.
//
// AliveSeeds          – cells frozen at the given time before propagation starts.
// TrialSeeds          – cells inserted into the narrow band with the given estimate.
// Targets             – cells whose Alive transition is tracked.
// TargetMode          – NoTargets (default), OneTarget, SomeTargets or AllTargets.
// TargetCount         – number of targets required by SomeTargets.
// TargetOffset        – extra arrival time to propagate after the target condition is met. ≥ 0.
// StoppingValue       – propagation stops when the next arrival time exceeds it. Default +Inf.
// NormalizationFactor – speed values are divided by it. Must be > 0. Default 1.
// Order               – FirstOrder (default) or SecondOrder.
// Gradient            – GradientNone (default), GradientIncremental or GradientPostPass.
// GradientWorkers     – goroutines for the post-pass. Default runtime.NumCPU().
// UnreachedValue      – output time of cells left Far. Default +Inf.
// CollectPoints       – record every Alive transition in processing order.
// Region              – solve only this region of the speed field (nil = whole field).
// Logger              – debug logging sink. Default discards.
type Options struct {
	AliveSeeds          []Node
	TrialSeeds          []Node
	Targets             []grid.Index
	TargetMode          TargetCondition
	TargetCount         int
	TargetOffset        float64
	StoppingValue       float64
	NormalizationFactor float64
	Order               Order
	Gradient            GradientMode
	GradientWorkers     int
	UnreachedValue      float64
	CollectPoints       bool
	Region              *grid.Region
	Logger              *slog.Logger

	speedGrid     *grid.Grid
	speedConstant float64
}

// Option represents a functional option for configuring the engine.
type Option func(*Options)

// WithAliveSeeds adds cells that start Alive at the given times.
func WithAliveSeeds(seeds ...Node) Option {
	return func(o *Options) {
		o.AliveSeeds = append(o.AliveSeeds, seeds...)
	}
}

// WithTrialSeeds adds cells that start Trial with the given tentative times.
func WithTrialSeeds(seeds ...Node) Option {
	return func(o *Options) {
		o.TrialSeeds = append(o.TrialSeeds, seeds...)
	}
}

// WithTargets registers target cells. Duplicates count once.
func WithTargets(targets ...grid.Index) Option {
	return func(o *Options) {
		o.Targets = append(o.Targets, targets...)
	}
}

// WithTargetReachedMode selects NoTargets, OneTarget or AllTargets.
// Use WithSomeTargets for SomeTargets.
func WithTargetReachedMode(mode TargetCondition) Option {
	return func(o *Options) {
		o.TargetMode = mode
	}
}

// WithSomeTargets selects SomeTargets with k required targets.
// Panics if k < 1.
func WithSomeTargets(k int) Option {
	return func(o *Options) {
		if k < 1 {
			panic(ErrBadTargetCount.Error())
		}
		o.TargetMode = SomeTargets
		o.TargetCount = k
	}
}

// WithTargetOffset sets how far (in arrival time) the front keeps moving
// after the target condition is met. Panics on negative or NaN values.
func WithTargetOffset(offset float64) Option {
	return func(o *Options) {
		if offset < 0 || math.IsNaN(offset) {
			panic(ErrBadTargetOffset.Error())
		}
		o.TargetOffset = offset
	}
}

// WithStoppingValue stops propagation once the next arrival time exceeds v.
func WithStoppingValue(v float64) Option {
	return func(o *Options) {
		o.StoppingValue = v
	}
}

// WithNormalizationFactor divides every speed value by f.
func WithNormalizationFactor(f float64) Option {
	return func(o *Options) {
		o.NormalizationFactor = f
	}
}

// WithOrder selects the finite-difference order.
func WithOrder(order Order) Option {
	return func(o *Options) {
		o.Order = order
	}
}

// WithGradient selects the gradient mode.
func WithGradient(mode GradientMode) Option {
	return func(o *Options) {
		o.Gradient = mode
	}
}

// WithGradientWorkers sets the number of post-pass goroutines. Panics if n < 1.
func WithGradientWorkers(n int) Option {
	return func(o *Options) {
		if n < 1 {
			panic(ErrBadWorkers.Error())
		}
		o.GradientWorkers = n
	}
}

// WithUnreachedValue sets the output time written into cells left Far.
func WithUnreachedValue(v float64) Option {
	return func(o *Options) {
		o.UnreachedValue = v
	}
}

// WithCollectPoints records every Alive transition in Result.Processed.
func WithCollectPoints() Option {
	return func(o *Options) {
		o.CollectPoints = true
	}
}

// WithRegion restricts propagation to r (indices of the speed field).
func WithRegion(r grid.Region) Option {
	return func(o *Options) {
		rc := grid.NewRegion(r.Start, r.Size)
		o.Region = &rc
	}
}

// WithSpeedConstant uses a uniform speed over g instead of a speed field.
// It is used only when New receives a nil field.
func WithSpeedConstant(g *grid.Grid, speed float64) Option {
	return func(o *Options) {
		o.speedGrid = g
		o.speedConstant = speed
	}
}

// WithLogger sets the debug logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// DefaultOptions returns an Options struct initialized with sensible defaults.
//
// Defaults:
//   - TargetMode:          NoTargets.
//   - StoppingValue:       +Inf (no cap).
//   - NormalizationFactor: 1.
//   - Order:               FirstOrder.
//   - Gradient:            GradientNone.
//   - GradientWorkers:     runtime.NumCPU().
//   - UnreachedValue:      +Inf.
//   - Logger:              discards everything.
func DefaultOptions() Options {
	return Options{
		TargetMode:          NoTargets,
		StoppingValue:       math.Inf(1),
		NormalizationFactor: 1,
		Order:               FirstOrder,
		Gradient:            GradientNone,
		GradientWorkers:     runtime.NumCPU(),
		UnreachedValue:      math.Inf(1),
		Logger:              slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}
