package fastmarch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/katalvlaran/fastmarch/grid"
)

// Engine is a configured fast marching solver. New validates everything up
// front; Run then never fails for configuration reasons.
//
// An Engine may be Run several times, but not concurrently.
type Engine struct {
	opts    Options
	region  grid.Region // solved region, in speed-field indices
	g       *grid.Grid  // local grid of region
	speed   []float64   // speed samples over g
	alive   []seed
	trial   []seed
	tracker *TargetTracker
	log     *slog.Logger
}

// seed is a validated Node on the local grid.
type seed struct {
	offset int
	time   float64
}

// New builds an Engine propagating over speed. speed may be nil when
// WithSpeedConstant supplies a uniform speed instead.
//
// Preconditions and validation (in order):
//  1. A speed field or WithSpeedConstant (ErrNilSpeed).
//  2. NormalizationFactor finite and > 0 (ErrBadNormalization).
//  3. Known Order and GradientMode (ErrBadOrder, ErrBadGradientMode).
//  4. Region, padded by one cell and cropped, inside the speed field (ErrRegion).
//  5. At least one seed, each inside the region with a finite time
//     (ErrNoSeeds, ErrSeedOutOfRegion, ErrBadSeedTime).
//  6. Targets inside the region (ErrTargetOutOfRegion).
//  7. Enough distinct targets for the target reached mode
//     (ErrNoTargets, ErrNotEnoughTargets, ErrBadTargetMode).
//
// Every error except ErrNilSpeed and ErrRegion wraps ErrConfiguration.
func New(speed *grid.Field, opts ...Option) (*Engine, error) {
	// 1) Build Options
	cfg := DefaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	// 2) Resolve the speed source
	var full *grid.Grid
	switch {
	case speed != nil:
		full = speed.Grid()
	case cfg.speedGrid != nil:
		full = cfg.speedGrid
	default:
		return nil, ErrNilSpeed
	}

	// 3) Scalar options
	if !(cfg.NormalizationFactor > 0) || math.IsInf(cfg.NormalizationFactor, 1) {
		return nil, fmt.Errorf("%w: got %v", ErrBadNormalization, cfg.NormalizationFactor)
	}
	if cfg.Order != FirstOrder && cfg.Order != SecondOrder {
		return nil, fmt.Errorf("%w: %d", ErrBadOrder, int(cfg.Order))
	}
	switch cfg.Gradient {
	case GradientNone, GradientIncremental, GradientPostPass:
	default:
		return nil, fmt.Errorf("%w: %d", ErrBadGradientMode, int(cfg.Gradient))
	}
	if cfg.GradientWorkers < 1 {
		cfg.GradientWorkers = 1
	}

	// 4) Region
	e := &Engine{opts: cfg, region: full.Bounds(), g: full, log: cfg.Logger}
	if cfg.Region != nil {
		if len(cfg.Region.Start) != full.Dims() || len(cfg.Region.Size) != full.Dims() {
			return nil, fmt.Errorf("%w: %w: %v on %d-d grid", ErrRegion, grid.ErrDimensionMismatch, *cfg.Region, full.Dims())
		}
		if _, err := grid.RequestedInputRegion(*cfg.Region, full.Bounds(), 1); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRegion, err)
		}
		sub, err := full.Sub(*cfg.Region)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRegion, err)
		}
		e.region = grid.NewRegion(cfg.Region.Start, cfg.Region.Size)
		e.g = sub
	}
	switch {
	case speed == nil:
		e.speed = make([]float64, e.g.Len())
		for i := range e.speed {
			e.speed[i] = cfg.speedConstant
		}
	case cfg.Region != nil:
		cropped, err := speed.Crop(e.region)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRegion, err)
		}
		e.speed = cropped.Data()
	default:
		e.speed = speed.Data()
	}

	// 5) Seeds
	if len(cfg.AliveSeeds)+len(cfg.TrialSeeds) == 0 {
		return nil, ErrNoSeeds
	}
	var err error
	if e.alive, err = e.localSeeds(cfg.AliveSeeds); err != nil {
		return nil, err
	}
	if e.trial, err = e.localSeeds(cfg.TrialSeeds); err != nil {
		return nil, err
	}

	// 6) Targets
	offsets := make([]int, len(cfg.Targets))
	for i, idx := range cfg.Targets {
		if offsets[i], err = e.localOffset(idx); err != nil {
			return nil, fmt.Errorf("%w: %v: %w", ErrTargetOutOfRegion, idx, err)
		}
	}
	e.tracker = newTargetTracker(offsets, cfg.Targets)

	// 7) Target reached mode
	if err = e.tracker.Configure(cfg.TargetMode, cfg.TargetCount); err != nil {
		return nil, err
	}
	if err = e.tracker.SetOffset(cfg.TargetOffset); err != nil {
		return nil, err
	}

	return e, nil
}

// localSeeds validates nodes and converts them to local offsets.
func (e *Engine) localSeeds(nodes []Node) ([]seed, error) {
	out := make([]seed, 0, len(nodes))
	for _, n := range nodes {
		if math.IsNaN(n.Time) || math.IsInf(n.Time, 0) {
			return nil, fmt.Errorf("%w: %v at %v", ErrBadSeedTime, n.Time, n.Index)
		}
		off, err := e.localOffset(n.Index)
		if err != nil {
			return nil, fmt.Errorf("%w: %v: %w", ErrSeedOutOfRegion, n.Index, err)
		}
		out = append(out, seed{offset: off, time: n.Time})
	}

	return out, nil
}

// localOffset maps a speed-field index to an offset of the solved grid.
func (e *Engine) localOffset(idx grid.Index) (int, error) {
	if len(idx) != e.region.Dims() {
		return 0, fmt.Errorf("%w: index %v on %d-d grid", grid.ErrDimensionMismatch, idx, e.region.Dims())
	}
	local := make(grid.Index, len(idx))
	for d := range idx {
		local[d] = idx[d] - e.region.Start[d]
	}

	return e.g.Offset(local)
}

// globalIndex maps an offset of the solved grid back to speed-field indices.
func (e *Engine) globalIndex(offset int) grid.Index {
	idx := e.g.Index(offset)
	for d := range idx {
		idx[d] += e.region.Start[d]
	}

	return idx
}

// Grid returns the grid of the solved region.
func (e *Engine) Grid() *grid.Grid { return e.g }

// Region returns the solved region in speed-field indices.
func (e *Engine) Region() grid.Region { return grid.NewRegion(e.region.Start, e.region.Size) }

// SetTargetReachedMode switches the target condition; count is used by
// SomeTargets only. On error the engine keeps its previous mode.
func (e *Engine) SetTargetReachedMode(mode TargetCondition, count int) error {
	if err := e.tracker.Configure(mode, count); err != nil {
		return err
	}
	e.opts.TargetMode, e.opts.TargetCount = e.tracker.Mode()

	return nil
}

// TargetReachedMode returns the target condition and the number of targets it requires.
func (e *Engine) TargetReachedMode() (TargetCondition, int) { return e.tracker.Mode() }

// SetTargetOffset changes the arrival-time margin propagated after the target
// condition is met. Negative or NaN offsets are rejected.
func (e *Engine) SetTargetOffset(offset float64) error {
	if err := e.tracker.SetOffset(offset); err != nil {
		return err
	}
	e.opts.TargetOffset = offset

	return nil
}

// Run propagates the front and returns the arrival-time solution.
// It returns a wrapped ctx.Err() if ctx is cancelled; no partial result is returned.
//
// Complexity:
//
//   - Time:  O(n log n) for n cells reached (each cell is inserted at most 2N times).
//   - Space: O(n) for labels and times, plus O(n·N) for gradients when requested.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	mode, required := e.tracker.Mode()
	e.log.Debug("fastmarch: run started",
		"cells", e.g.Len(),
		"alive_seeds", len(e.alive),
		"trial_seeds", len(e.trial),
		"targets", e.tracker.Len(),
		"mode", mode.String(),
		"required", required,
		"order", e.opts.Order.String(),
		"gradient", e.opts.Gradient.String(),
	)

	r := newRunner(e)
	r.init()
	if err := r.process(ctx); err != nil {
		return nil, fmt.Errorf("fastmarch: run: %w", err)
	}
	res, err := r.result(ctx)
	if err != nil {
		return nil, err
	}

	e.log.Debug("fastmarch: run finished",
		"reason", res.StopReason.String(),
		"processed", r.count,
		"reached_targets", res.ReachedCount,
		"target_value", res.TargetValue,
		"elapsed", time.Since(start),
	)

	return res, nil
}

// runner holds the mutable state for a single propagation.
type runner struct {
	e        *Engine
	g        *grid.Grid
	labels   *LabelField
	queue    *TrialQueue
	eikonal  *eikonal
	tracker  *TargetTracker
	gradient *GradientField // non-nil only in GradientIncremental mode

	stopping   float64 // current stopping value; lowered once targets are met
	targetStop bool    // stopping was set by the tracker
	current    float64 // time of the last cell made Alive; candidates never go below it
	count      int
	reason     StopReason
	processed  []Node
}

func newRunner(e *Engine) *runner {
	labels := NewLabelField(e.g.Len())
	e.tracker.Reset()
	r := &runner{
		e:        e,
		g:        e.g,
		labels:   labels,
		queue:    NewTrialQueue(len(e.alive) + len(e.trial)),
		eikonal:  newEikonal(e.g, e.speed, e.opts.NormalizationFactor, e.opts.Order, labels),
		tracker:  e.tracker,
		stopping: e.opts.StoppingValue,
		current:  math.Inf(-1),
	}
	if e.opts.Gradient == GradientIncremental {
		r.gradient = newGradientField(e.g)
	}

	return r
}

// init freezes the Alive seeds, queues the Trial seeds and the first ring
// of neighbours around the Alive seeds.
func (r *runner) init() {
	// 1) Alive seeds; a cell seeded twice keeps its smaller time.
	for _, s := range r.e.alive {
		if r.labels.state[s.offset] == Alive && r.labels.value[s.offset] <= s.time {
			continue
		}
		r.labels.state[s.offset] = Alive
		r.labels.value[s.offset] = s.time
	}

	// 2) Trial seeds never override Alive ones.
	for _, s := range r.e.trial {
		if r.labels.state[s.offset] == Alive || s.time >= r.labels.value[s.offset] {
			continue
		}
		r.labels.state[s.offset] = Trial
		r.labels.value[s.offset] = s.time
		r.queue.Insert(s.offset, s.time)
	}

	// 3) Report Alive seeds to the tracker in time order.
	seeds := r.aliveSeedOffsets()
	for _, off := range seeds {
		r.markAlive(off, r.labels.value[off])
	}

	// 4) First ring.
	for _, off := range seeds {
		r.updateNeighbors(off)
	}
}

// aliveSeedOffsets returns the distinct Alive seed offsets sorted by time.
func (r *runner) aliveSeedOffsets() []int {
	seen := make(map[int]struct{}, len(r.e.alive))
	out := make([]int, 0, len(r.e.alive))
	for _, s := range r.e.alive {
		if _, ok := seen[s.offset]; ok {
			continue
		}
		seen[s.offset] = struct{}{}
		out = append(out, s.offset)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return r.labels.value[out[i]] < r.labels.value[out[j]]
	})

	return out
}

// process is the main loop. It terminates when the queue runs dry or the
// next arrival time exceeds the stopping value; the cell that exceeded it
// stays Trial.
func (r *runner) process(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		// 1) Next valid entry.
		entry, ok := r.nextValid()
		if !ok {
			r.reason = StopQueueEmpty
			return nil
		}

		// 2) Stopping value.
		if entry.Time > r.stopping {
			r.reason = StopValueExceeded
			if r.targetStop {
				r.reason = StopTargetsReached
			}
			return nil
		}

		// 3) Freeze, observe, expand.
		r.current = entry.Time
		r.labels.state[entry.Offset] = Alive
		r.markAlive(entry.Offset, entry.Time)
		r.updateNeighbors(entry.Offset)
		if r.gradient != nil {
			computeGradientAt(r.g, r.labels.value, r.labels.state, entry.Offset, r.gradient.AtOffset(entry.Offset))
		}
	}
}

// nextValid pops entries until one matches its cell's authoritative state.
func (r *runner) nextValid() (TrialEntry, bool) {
	for {
		entry, ok := r.queue.ExtractMin()
		if !ok {
			return TrialEntry{}, false
		}
		if r.labels.state[entry.Offset] == Trial && r.labels.value[entry.Offset] == entry.Time {
			return entry, true
		}
	}
}

// markAlive records an Alive transition with the tracker and the point collector.
func (r *runner) markAlive(offset int, t float64) {
	r.count++
	if r.e.opts.CollectPoints {
		r.processed = append(r.processed, Node{Index: r.e.globalIndex(offset), Time: t})
	}
	if stop, met := r.tracker.Observe(offset, t); met && stop <= r.stopping {
		r.stopping = stop
		r.targetStop = true
	}
}

// updateNeighbors recomputes every non-Alive neighbour of offset and queues
// it when its tentative time improves.
func (r *runner) updateNeighbors(offset int) {
	for d := 0; d < r.g.Dims(); d++ {
		for _, dir := range [2]int{-1, +1} {
			n, ok := r.g.Neighbor(offset, d, dir)
			if !ok || r.labels.state[n] == Alive {
				continue
			}
			t := r.eikonal.solve(n)
			if t < r.current {
				t = r.current
			}
			if t < r.labels.value[n] {
				r.labels.state[n] = Trial
				r.labels.value[n] = t
				r.queue.Insert(n, t)
			}
		}
	}
}

// result assembles the output fields.
func (r *runner) result(ctx context.Context) (*Result, error) {
	e := r.e
	times := grid.NewField(r.g, e.opts.UnreachedValue)
	labels := make([]Label, r.g.Len())
	copy(labels, r.labels.state)
	for off, st := range labels {
		if st != Far {
			times.SetOffset(off, r.labels.value[off])
		}
	}

	res := &Result{
		Times:          times,
		Labels:         labels,
		ReachedTargets: r.tracker.Reached(),
		ReachedCount:   r.tracker.ReachedCount(),
		TargetValue:    r.tracker.LastReachedTime(),
		Processed:      r.processed,
		Region:         e.Region(),
		StopReason:     r.reason,
	}

	switch e.opts.Gradient {
	case GradientIncremental:
		// Seeds are evaluated last, against the final labels.
		for _, s := range e.alive {
			computeGradientAt(r.g, r.labels.value, r.labels.state, s.offset, r.gradient.AtOffset(s.offset))
		}
		res.Gradient = r.gradient
	case GradientPostPass:
		gf, err := UpwindGradient(ctx, times, labels, e.opts.GradientWorkers)
		if err != nil {
			return nil, fmt.Errorf("fastmarch: run: %w", err)
		}
		res.Gradient = gf
	}

	return res, nil
}
