package fastmarch_test

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/fastmarch/fastmarch"
	"github.com/katalvlaran/fastmarch/grid"
)

// ------------------------------------------------------------------------
// helpers
// ------------------------------------------------------------------------

func uniform(t testing.TB, size []int, speed float64, opts ...grid.Option) *grid.Field {
	t.Helper()
	g, err := grid.New(size, opts...)
	require.NoError(t, err)

	return grid.NewField(g, speed)
}

// randomSpeed returns a field with speeds in [0.5, 2) drawn from a fixed seed.
func randomSpeed(t testing.TB, size []int, seed int64) *grid.Field {
	t.Helper()
	f := uniform(t, size, 1)
	rng := rand.New(rand.NewSource(seed))
	for i := range f.Data() {
		f.SetOffset(i, 0.5+1.5*rng.Float64())
	}

	return f
}

func aliveAt(idx grid.Index, t float64) fastmarch.Option {
	return fastmarch.WithAliveSeeds(fastmarch.Node{Index: idx, Time: t})
}

func run(t *testing.T, speed *grid.Field, opts ...fastmarch.Option) *fastmarch.Result {
	t.Helper()
	eng, err := fastmarch.New(speed, opts...)
	require.NoError(t, err)
	res, err := eng.Run(context.Background())
	require.NoError(t, err)

	return res
}

func timeAt(t *testing.T, res *fastmarch.Result, idx grid.Index) float64 {
	t.Helper()
	v, err := res.TimeAt(idx)
	require.NoError(t, err)

	return v
}

// ------------------------------------------------------------------------
// 1. Validation: everything is rejected before propagation starts.
// ------------------------------------------------------------------------

func TestNew_Validation(t *testing.T) {
	speed := uniform(t, []int{4, 4}, 1)
	seed := aliveAt(grid.Index{0, 0}, 0)

	cases := []struct {
		name  string
		speed *grid.Field
		opts  []fastmarch.Option
		want  error
	}{
		{"nil speed", nil, []fastmarch.Option{seed}, fastmarch.ErrNilSpeed},
		{"no seeds", speed, nil, fastmarch.ErrNoSeeds},
		{"seed out of range", speed, []fastmarch.Option{aliveAt(grid.Index{4, 0}, 0)}, fastmarch.ErrSeedOutOfRegion},
		{"seed arity", speed, []fastmarch.Option{aliveAt(grid.Index{1}, 0)}, fastmarch.ErrSeedOutOfRegion},
		{"NaN seed", speed, []fastmarch.Option{aliveAt(grid.Index{0, 0}, math.NaN())}, fastmarch.ErrBadSeedTime},
		{"infinite trial seed", speed, []fastmarch.Option{
			fastmarch.WithTrialSeeds(fastmarch.Node{Index: grid.Index{0, 0}, Time: math.Inf(1)}),
		}, fastmarch.ErrBadSeedTime},
		{"target out of range", speed, []fastmarch.Option{seed, fastmarch.WithTargets(grid.Index{-1, 0})}, fastmarch.ErrTargetOutOfRegion},
		{"one target without targets", speed, []fastmarch.Option{seed, fastmarch.WithTargetReachedMode(fastmarch.OneTarget)}, fastmarch.ErrNoTargets},
		{"all targets without targets", speed, []fastmarch.Option{seed, fastmarch.WithTargetReachedMode(fastmarch.AllTargets)}, fastmarch.ErrNoTargets},
		{"some targets undersized", speed, []fastmarch.Option{
			seed, fastmarch.WithTargets(grid.Index{1, 1}, grid.Index{2, 2}), fastmarch.WithSomeTargets(3),
		}, fastmarch.ErrNotEnoughTargets},
		{"zero normalization", speed, []fastmarch.Option{seed, fastmarch.WithNormalizationFactor(0)}, fastmarch.ErrBadNormalization},
		{"infinite normalization", speed, []fastmarch.Option{seed, fastmarch.WithNormalizationFactor(math.Inf(1))}, fastmarch.ErrBadNormalization},
		{"bad order", speed, []fastmarch.Option{seed, fastmarch.WithOrder(fastmarch.Order(3))}, fastmarch.ErrBadOrder},
		{"bad gradient mode", speed, []fastmarch.Option{seed, fastmarch.WithGradient(fastmarch.GradientMode(9))}, fastmarch.ErrBadGradientMode},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			eng, err := fastmarch.New(tc.speed, tc.opts...)
			assert.Nil(t, eng)
			assert.ErrorIs(t, err, tc.want)
			if tc.want != fastmarch.ErrNilSpeed {
				assert.ErrorIs(t, err, fastmarch.ErrConfiguration)
			}
		})
	}
}

func TestOptions_PanicOnNonsense(t *testing.T) {
	assert.PanicsWithValue(t, fastmarch.ErrBadTargetCount.Error(), func() {
		fastmarch.WithSomeTargets(0)(&fastmarch.Options{})
	})
	assert.PanicsWithValue(t, fastmarch.ErrBadTargetOffset.Error(), func() {
		fastmarch.WithTargetOffset(-0.1)(&fastmarch.Options{})
	})
	assert.PanicsWithValue(t, fastmarch.ErrBadWorkers.Error(), func() {
		fastmarch.WithGradientWorkers(0)(&fastmarch.Options{})
	})
}

func TestNew_RegionErrors(t *testing.T) {
	speed := uniform(t, []int{8, 8}, 1)
	seed := aliveAt(grid.Index{0, 0}, 0)

	cases := map[string]grid.Region{
		"disjoint":       grid.NewRegion(grid.Index{20, 20}, []int{2, 2}),
		"sticking out":   grid.NewRegion(grid.Index{6, 6}, []int{4, 4}),
		"negative start": grid.NewRegion(grid.Index{-1, 0}, []int{3, 3}),
		"arity":          grid.NewRegion(grid.Index{0}, []int{3}),
	}
	for name, r := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := fastmarch.New(speed, seed, fastmarch.WithRegion(r))
			assert.ErrorIs(t, err, fastmarch.ErrRegion)
			assert.NotErrorIs(t, err, fastmarch.ErrConfiguration)
		})
	}

	_, err := fastmarch.New(speed, seed, fastmarch.WithRegion(grid.NewRegion(grid.Index{6, 6}, []int{4, 4})))
	assert.ErrorIs(t, err, grid.ErrRegion)
}

// ------------------------------------------------------------------------
// 2. Numerics
// ------------------------------------------------------------------------

func TestRun_OneDimensionalIsExact(t *testing.T) {
	res := run(t, uniform(t, []int{10}, 2, grid.WithSpacing(0.5)), aliveAt(grid.Index{0}, 0))
	for i := 0; i < 10; i++ {
		assert.InDelta(t, float64(i)*0.25, timeAt(t, res, grid.Index{i}), 1e-12)
	}
	assert.Equal(t, fastmarch.StopQueueEmpty, res.StopReason)
	assert.Equal(t, 10, res.CountLabel(fastmarch.Alive))
}

func TestRun_ConstantSpeedAlongAxes(t *testing.T) {
	for _, order := range []fastmarch.Order{fastmarch.FirstOrder, fastmarch.SecondOrder} {
		t.Run(order.String(), func(t *testing.T) {
			// first order is exact on the axes; second order mixes in off-axis terms
			tol := 1e-9
			if order == fastmarch.SecondOrder {
				tol = 0.5
			}
			res := run(t, uniform(t, []int{21, 21}, 1), aliveAt(grid.Index{10, 10}, 0), fastmarch.WithOrder(order))
			for d := 1; d <= 10; d++ {
				assert.InDelta(t, float64(d), timeAt(t, res, grid.Index{10 + d, 10}), tol)
				assert.InDelta(t, float64(d), timeAt(t, res, grid.Index{10, 10 - d}), tol)
			}
			// off-axis: between the Euclidean distance and the Manhattan distance
			diag := timeAt(t, res, grid.Index{16, 16})
			assert.GreaterOrEqual(t, diag, 6*math.Sqrt2-tol)
			assert.LessOrEqual(t, diag, 12.0)
		})
	}
}

func TestRun_ConvergesUnderRefinement(t *testing.T) {
	// Unit square, seed at the origin, error of T(1,1) against √2.
	errAt := func(n int) float64 {
		h := 1 / float64(n-1)
		res := run(t, uniform(t, []int{n, n}, 1, grid.WithSpacing(h, h)), aliveAt(grid.Index{0, 0}, 0))
		return math.Abs(timeAt(t, res, grid.Index{n - 1, n - 1}) - math.Sqrt2)
	}
	coarse, fine := errAt(11), errAt(81)
	assert.Less(t, fine, coarse)
}

func TestRun_SpeedConstantMatchesField(t *testing.T) {
	field := uniform(t, []int{7, 5}, 3)
	want := run(t, field, aliveAt(grid.Index{2, 2}, 0))
	got := run(t, nil, fastmarch.WithSpeedConstant(field.Grid(), 3), aliveAt(grid.Index{2, 2}, 0))

	if diff := cmp.Diff(want.Times.Data(), got.Times.Data()); diff != "" {
		t.Fatalf("constant speed mismatch (-field +constant):\n%s", diff)
	}
}

func TestRun_NormalizationFactor(t *testing.T) {
	res := run(t, uniform(t, []int{5}, 4), aliveAt(grid.Index{0}, 0), fastmarch.WithNormalizationFactor(2))
	assert.InDelta(t, 2.0, timeAt(t, res, grid.Index{4}), 1e-12)
}

func TestRun_SeedsAndTrialSeeds(t *testing.T) {
	speed := uniform(t, []int{11}, 1)

	res := run(t, speed, aliveAt(grid.Index{0}, 0), aliveAt(grid.Index{10}, 0))
	assert.Equal(t, 5.0, timeAt(t, res, grid.Index{5}))
	assert.Equal(t, 4.0, timeAt(t, res, grid.Index{6}))

	res = run(t, speed, fastmarch.WithTrialSeeds(fastmarch.Node{Index: grid.Index{0}, Time: 1}))
	assert.Equal(t, 1.0, timeAt(t, res, grid.Index{0}))
	assert.Equal(t, 4.0, timeAt(t, res, grid.Index{3}))
	lbl, err := res.LabelAt(grid.Index{0})
	require.NoError(t, err)
	assert.Equal(t, fastmarch.Alive, lbl)

	// An Alive seed wins over a Trial seed on the same cell; duplicates keep the smaller time.
	res = run(t, speed,
		aliveAt(grid.Index{3}, 2), aliveAt(grid.Index{3}, 1),
		fastmarch.WithTrialSeeds(fastmarch.Node{Index: grid.Index{3}, Time: 0}),
	)
	assert.Equal(t, 1.0, timeAt(t, res, grid.Index{3}))
	assert.Equal(t, 4.0, timeAt(t, res, grid.Index{0}))
}

// ------------------------------------------------------------------------
// 3. Ordering properties
// ------------------------------------------------------------------------

func TestRun_Causality(t *testing.T) {
	for _, order := range []fastmarch.Order{fastmarch.FirstOrder, fastmarch.SecondOrder} {
		t.Run(order.String(), func(t *testing.T) {
			res := run(t, randomSpeed(t, []int{30, 25}, 7),
				aliveAt(grid.Index{3, 4}, 0), aliveAt(grid.Index{20, 20}, 0.5),
				fastmarch.WithOrder(order), fastmarch.WithCollectPoints(),
			)
			require.Len(t, res.Processed, 30*25)
			// seeds first, then extraction order
			for i := 3; i < len(res.Processed); i++ {
				require.LessOrEqual(t, res.Processed[i-1].Time, res.Processed[i].Time, "step %d", i)
			}
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	speed := randomSpeed(t, []int{16, 12, 6}, 3)
	opts := []fastmarch.Option{
		aliveAt(grid.Index{0, 0, 0}, 0), aliveAt(grid.Index{15, 11, 5}, 0),
		fastmarch.WithOrder(fastmarch.SecondOrder), fastmarch.WithCollectPoints(),
	}

	eng, err := fastmarch.New(speed, opts...)
	require.NoError(t, err)
	first, err := eng.Run(context.Background())
	require.NoError(t, err)
	again, err := eng.Run(context.Background())
	require.NoError(t, err)
	fresh := run(t, speed, opts...)

	if diff := cmp.Diff(first.Times.Data(), again.Times.Data()); diff != "" {
		t.Fatalf("rerun differs:\n%s", diff)
	}
	if diff := cmp.Diff(first.Times.Data(), fresh.Times.Data()); diff != "" {
		t.Fatalf("new engine differs:\n%s", diff)
	}
	if diff := cmp.Diff(first.Processed, fresh.Processed); diff != "" {
		t.Fatalf("processing order differs:\n%s", diff)
	}
}

// ------------------------------------------------------------------------
// 4. Stopping
// ------------------------------------------------------------------------

func TestRun_StoppingValue(t *testing.T) {
	res := run(t, uniform(t, []int{10}, 1), aliveAt(grid.Index{0}, 0),
		fastmarch.WithStoppingValue(3.5), fastmarch.WithUnreachedValue(-1))

	assert.Equal(t, fastmarch.StopValueExceeded, res.StopReason)
	assert.Equal(t, 4, res.CountLabel(fastmarch.Alive))
	lbl, _ := res.LabelAt(grid.Index{4})
	assert.Equal(t, fastmarch.Trial, lbl)
	assert.Equal(t, 4.0, timeAt(t, res, grid.Index{4}), "tentative time kept")
	assert.Equal(t, -1.0, timeAt(t, res, grid.Index{7}))
	assert.Equal(t, 3.0, res.TargetValue, "last processed time in NoTargets mode")
}

func TestRun_TargetOffset(t *testing.T) {
	speed := uniform(t, []int{20}, 1)
	target := grid.Index{5}

	res := run(t, speed, aliveAt(grid.Index{0}, 0),
		fastmarch.WithTargets(target), fastmarch.WithTargetReachedMode(fastmarch.OneTarget))
	assert.Equal(t, fastmarch.StopTargetsReached, res.StopReason)
	assert.Equal(t, 6, res.CountLabel(fastmarch.Alive))
	assert.Equal(t, 5.0, res.TargetValue)
	require.Len(t, res.ReachedTargets, 1)
	assert.Equal(t, fastmarch.Node{Index: target, Time: 5}, res.ReachedTargets[0])

	res = run(t, speed, aliveAt(grid.Index{0}, 0),
		fastmarch.WithTargets(target), fastmarch.WithTargetReachedMode(fastmarch.OneTarget),
		fastmarch.WithTargetOffset(2.5))
	assert.Equal(t, 8, res.CountLabel(fastmarch.Alive))
	assert.Equal(t, 5.0, res.TargetValue)
	lbl, _ := res.LabelAt(grid.Index{8})
	assert.Equal(t, fastmarch.Trial, lbl)
}

func TestRun_OneTargetNoOvershoot(t *testing.T) {
	target := grid.Index{12, 9}
	res := run(t, randomSpeed(t, []int{20, 20}, 11), aliveAt(grid.Index{2, 2}, 0),
		fastmarch.WithTargets(target), fastmarch.WithTargetReachedMode(fastmarch.OneTarget))

	tt := timeAt(t, res, target)
	assert.Equal(t, tt, res.TargetValue)
	for off, l := range res.Labels {
		if l == fastmarch.Alive {
			assert.LessOrEqual(t, res.Times.AtOffset(off), tt)
		}
	}
}

func TestRun_AllAndSomeTargets(t *testing.T) {
	speed := uniform(t, []int{30}, 1)
	targets := fastmarch.WithTargets(grid.Index{20}, grid.Index{4}, grid.Index{10})

	res := run(t, speed, aliveAt(grid.Index{0}, 0), targets, fastmarch.WithTargetReachedMode(fastmarch.AllTargets))
	assert.Equal(t, 3, res.ReachedCount)
	assert.Equal(t, 20.0, res.TargetValue)
	assert.Equal(t, []fastmarch.Node{
		{Index: grid.Index{4}, Time: 4},
		{Index: grid.Index{10}, Time: 10},
		{Index: grid.Index{20}, Time: 20},
	}, res.ReachedTargets)

	res = run(t, speed, aliveAt(grid.Index{0}, 0), targets, fastmarch.WithSomeTargets(2))
	assert.Equal(t, 2, res.ReachedCount)
	assert.Equal(t, 10.0, res.TargetValue)
	assert.Equal(t, 11, res.CountLabel(fastmarch.Alive))
}

func TestRun_SeedOnTarget(t *testing.T) {
	res := run(t, uniform(t, []int{5, 5}, 1), aliveAt(grid.Index{2, 2}, 0),
		fastmarch.WithTargets(grid.Index{2, 2}), fastmarch.WithTargetReachedMode(fastmarch.OneTarget))
	assert.Equal(t, fastmarch.StopTargetsReached, res.StopReason)
	assert.Equal(t, 1, res.CountLabel(fastmarch.Alive))
	assert.Equal(t, 0.0, res.TargetValue)
}

func TestEngine_SetTargetReachedMode(t *testing.T) {
	eng, err := fastmarch.New(uniform(t, []int{8, 8}, 1), aliveAt(grid.Index{0, 0}, 0),
		fastmarch.WithTargets(grid.Index{5, 5}, grid.Index{3, 0}),
		fastmarch.WithTargetReachedMode(fastmarch.OneTarget))
	require.NoError(t, err)

	err = eng.SetTargetReachedMode(fastmarch.SomeTargets, 3)
	assert.ErrorIs(t, err, fastmarch.ErrNotEnoughTargets)
	mode, k := eng.TargetReachedMode()
	assert.Equal(t, fastmarch.OneTarget, mode)
	assert.Equal(t, 1, k)

	require.NoError(t, eng.SetTargetReachedMode(fastmarch.AllTargets, 0))
	assert.ErrorIs(t, eng.SetTargetOffset(math.NaN()), fastmarch.ErrBadTargetOffset)
	res, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.ReachedCount)
	assert.Equal(t, fastmarch.StopTargetsReached, res.StopReason)
}

// ------------------------------------------------------------------------
// 5. Unreachable cells, regions, cancellation
// ------------------------------------------------------------------------

func TestRun_UnreachableIsolation(t *testing.T) {
	speed := uniform(t, []int{6, 6}, 1)
	for _, wall := range []grid.Index{{2, 3}, {4, 3}, {3, 2}, {3, 4}} {
		require.NoError(t, speed.Set(wall, 0))
	}
	res := run(t, speed, aliveAt(grid.Index{0, 0}, 0), fastmarch.WithUnreachedValue(1e9))

	for _, idx := range []grid.Index{{3, 3}, {2, 3}, {3, 2}} {
		lbl, err := res.LabelAt(idx)
		require.NoError(t, err)
		assert.Equal(t, fastmarch.Far, lbl, idx.String())
		assert.Equal(t, 1e9, timeAt(t, res, idx))
	}
	assert.Equal(t, 36-5, res.CountLabel(fastmarch.Alive))
	assert.Equal(t, fastmarch.StopQueueEmpty, res.StopReason)
}

func TestRun_DefaultUnreachedIsInf(t *testing.T) {
	speed := uniform(t, []int{3}, 1)
	require.NoError(t, speed.Set(grid.Index{1}, -2))
	res := run(t, speed, aliveAt(grid.Index{0}, 0))
	assert.True(t, math.IsInf(timeAt(t, res, grid.Index{2}), 1))
}

func TestRun_Region(t *testing.T) {
	speed := uniform(t, []int{10, 10}, 1)
	r := grid.NewRegion(grid.Index{2, 2}, []int{5, 4})

	eng, err := fastmarch.New(speed, aliveAt(grid.Index{2, 2}, 0), fastmarch.WithRegion(r), fastmarch.WithCollectPoints())
	require.NoError(t, err)
	assert.Equal(t, []int{5, 4}, eng.Grid().Size())
	assert.Equal(t, r, eng.Region())

	res, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, r, res.Region)
	assert.Equal(t, 20, res.CountLabel(fastmarch.Alive))
	assert.Equal(t, 4.0, timeAt(t, res, grid.Index{6, 2}))
	assert.Equal(t, 3.0, timeAt(t, res, grid.Index{2, 5}))
	assert.Equal(t, grid.Index{2, 2}, res.Processed[0].Index)

	_, err = res.TimeAt(grid.Index{0, 0})
	assert.ErrorIs(t, err, grid.ErrOutOfRange)

	// seeds are given in speed-field indices and must lie in the region
	_, err = fastmarch.New(speed, aliveAt(grid.Index{0, 0}, 0), fastmarch.WithRegion(r))
	assert.ErrorIs(t, err, fastmarch.ErrSeedOutOfRegion)
}

func TestRun_Cancelled(t *testing.T) {
	eng, err := fastmarch.New(uniform(t, []int{50, 50}, 1), aliveAt(grid.Index{0, 0}, 0))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := eng.Run(ctx)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResult_GradientAtWithoutGradient(t *testing.T) {
	res := run(t, uniform(t, []int{3}, 1), aliveAt(grid.Index{0}, 0))
	_, err := res.GradientAt(grid.Index{1})
	assert.ErrorIs(t, err, fastmarch.ErrNoGradient)
}
