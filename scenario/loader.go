package scenario

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gonum.org/v1/gonum/floats"

	"github.com/katalvlaran/fastmarch/fastmarch"
	"github.com/katalvlaran/fastmarch/grid"
	"github.com/katalvlaran/fastmarch/internal/ctxlog"
)

// Scenario is a decoded and validated scenario file.
type Scenario struct {
	Path    string
	Speed   *grid.Field
	Targets []grid.Index
	Options []fastmarch.Option

	// speed statistics over the whole field, after obstacles
	SpeedMin   float64
	SpeedMax   float64
	Impassable int

	// Components is the number of connected passable regions of Speed.
	// Isolated lists the targets that no seed can reach through passable
	// cells of the full grid; a region option can only make this worse.
	Components int
	Isolated   []grid.Index
}

// Engine builds a fastmarch.Engine for the scenario; extra options are
// applied after the scenario's own.
func (s *Scenario) Engine(extra ...fastmarch.Option) (*fastmarch.Engine, error) {
	opts := make([]fastmarch.Option, 0, len(s.Options)+len(extra))
	opts = append(opts, s.Options...)
	opts = append(opts, extra...)

	return fastmarch.New(s.Speed, opts...)
}

// Load parses and decodes the scenario file at path. vars override the
// defaults of declared variables; values that parse as numbers or booleans
// are passed as such, everything else as strings.
func Load(ctx context.Context, path string, vars map[string]string) (*Scenario, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading scenario.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s: %w", ErrParse, path, diags)
	}

	return decode(ctx, file.Body, path, vars)
}

// Parse decodes a scenario held in memory; filename is used in diagnostics only.
func Parse(ctx context.Context, src []byte, filename string, vars map[string]string) (*Scenario, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s: %w", ErrParse, filename, diags)
	}

	return decode(ctx, file.Body, filename, vars)
}

func decode(ctx context.Context, body hcl.Body, path string, vars map[string]string) (*Scenario, error) {
	logger := ctxlog.FromContext(ctx)

	var vf variablesFile
	if diags := gohcl.DecodeBody(body, nil, &vf); diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, path, diags)
	}
	evalCtx, err := newEvalContext(vf.Variables, vars)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var sf scenarioFile
	if diags := gohcl.DecodeBody(vf.Remain, evalCtx, &sf); diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, path, diags)
	}

	sc, err := build(&sf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	sc.Path = path

	logger.Debug("Scenario decoded.",
		"path", path,
		"size", sc.Speed.Grid().Size(),
		"variables", len(vf.Variables),
		"seeds", len(sf.Seeds),
		"trial_seeds", len(sf.Trials),
		"targets", len(sc.Targets),
		"speed_min", sc.SpeedMin,
		"speed_max", sc.SpeedMax,
		"impassable", sc.Impassable,
		"components", sc.Components,
	)
	if len(sc.Isolated) > 0 {
		logger.Warn("Targets not connected to any seed.", "path", path, "targets", sc.Isolated)
	}

	return sc, nil
}

// newEvalContext exposes declared variables as var.<name>.
func newEvalContext(decls []variableBlock, overrides map[string]string) (*hcl.EvalContext, error) {
	declared := make(map[string]struct{}, len(decls))
	values := make(map[string]cty.Value, len(decls))
	for _, d := range decls {
		if _, dup := declared[d.Name]; dup {
			return nil, fmt.Errorf("%w: variable %q declared twice", ErrDecode, d.Name)
		}
		declared[d.Name] = struct{}{}
		if !d.Default.IsNull() {
			values[d.Name] = d.Default
		}
	}

	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := declared[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownVariable, name)
		}
		values[name] = literal(overrides[name])
	}

	for _, d := range decls {
		if _, ok := values[d.Name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingVariable, d.Name)
		}
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"var": cty.ObjectVal(values)},
	}, nil
}

// literal types a command-line value.
func literal(raw string) cty.Value {
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(f) {
		return cty.NumberFloatVal(f)
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return cty.BoolVal(b)
	}

	return cty.StringVal(raw)
}

// build turns the decoded blocks into a speed field and engine options.
func build(sf *scenarioFile) (*Scenario, error) {
	// 1) Grid
	var gopts []grid.Option
	if len(sf.Grid.Spacing) > 0 {
		gopts = append(gopts, grid.WithSpacing(sf.Grid.Spacing...))
	}
	if len(sf.Grid.Origin) > 0 {
		gopts = append(gopts, grid.WithOrigin(sf.Grid.Origin...))
	}
	g, err := grid.New(sf.Grid.Size, gopts...)
	if err != nil {
		return nil, fmt.Errorf("%w: grid: %w", ErrInvalid, err)
	}

	// 2) Speed
	sc := &Scenario{}
	sp := sf.Speed
	if sp == nil {
		sp = &speedBlock{}
	}
	if sc.Speed, err = speedField(g, sp); err != nil {
		return nil, err
	}
	data := sc.Speed.Data()
	sc.SpeedMin, sc.SpeedMax = floats.Min(data), floats.Max(data)
	for _, v := range data {
		if !(v > 0) {
			sc.Impassable++
		}
	}
	if sp.Normalization != nil {
		sc.Options = append(sc.Options, fastmarch.WithNormalizationFactor(*sp.Normalization))
	}

	// 3) Seeds and targets
	for _, s := range sf.Seeds {
		sc.Options = append(sc.Options, fastmarch.WithAliveSeeds(fastmarch.Node{Index: grid.Index(s.Index), Time: s.Time}))
	}
	for _, s := range sf.Trials {
		sc.Options = append(sc.Options, fastmarch.WithTrialSeeds(fastmarch.Node{Index: grid.Index(s.Index), Time: s.Time}))
	}
	for _, tg := range sf.Targets {
		sc.Targets = append(sc.Targets, grid.Index(tg.Index))
	}
	if len(sc.Targets) > 0 {
		sc.Options = append(sc.Options, fastmarch.WithTargets(sc.Targets...))
	}
	seeds := make([]grid.Index, 0, len(sf.Seeds)+len(sf.Trials))
	for _, s := range sf.Seeds {
		seeds = append(seeds, grid.Index(s.Index))
	}
	for _, s := range sf.Trials {
		seeds = append(seeds, grid.Index(s.Index))
	}
	sc.connectivity(seeds)

	// 4) Stopping rules
	if sf.Stopping != nil {
		opts, err := stoppingOptions(sf.Stopping)
		if err != nil {
			return nil, err
		}
		sc.Options = append(sc.Options, opts...)
	}

	// 5) Solver
	if sf.Solver != nil {
		opts, err := solverOptions(sf.Solver)
		if err != nil {
			return nil, err
		}
		sc.Options = append(sc.Options, opts...)
	}

	// 6) Region
	if sf.Region != nil {
		sc.Options = append(sc.Options, fastmarch.WithRegion(grid.NewRegion(grid.Index(sf.Region.Start), sf.Region.Size)))
	}

	return sc, nil
}

// connectivity fills Components and Isolated. A seed reaches its own
// component and those of its axis neighbours, since the seed cell's speed is
// never read. Indices outside the grid are skipped; New reports them.
func (s *Scenario) connectivity(seeds []grid.Index) {
	g := s.Speed.Grid()
	labels, count := grid.Components(s.Speed, func(v float64) bool { return v > 0 })
	s.Components = count

	reached := make(map[int]bool)
	seedCells := make(map[int]bool, len(seeds))
	for _, idx := range seeds {
		off, err := g.Offset(idx)
		if err != nil {
			continue
		}
		seedCells[off] = true
		if labels[off] >= 0 {
			reached[labels[off]] = true
		}
		for d := 0; d < g.Dims(); d++ {
			for _, dir := range [2]int{-1, +1} {
				if n, ok := g.Neighbor(off, d, dir); ok && labels[n] >= 0 {
					reached[labels[n]] = true
				}
			}
		}
	}

	for _, idx := range s.Targets {
		off, err := g.Offset(idx)
		if err != nil || seedCells[off] {
			continue
		}
		if labels[off] < 0 || !reached[labels[off]] {
			s.Isolated = append(s.Isolated, idx)
		}
	}
}

// speedField builds the base field (constant or explicit 2-D rows) and
// paints the obstacles over it.
func speedField(g *grid.Grid, sp *speedBlock) (*grid.Field, error) {
	var field *grid.Field
	switch {
	case len(sp.Rows) > 0 && sp.Constant != nil:
		return nil, fmt.Errorf("%w: speed: constant and rows are mutually exclusive", ErrInvalid)
	case len(sp.Rows) > 0:
		if g.Dims() != 2 || len(sp.Rows) != g.AxisSize(1) {
			return nil, fmt.Errorf("%w: speed: rows need a 2-d grid with %d rows", ErrInvalid, g.AxisSize(g.Dims()-1))
		}
		data := make([]float64, 0, g.Len())
		for y, row := range sp.Rows {
			if len(row) != g.AxisSize(0) {
				return nil, fmt.Errorf("%w: speed: row %d has %d values, want %d", ErrInvalid, y, len(row), g.AxisSize(0))
			}
			data = append(data, row...)
		}
		f, err := grid.FromSlice(g, data)
		if err != nil {
			return nil, fmt.Errorf("%w: speed: %w", ErrInvalid, err)
		}
		field = f
	default:
		constant := 1.0
		if sp.Constant != nil {
			constant = *sp.Constant
		}
		field = grid.NewField(g, constant)
	}

	for i, ob := range sp.Obstacles {
		if len(ob.Start) != g.Dims() || len(ob.Size) != g.Dims() {
			return nil, fmt.Errorf("%w: obstacle %d: want %d-d start and size", ErrInvalid, i, g.Dims())
		}
		v := 0.0
		if ob.Speed != nil {
			v = *ob.Speed
		}
		field.Fill(grid.NewRegion(grid.Index(ob.Start), ob.Size), v)
	}

	return field, nil
}

func stoppingOptions(st *stoppingBlock) ([]fastmarch.Option, error) {
	var opts []fastmarch.Option
	switch st.Mode {
	case "", "none":
	case "one":
		opts = append(opts, fastmarch.WithTargetReachedMode(fastmarch.OneTarget))
	case "all":
		opts = append(opts, fastmarch.WithTargetReachedMode(fastmarch.AllTargets))
	case "some":
		if st.Count < 1 {
			return nil, fmt.Errorf("%w: stopping: mode \"some\" needs count >= 1", ErrInvalid)
		}
		opts = append(opts, fastmarch.WithSomeTargets(st.Count))
	default:
		return nil, fmt.Errorf("%w: stopping: unknown mode %q (none, one, some, all)", ErrInvalid, st.Mode)
	}
	if !(st.Offset >= 0) {
		return nil, fmt.Errorf("%w: stopping: offset must be >= 0", ErrInvalid)
	}
	if st.Offset > 0 {
		opts = append(opts, fastmarch.WithTargetOffset(st.Offset))
	}
	if st.Value != nil {
		opts = append(opts, fastmarch.WithStoppingValue(*st.Value))
	}

	return opts, nil
}

func solverOptions(so *solverBlock) ([]fastmarch.Option, error) {
	var opts []fastmarch.Option
	switch so.Order {
	case 0:
	case 1:
		opts = append(opts, fastmarch.WithOrder(fastmarch.FirstOrder))
	case 2:
		opts = append(opts, fastmarch.WithOrder(fastmarch.SecondOrder))
	default:
		return nil, fmt.Errorf("%w: solver: order must be 1 or 2, got %d", ErrInvalid, so.Order)
	}
	switch so.Gradient {
	case "", "none":
	case "incremental":
		opts = append(opts, fastmarch.WithGradient(fastmarch.GradientIncremental))
	case "postpass":
		opts = append(opts, fastmarch.WithGradient(fastmarch.GradientPostPass))
	default:
		return nil, fmt.Errorf("%w: solver: unknown gradient %q (none, incremental, postpass)", ErrInvalid, so.Gradient)
	}
	switch {
	case so.Workers < 0:
		return nil, fmt.Errorf("%w: solver: workers must be >= 0", ErrInvalid)
	case so.Workers > 0:
		opts = append(opts, fastmarch.WithGradientWorkers(so.Workers))
	}
	if so.Unreached != nil {
		opts = append(opts, fastmarch.WithUnreachedValue(*so.Unreached))
	}
	if so.Collect {
		opts = append(opts, fastmarch.WithCollectPoints())
	}

	return opts, nil
}
