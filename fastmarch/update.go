package fastmarch

import (
	"math"

	"github.com/katalvlaran/fastmarch/grid"
)

// axisTerm is one axis' contribution to the upwind quadratic:
// w·(T − v)², with t1 the upwind neighbour time used for ordering and causality.
type axisTerm struct {
	axis int
	t1   float64
	v    float64
	w    float64
}

// eikonal solves the discretised |∇T| = 1/F at one cell from its Alive neighbours.
//
// Scheme (per cell x, F = speed(x)/norm):
//  1. For every axis pick the Alive neighbour with the smaller time t1.
//     SecondOrder additionally uses t2, the next cell on the same side, when it
//     is Alive and t2 ≤ t1: the term becomes (9/4h²)(T − (4t1 − t2)/3)².
//  2. Sort terms by t1 and add them one by one while the running solution
//     is ≥ the next t1, solving a·T² + b·T + c = 0 (larger root) after each.
//  3. A negative discriminant, or a root below the largest included t1,
//     falls back to t1 + h/F on the axis with the smallest t1.
type eikonal struct {
	g      *grid.Grid
	speed  []float64
	norm   float64
	order  Order
	labels *LabelField
	terms  []axisTerm
}

func newEikonal(g *grid.Grid, speed []float64, norm float64, order Order, labels *LabelField) *eikonal {
	return &eikonal{
		g:      g,
		speed:  speed,
		norm:   norm,
		order:  order,
		labels: labels,
		terms:  make([]axisTerm, 0, g.Dims()),
	}
}

// solve returns the tentative time of the cell at offset, +Inf if the cell
// is impassable or has no Alive neighbour.
func (e *eikonal) solve(offset int) float64 {
	inf := math.Inf(1)
	f := e.speed[offset] / e.norm
	if !(f > 0) {
		return inf
	}

	terms := e.terms[:0]
	state, value := e.labels.state, e.labels.value
	for d := 0; d < e.g.Dims(); d++ {
		best, bestOff, side := inf, 0, 0
		for _, dir := range [2]int{-1, +1} {
			n, ok := e.g.Neighbor(offset, d, dir)
			if !ok || state[n] != Alive {
				continue
			}
			if value[n] < best {
				best, bestOff, side = value[n], n, dir
			}
		}
		if side == 0 {
			continue
		}
		h := e.g.AxisSpacing(d)
		term := axisTerm{axis: d, t1: best, v: best, w: 1 / (h * h)}
		if e.order == SecondOrder {
			if n2, ok := e.g.Neighbor(bestOff, d, side); ok && state[n2] == Alive && value[n2] <= best {
				term.v = (4*best - value[n2]) / 3
				term.w = 9 / (4 * h * h)
			}
		}
		terms = append(terms, term)
	}
	if len(terms) == 0 {
		return inf
	}
	sortTerms(terms)

	a, b, c := 0.0, 0.0, -1/(f*f)
	solution := inf
	for _, tm := range terms {
		if solution < tm.t1 {
			break
		}
		a += tm.w
		b -= 2 * tm.w * tm.v
		c += tm.w * tm.v * tm.v
		disc := b*b - 4*a*c
		if disc < 0 {
			return e.fallback(terms[0], f)
		}
		solution = (-b + math.Sqrt(disc)) / (2 * a)
		if solution < tm.t1 {
			return e.fallback(terms[0], f)
		}
	}

	return solution
}

// fallback is the single-axis first-order update; solvable for any F > 0.
func (e *eikonal) fallback(tm axisTerm, f float64) float64 {
	return tm.t1 + e.g.AxisSpacing(tm.axis)/f
}

// sortTerms is a stable insertion sort by t1; at most N terms.
func sortTerms(terms []axisTerm) {
	for i := 1; i < len(terms); i++ {
		for j := i; j > 0 && terms[j].t1 < terms[j-1].t1; j-- {
			terms[j], terms[j-1] = terms[j-1], terms[j]
		}
	}
}
