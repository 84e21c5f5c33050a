package fastmarch

import "math"

// LabelField stores the propagation state and arrival time of every cell,
// addressed by flat offset.
type LabelField struct {
	state []Label
	value []float64
}

// NewLabelField allocates n cells, all Far with an infinite time.
func NewLabelField(n int) *LabelField {
	lf := &LabelField{
		state: make([]Label, n),
		value: make([]float64, n),
	}
	lf.Reset()

	return lf
}

// Reset marks every cell Far again.
func (lf *LabelField) Reset() {
	inf := math.Inf(1)
	for i := range lf.state {
		lf.state[i] = Far
		lf.value[i] = inf
	}
}

// Len returns the number of cells.
func (lf *LabelField) Len() int { return len(lf.state) }

// GetState returns the label of a cell.
func (lf *LabelField) GetState(offset int) Label { return lf.state[offset] }

// SetState sets the label of a cell.
func (lf *LabelField) SetState(offset int, l Label) { lf.state[offset] = l }

// GetValue returns the stored time of a cell (+Inf while Far).
func (lf *LabelField) GetValue(offset int) float64 { return lf.value[offset] }

// SetValue stores the time of a cell.
func (lf *LabelField) SetValue(offset int, v float64) { lf.value[offset] = v }

// States exposes the label slice. Callers must not modify it during propagation.
func (lf *LabelField) States() []Label { return lf.state }
