package control

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/san-kum/plantsim/internal/dynamo"
)

// StateFeedback computes u = Offset - K(x - x_r). The reference x_r is zero
// except at the indices in RefStates, which take ref[0]. Feedback must be
// the full state.
type StateFeedback struct {
	K         [][]float64
	RefStates []int
	Offset    dynamo.Control
}

func NewStateFeedback(k [][]float64, refStates ...int) *StateFeedback {
	return &StateFeedback{K: k, RefStates: refStates}
}

func (f *StateFeedback) Update(ref dynamo.Reference, x dynamo.Output) dynamo.Control {
	target := make([]float64, len(x))
	if len(ref) > 0 {
		for _, idx := range f.RefStates {
			if idx >= 0 && idx < len(target) {
				target[idx] = ref[0]
			}
		}
	}

	u := make(dynamo.Control, len(f.K))
	for i := range u {
		if i < len(f.Offset) {
			u[i] = f.Offset[i]
		}
		for j := range x {
			if j < len(f.K[i]) {
				u[i] -= f.K[i][j] * (x[j] - target[j])
			}
		}
	}
	return u
}

// GetParams exposes gains as "K<row>_<col>".
func (f *StateFeedback) GetParams() map[string]float64 {
	out := make(map[string]float64)
	for i, row := range f.K {
		for j, k := range row {
			out[fmt.Sprintf("K%d_%d", i, j)] = k
		}
	}
	return out
}

func (f *StateFeedback) SetParam(name string, value float64) error {
	rest, ok := strings.CutPrefix(name, "K")
	if !ok {
		return dynamo.Invalidf("state feedback has no parameter %q", name)
	}
	rowStr, colStr, ok := strings.Cut(rest, "_")
	if !ok {
		return dynamo.Invalidf("state feedback has no parameter %q", name)
	}
	row, err1 := strconv.Atoi(rowStr)
	col, err2 := strconv.Atoi(colStr)
	if err1 != nil || err2 != nil || row < 0 || row >= len(f.K) || col < 0 || col >= len(f.K[row]) {
		return dynamo.Invalidf("state feedback has no parameter %q", name)
	}
	f.K[row][col] = value
	return nil
}
