// Package linalg solves the small mass-matrix systems that appear in the
// equations of motion.
package linalg

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/plantsim/internal/dynamo"
)

// MaxCondition is the largest condition number accepted before a mass
// matrix is reported as singular.
const MaxCondition = 1e12

// Solve returns a such that m*a = b using an LU factorization with partial
// pivoting. It fails with dynamo.ErrSingularDynamics when m is singular or
// its condition number exceeds MaxCondition.
func Solve(m *mat.Dense, b []float64) ([]float64, error) {
	r, c := m.Dims()
	if r != c || r != len(b) {
		return nil, fmt.Errorf("%w: %dx%d matrix against %d-vector", dynamo.ErrDimensionMismatch, r, c, len(b))
	}

	if !finite(m.RawMatrix().Data) || !finite(b) {
		return nil, fmt.Errorf("%w: non-finite mass matrix or forcing term", dynamo.ErrNonFiniteState)
	}

	var lu mat.LU
	lu.Factorize(m)

	cond := lu.Cond()
	if lu.Det() == 0 || math.IsNaN(cond) || cond > MaxCondition {
		return nil, fmt.Errorf("%w: condition number %.3g", dynamo.ErrSingularDynamics, cond)
	}

	var x mat.VecDense
	if err := lu.SolveVecTo(&x, false, mat.NewVecDense(len(b), b)); err != nil {
		return nil, fmt.Errorf("%w: %v", dynamo.ErrSingularDynamics, err)
	}

	return x.RawVector().Data, nil
}

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Solve2 is Solve for a 2x2 system given in row-major order.
func Solve2(m11, m12, m21, m22, b1, b2 float64) (float64, float64, error) {
	a, err := Solve(mat.NewDense(2, 2, []float64{m11, m12, m21, m22}), []float64{b1, b2})
	if err != nil {
		return 0, 0, err
	}
	return a[0], a[1], nil
}
