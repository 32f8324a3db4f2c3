package multinbs

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// NNLS solves the non-negative least squares problem
//
//	min ||A*x - b||  subject to  x >= 0
//
// with the Lawson–Hanson active-set method. Factorization uses it to refit
// the coefficient matrix column by column under the non-negativity
// constraint.
func NNLS(a mat.Matrix, b []float64) ([]float64, error) {
	m, n := a.Dims()
	if len(b) != m {
		return nil, fmt.Errorf("multinbs: nnls: b has length %d, want %d", len(b), m)
	}

	tol := 10 * machEps * mat.Norm(a, 1) * float64(max(m, n))

	x := make([]float64, n)
	xv := mat.NewVecDense(n, x)
	bv := mat.NewVecDense(m, append([]float64(nil), b...))
	passive := make([]bool, n)

	resid := mat.NewVecDense(m, nil)
	resid.CopyVec(bv)
	w := mat.NewVecDense(n, nil)
	w.MulVec(a.T(), resid)

	cols := make([]int, 0, n)
	for iter := 0; iter < 3*n; iter++ {
		// Most violated KKT coordinate among the active (zero) set.
		j, best := -1, tol
		for i := 0; i < n; i++ {
			if !passive[i] && w.AtVec(i) > best {
				j, best = i, w.AtVec(i)
			}
		}
		if j < 0 {
			break
		}
		passive[j] = true

		for inner := 0; inner <= n; inner++ {
			cols = cols[:0]
			for i := 0; i < n; i++ {
				if passive[i] {
					cols = append(cols, i)
				}
			}
			if len(cols) > m {
				return nil, fmt.Errorf("multinbs: nnls: passive set larger than row count (%d > %d)", len(cols), m)
			}

			sub := mat.NewDense(m, len(cols), nil)
			for ci, i := range cols {
				for r := 0; r < m; r++ {
					sub.Set(r, ci, a.At(r, i))
				}
			}
			var qr mat.QR
			qr.Factorize(sub)
			var sol mat.Dense
			if err := qr.SolveTo(&sol, false, bv); err != nil {
				if _, ok := err.(mat.Condition); !ok {
					return nil, fmt.Errorf("multinbs: nnls least squares: %w", ErrSingular)
				}
			}

			minS := math.Inf(1)
			for ci := range cols {
				if s := sol.At(ci, 0); s < minS {
					minS = s
				}
			}
			if minS > 0 {
				for ci, i := range cols {
					x[i] = sol.At(ci, 0)
				}
				break
			}

			// Back off along the segment from x to s until the first
			// passive coordinate hits zero, then release it.
			alpha := math.Inf(1)
			for ci, i := range cols {
				s := sol.At(ci, 0)
				if s <= 0 {
					if r := x[i] / (x[i] - s); r < alpha {
						alpha = r
					}
				}
			}
			for ci, i := range cols {
				s := sol.At(ci, 0)
				x[i] += alpha * (s - x[i])
				if x[i] <= tol {
					x[i] = 0
					passive[i] = false
				}
			}
		}

		resid.MulVec(a, xv)
		resid.SubVec(bv, resid)
		w.MulVec(a.T(), resid)
	}
	return x, nil
}

// machEps is the double-precision machine epsilon.
const machEps = 2.220446049250313e-16
