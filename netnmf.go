package multinbs

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// NMFOptions controls one network-regularized factorization.
type NMFOptions struct {
	// Clusters is the factorization rank k: the number of subtypes to
	// decompose the cohort into.
	Clusters int
	// Lambda weighs the network regularizer that pulls linked genes toward
	// similar basis loadings.
	Lambda float64
	// MaxIterations bounds the update loop.
	MaxIterations int
	// Epsilon is the positivity clamp applied to both factors.
	Epsilon float64
	// ErrTol stops iteration once the Frobenius reconstruction error falls
	// below it.
	ErrTol float64
	// ErrDeltaTol stops iteration once the fit changes less than this
	// between iterations.
	ErrDeltaTol float64
}

// DefaultNMFOptions returns the standard factorization parameters.
func DefaultNMFOptions() NMFOptions {
	return NMFOptions{
		Clusters:      4,
		Lambda:        200,
		MaxIterations: 250,
		Epsilon:       1e-15,
		ErrTol:        1e-4,
		ErrDeltaTol:   1e-8,
	}
}

func (o NMFOptions) validate(rows, cols int) error {
	if o.Clusters < 1 {
		return fmt.Errorf("multinbs: factorization rank must be >= 1, got %d", o.Clusters)
	}
	if o.Clusters > rows || o.Clusters > cols {
		return fmt.Errorf("multinbs: factorization rank %d exceeds data dimensions %dx%d", o.Clusters, rows, cols)
	}
	if o.Lambda < 0 {
		return fmt.Errorf("multinbs: lambda must be >= 0, got %g", o.Lambda)
	}
	if o.MaxIterations < 1 {
		return fmt.Errorf("multinbs: max iterations must be >= 1, got %d", o.MaxIterations)
	}
	if o.Epsilon <= 0 {
		return fmt.Errorf("multinbs: epsilon must be > 0, got %g", o.Epsilon)
	}
	if o.ErrTol < 0 || o.ErrDeltaTol < 0 {
		return fmt.Errorf("multinbs: error tolerances must be >= 0, got %g and %g", o.ErrTol, o.ErrDeltaTol)
	}
	return nil
}

// NMFResult holds the factorization X ≈ W*H along with convergence state.
type NMFResult struct {
	// W is the genes-by-k basis matrix.
	W *mat.Dense
	// H is the k-by-samples coefficient matrix; a sample's subtype is the
	// row with its largest coefficient.
	H *mat.Dense
	// Iterations is the number of update rounds performed.
	Iterations int
	// Residual is the final Frobenius reconstruction error ||X - W*H||.
	Residual float64
	// Converged reports whether a tolerance was met before MaxIterations.
	Converged bool
}

// NetNMF factors a genes-by-samples matrix X into non-negative W*H while a
// graph Laplacian penalty keeps network-adjacent genes close in W:
//
//	W <- W ∘ (X*Hᵀ + λ*A*W) ⊘ (W*H*Hᵀ + λ*D*W)
//
// with A and D the adjacency and degree parts of lap, followed by a
// non-negative least squares refit of each H column. X must itself be
// non-negative. H is seeded uniformly
// from rng (nil means an unseeded source), and W starts from an
// unconstrained least squares fit with columns scaled to unit sum.
func NetNMF(x *mat.Dense, lap *mat.SymDense, opts NMFOptions, rng *rand.Rand) (*NMFResult, error) {
	r, c := x.Dims()
	if n := lap.SymmetricDim(); n != r {
		return nil, fmt.Errorf("multinbs: laplacian is %dx%d but data has %d genes", n, n, r)
	}
	if err := opts.validate(r, c); err != nil {
		return nil, err
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if x.At(i, j) < 0 {
				return nil, fmt.Errorf("multinbs: data matrix entry (%d,%d) is negative: %g", i, j, x.At(i, j))
			}
		}
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	k := opts.Clusters
	eps := opts.Epsilon

	// Split the Laplacian into degree and adjacency parts.
	degData := make([]float64, r)
	adj := mat.NewDense(r, r, nil)
	for i := 0; i < r; i++ {
		degData[i] = lap.At(i, i)
		for j := 0; j < r; j++ {
			if i != j {
				adj.Set(i, j, -lap.At(i, j))
			}
		}
	}
	deg := mat.NewDiagDense(r, degData)

	// Seed H uniformly, then fit W to it by least squares.
	h := mat.NewDense(k, c, nil)
	for i := 0; i < k; i++ {
		for j := 0; j < c; j++ {
			h.Set(i, j, math.Max(rng.Float64(), eps))
		}
	}
	var qr mat.QR
	qr.Factorize(h.T())
	var wt mat.Dense
	if err := qr.SolveTo(&wt, false, x.T()); err != nil {
		if _, ok := err.(mat.Condition); !ok {
			return nil, fmt.Errorf("multinbs: initialize basis matrix: %w", ErrSingular)
		}
	}
	w := mat.NewDense(r, k, nil)
	w.Copy(wt.T())
	clampMin(w, eps)
	normalizeColumnSums(w)

	res := &NMFResult{}
	var prevFit *mat.Dense
	xcol := make([]float64, r)
	for iter := 0; iter < opts.MaxIterations; iter++ {
		var fit mat.Dense
		fit.Mul(w, h)
		var diff mat.Dense
		diff.Sub(x, &fit)
		res.Residual = mat.Norm(&diff, 2)
		fitDelta := math.Inf(1)
		if prevFit != nil {
			var change mat.Dense
			change.Sub(prevFit, &fit)
			fitDelta = mat.Norm(&change, 2)
		}
		prevFit = mat.DenseCopyOf(&fit)
		if res.Residual < opts.ErrTol || fitDelta < opts.ErrDeltaTol {
			res.Converged = true
			break
		}

		// Multiplicative W update against the network penalty.
		var numer, denom, hht, tmp mat.Dense
		numer.Mul(x, h.T())
		tmp.Mul(adj, w)
		tmp.Scale(opts.Lambda, &tmp)
		numer.Add(&numer, &tmp)
		hht.Mul(h, h.T())
		denom.Mul(w, &hht)
		tmp.Mul(deg, w)
		tmp.Scale(opts.Lambda, &tmp)
		denom.Add(&denom, &tmp)
		addConst(&numer, eps)
		addConst(&denom, eps)
		w.MulElem(w, &numer)
		w.DivElem(w, &denom)
		clampMin(w, eps)

		// Constrained H refit, one sample column at a time.
		for j := 0; j < c; j++ {
			mat.Col(xcol, j, x)
			hcol, err := NNLS(w, xcol)
			if err != nil {
				return nil, fmt.Errorf("multinbs: refit coefficients for sample column %d: %w", j, err)
			}
			for i := 0; i < k; i++ {
				h.Set(i, j, math.Max(hcol[i], eps))
			}
		}
		res.Iterations = iter + 1
	}

	if !res.Converged {
		var fit, diff mat.Dense
		fit.Mul(w, h)
		diff.Sub(x, &fit)
		res.Residual = mat.Norm(&diff, 2)
	}
	res.W = w
	res.H = h
	return res, nil
}

// HardAssignments labels each sample column of H with the index of its
// largest coefficient row, ties to the lowest index.
func HardAssignments(h *mat.Dense) []int {
	k, c := h.Dims()
	labels := make([]int, c)
	for j := 0; j < c; j++ {
		best := 0
		for i := 1; i < k; i++ {
			if h.At(i, j) > h.At(best, j) {
				best = i
			}
		}
		labels[j] = best
	}
	return labels
}

func clampMin(m *mat.Dense, lo float64) {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if m.At(i, j) < lo {
				m.Set(i, j, lo)
			}
		}
	}
}

func addConst(m *mat.Dense, v float64) {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			m.Set(i, j, m.At(i, j)+v)
		}
	}
}

// normalizeColumnSums scales each column to sum to one. Columns are assumed
// positive.
func normalizeColumnSums(m *mat.Dense) {
	r, c := m.Dims()
	for j := 0; j < c; j++ {
		var sum float64
		for i := 0; i < r; i++ {
			sum += m.At(i, j)
		}
		if sum == 0 {
			continue
		}
		for i := 0; i < r; i++ {
			m.Set(i, j, m.At(i, j)/sum)
		}
	}
}
