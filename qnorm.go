package multinbs

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// QuantileNormalize forces every gene column onto a common distribution: the
// target distribution is the mean of the per-column order statistics, and
// each entry is replaced by the target value at its within-column rank. Tied
// entries share the value at their lowest rank, so equal inputs stay equal.
// Smoothed profiles are normalized this way before factorization so that no
// single gene's scale dominates. A single-sample profile comes back as an
// unchanged copy; one observation per gene gives ranks nothing to align.
func QuantileNormalize(p *Profile) *Profile {
	n := p.NumSamples()
	m := p.NumGenes()
	if n < 2 {
		return newProfileFromDense(p.Samples(), p.Genes(), mat.DenseCopyOf(p.data))
	}
	out := newProfileFromDense(p.Samples(), p.Genes(), mat.NewDense(n, m, nil))

	// Rank every column, accumulating the mean order statistics.
	orders := make([][]int, m)
	target := make([]float64, n)
	col := make([]float64, n)
	for j := 0; j < m; j++ {
		mat.Col(col, j, p.data)
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return col[order[a]] < col[order[b]]
		})
		orders[j] = order
		for r, i := range order {
			target[r] += col[i]
		}
	}
	floats.Scale(1/float64(m), target)

	// Assign target values by rank, giving runs of ties their lowest rank.
	for j := 0; j < m; j++ {
		mat.Col(col, j, p.data)
		order := orders[j]
		for r := 0; r < n; {
			s := r
			v := col[order[r]]
			for r < n && col[order[r]] == v {
				r++
			}
			for t := s; t < r; t++ {
				out.data.Set(order[t], j, target[s])
			}
		}
	}
	return out
}
