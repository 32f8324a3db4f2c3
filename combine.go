package multinbs

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Combine blends a binary somatic mutation profile with a continuous
// expression profile into a single multi-omic profile:
//
//	S = beta*P + (1-beta)*Q
//
// where P is the mutation profile and Q is the expression profile min-max
// scaled per gene into [0, 1] so both terms share the mutation profile's
// range. The expression profile is aligned to the mutation profile's samples
// and genes before scaling; it must cover all of them. Constant expression
// columns scale to zero. Profiles containing NaN are rejected; resolve
// missing values with [Profile.FillNaN] first.
func Combine(mut, expr *Profile, beta float64) (*Profile, error) {
	if beta < 0 || beta > 1 {
		return nil, fmt.Errorf("multinbs: beta must be in [0,1], got %g", beta)
	}
	if mut.HasNaN() {
		return nil, fmt.Errorf("multinbs: mutation profile contains NaN entries; fill them before combining")
	}
	if expr.HasNaN() {
		return nil, fmt.Errorf("multinbs: expression profile contains NaN entries; fill them before combining")
	}

	rows := make([]int, mut.NumSamples())
	for i, s := range mut.samples {
		idx, ok := expr.sampleIndex[s]
		if !ok {
			return nil, fmt.Errorf("multinbs: expression profile is missing sample %q", s)
		}
		rows[i] = idx
	}
	cols := make([]int, mut.NumGenes())
	missing := 0
	firstMissing := ""
	for j, g := range mut.genes {
		idx, ok := expr.geneIndex[g]
		if !ok {
			if missing == 0 {
				firstMissing = g
			}
			missing++
			continue
		}
		cols[j] = idx
	}
	if missing > 0 {
		return nil, fmt.Errorf("multinbs: expression profile is missing %d of %d mutation genes (first missing: %q)", missing, mut.NumGenes(), firstMissing)
	}

	aligned := mat.NewDense(len(rows), len(cols), nil)
	for i, r := range rows {
		for j, c := range cols {
			aligned.Set(i, j, expr.data.At(r, c))
		}
	}
	minMaxScaleColumns(aligned)

	var blended mat.Dense
	blended.Scale(beta, mut.data)
	aligned.Scale(1-beta, aligned)
	blended.Add(&blended, aligned)
	return newProfileFromDense(mut.Samples(), mut.Genes(), &blended), nil
}

// minMaxScaleColumns rescales each column of m into [0, 1] in place,
// mapping constant columns to zero.
func minMaxScaleColumns(m *mat.Dense) {
	r, c := m.Dims()
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, m)
		lo := floats.Min(col)
		span := floats.Max(col) - lo
		for i := 0; i < r; i++ {
			if span == 0 {
				m.Set(i, j, 0)
			} else {
				m.Set(i, j, (col[i]-lo)/span)
			}
		}
	}
}
