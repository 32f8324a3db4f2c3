package multinbs

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Profile is a labeled samples-by-genes matrix of molecular measurements.
// Rows are samples (tumors, patients, cell lines) and columns are genes.
// A binary mutation profile holds 0/1 calls; an expression profile holds
// continuous abundances; a smoothed profile holds propagated heat.
//
// The zero value is not usable. Construct profiles with [NewProfile] or one
// of the loaders, and treat the label slices handed to constructors as owned
// by the profile afterwards.
type Profile struct {
	samples []string
	genes   []string

	sampleIndex map[string]int
	geneIndex   map[string]int

	data *mat.Dense
}

// NewProfile creates an all-zero profile with the given row and column labels.
// Labels must be non-empty and unique within their axis.
func NewProfile(samples, genes []string) (*Profile, error) {
	sampleIndex, err := indexLabels("sample", samples)
	if err != nil {
		return nil, err
	}
	geneIndex, err := indexLabels("gene", genes)
	if err != nil {
		return nil, err
	}
	return &Profile{
		samples:     samples,
		genes:       genes,
		sampleIndex: sampleIndex,
		geneIndex:   geneIndex,
		data:        mat.NewDense(len(samples), len(genes), nil),
	}, nil
}

// newProfileFromDense wraps an existing matrix whose dimensions already match
// the labels. Callers guarantee label uniqueness.
func newProfileFromDense(samples, genes []string, data *mat.Dense) *Profile {
	sampleIndex := make(map[string]int, len(samples))
	for i, s := range samples {
		sampleIndex[s] = i
	}
	geneIndex := make(map[string]int, len(genes))
	for j, g := range genes {
		geneIndex[g] = j
	}
	return &Profile{
		samples:     samples,
		genes:       genes,
		sampleIndex: sampleIndex,
		geneIndex:   geneIndex,
		data:        data,
	}
}

func indexLabels(axis string, labels []string) (map[string]int, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("multinbs: profile needs at least one %s", axis)
	}
	index := make(map[string]int, len(labels))
	for i, label := range labels {
		if label == "" {
			return nil, fmt.Errorf("multinbs: empty %s label at position %d", axis, i)
		}
		if prev, ok := index[label]; ok {
			return nil, fmt.Errorf("multinbs: duplicate %s label %q (positions %d and %d)", axis, label, prev, i)
		}
		index[label] = i
	}
	return index, nil
}

// NumSamples returns the number of rows.
func (p *Profile) NumSamples() int { return len(p.samples) }

// NumGenes returns the number of columns.
func (p *Profile) NumGenes() int { return len(p.genes) }

// Samples returns a copy of the row labels in matrix order.
func (p *Profile) Samples() []string {
	out := make([]string, len(p.samples))
	copy(out, p.samples)
	return out
}

// Genes returns a copy of the column labels in matrix order.
func (p *Profile) Genes() []string {
	out := make([]string, len(p.genes))
	copy(out, p.genes)
	return out
}

// SampleIndex returns the row index of the named sample.
func (p *Profile) SampleIndex(sample string) (int, bool) {
	i, ok := p.sampleIndex[sample]
	return i, ok
}

// GeneIndex returns the column index of the named gene.
func (p *Profile) GeneIndex(gene string) (int, bool) {
	j, ok := p.geneIndex[gene]
	return j, ok
}

// At returns the value at row i, column j.
func (p *Profile) At(i, j int) float64 { return p.data.At(i, j) }

// Set stores v at row i, column j.
func (p *Profile) Set(i, j int, v float64) { p.data.Set(i, j, v) }

// Value returns the measurement for the named sample and gene, or false if
// either label is absent.
func (p *Profile) Value(sample, gene string) (float64, bool) {
	i, ok := p.sampleIndex[sample]
	if !ok {
		return 0, false
	}
	j, ok := p.geneIndex[gene]
	if !ok {
		return 0, false
	}
	return p.data.At(i, j), true
}

// Values returns the backing matrix. The matrix is shared with the profile:
// mutating it mutates the profile.
func (p *Profile) Values() *mat.Dense { return p.data }

// Clone returns a deep copy.
func (p *Profile) Clone() *Profile {
	samples := make([]string, len(p.samples))
	copy(samples, p.samples)
	genes := make([]string, len(p.genes))
	copy(genes, p.genes)
	data := mat.DenseCopyOf(p.data)
	return newProfileFromDense(samples, genes, data)
}

// RowSum returns the sum of row i.
func (p *Profile) RowSum(i int) float64 {
	var sum float64
	for j := 0; j < len(p.genes); j++ {
		sum += p.data.At(i, j)
	}
	return sum
}

// HasNaN reports whether any entry is NaN.
func (p *Profile) HasNaN() bool {
	r, c := p.data.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if math.IsNaN(p.data.At(i, j)) {
				return true
			}
		}
	}
	return false
}

// FillNaN replaces every NaN entry with v, in place.
func (p *Profile) FillNaN(v float64) {
	r, c := p.data.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if math.IsNaN(p.data.At(i, j)) {
				p.data.Set(i, j, v)
			}
		}
	}
}

// Subset returns a new profile restricted to the given row and column
// indices, in the given order. Indices must be in range and free of
// duplicates.
func (p *Profile) Subset(sampleIdx, geneIdx []int) (*Profile, error) {
	samples := make([]string, len(sampleIdx))
	for k, i := range sampleIdx {
		if i < 0 || i >= len(p.samples) {
			return nil, fmt.Errorf("multinbs: sample index %d out of range [0,%d)", i, len(p.samples))
		}
		samples[k] = p.samples[i]
	}
	genes := make([]string, len(geneIdx))
	for k, j := range geneIdx {
		if j < 0 || j >= len(p.genes) {
			return nil, fmt.Errorf("multinbs: gene index %d out of range [0,%d)", j, len(p.genes))
		}
		genes[k] = p.genes[j]
	}
	sub, err := NewProfile(samples, genes)
	if err != nil {
		return nil, err
	}
	for k, i := range sampleIdx {
		for l, j := range geneIdx {
			sub.data.Set(k, l, p.data.At(i, j))
		}
	}
	return sub, nil
}

// ReindexGenes returns a new profile whose columns follow the given gene
// order. Genes absent from p are filled with zeros; genes of p absent from
// the new order are dropped. The given slice is owned by the result.
func (p *Profile) ReindexGenes(genes []string) (*Profile, error) {
	out, err := NewProfile(p.Samples(), genes)
	if err != nil {
		return nil, err
	}
	for j, gene := range genes {
		src, ok := p.geneIndex[gene]
		if !ok {
			continue
		}
		for i := range p.samples {
			out.data.Set(i, j, p.data.At(i, src))
		}
	}
	return out, nil
}

// equalLabels reports whether two label slices match element-wise.
func equalLabels(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
