package multinbs

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// NormalizeAdjacency degree-normalizes an adjacency matrix for propagation.
// With symmetric=false each row is divided by its degree, making the matrix
// row-stochastic so propagation conserves each sample's total signal. With
// symmetric=true the entry (i,j) is divided by sqrt(deg_i*deg_j) instead.
// Rows that sum to zero (isolated genes) are an error.
func NormalizeAdjacency(adj *mat.Dense, symmetric bool) (*mat.Dense, error) {
	r, c := adj.Dims()
	if r != c {
		return nil, fmt.Errorf("multinbs: adjacency matrix must be square, got %dx%d", r, c)
	}
	deg := make([]float64, r)
	for i := 0; i < r; i++ {
		var sum float64
		for j := 0; j < c; j++ {
			sum += adj.At(i, j)
		}
		if sum == 0 {
			return nil, fmt.Errorf("multinbs: adjacency row %d sums to zero (isolated gene)", i)
		}
		deg[i] = sum
	}
	w := mat.NewDense(r, c, nil)
	if symmetric {
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				if v := adj.At(i, j); v != 0 {
					w.Set(i, j, v/math.Sqrt(deg[i]*deg[j]))
				}
			}
		}
	} else {
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				if v := adj.At(i, j); v != 0 {
					w.Set(i, j, v/deg[i])
				}
			}
		}
	}
	return w, nil
}

// propagationSystem builds I - alpha*W for one connected component.
func propagationSystem(net *Network, genes []string, alpha float64, symmetric bool) (*mat.Dense, error) {
	adj, err := net.AdjacencyMatrix(genes)
	if err != nil {
		return nil, err
	}
	w, err := NormalizeAdjacency(adj, symmetric)
	if err != nil {
		return nil, err
	}
	n := len(genes)
	m := mat.NewDense(n, n, nil)
	m.Scale(-alpha, w)
	for i := 0; i < n; i++ {
		m.Set(i, i, m.At(i, i)+1)
	}
	return m, nil
}

// gatherColumns copies the profile columns for the given genes into an
// s-by-len(genes) matrix, filling zeros for genes the profile lacks.
// It reports how many of the genes were present.
func gatherColumns(p *Profile, genes []string) (*mat.Dense, int) {
	out := mat.NewDense(p.NumSamples(), len(genes), nil)
	found := 0
	for j, g := range genes {
		src, ok := p.geneIndex[g]
		if !ok {
			continue
		}
		found++
		for i := 0; i < p.NumSamples(); i++ {
			out.Set(i, j, p.data.At(i, src))
		}
	}
	return out, found
}

func checkAlpha(alpha float64) error {
	if alpha < 0 || alpha >= 1 {
		return fmt.Errorf("multinbs: propagation alpha must be in [0,1), got %g", alpha)
	}
	return nil
}

// Propagate smooths a profile over the network by random walk with restart,
// using the closed form
//
//	F = (1-alpha) * F0 * (I - alpha*W)^-1
//
// solved independently on every connected component. F0 is the profile
// restricted to the component's genes, with zeros for genes the profile does
// not cover. The result spans all network genes in network order; profile
// genes absent from the network are dropped. With the default row-stochastic
// normalization every sample's total signal is conserved.
func Propagate(net *Network, p *Profile, alpha float64, symmetric bool) (*Profile, error) {
	if err := checkAlpha(alpha); err != nil {
		return nil, err
	}
	genes := net.Genes()
	shared := 0
	for _, g := range genes {
		if _, ok := p.geneIndex[g]; ok {
			shared++
		}
	}
	if shared == 0 {
		return nil, fmt.Errorf("multinbs: propagate: %w", ErrNoOverlap)
	}

	out, err := NewProfile(p.Samples(), genes)
	if err != nil {
		return nil, err
	}
	for _, comp := range net.ConnectedComponents() {
		m, err := propagationSystem(net, comp, alpha, symmetric)
		if err != nil {
			return nil, err
		}
		f0, found := gatherColumns(p, comp)
		if found == 0 {
			// Nothing to spread in this component; its columns stay zero.
			continue
		}
		var rhs mat.Dense
		rhs.Scale(1-alpha, f0.T())
		var ft mat.Dense
		if err := ft.Solve(m.T(), &rhs); err != nil {
			if _, ok := err.(mat.Condition); !ok {
				return nil, fmt.Errorf("multinbs: propagate component of %d genes: %w", len(comp), ErrSingular)
			}
		}
		for j, g := range comp {
			dst, _ := out.GeneIndex(g)
			for i := 0; i < p.NumSamples(); i++ {
				out.data.Set(i, dst, ft.At(j, i))
			}
		}
	}
	return out, nil
}

// Kernel is a precomputed propagation operator. Building one factors the
// network once so that many profiles (consensus rounds, permutation nulls)
// can be smoothed by plain matrix multiplication.
type Kernel struct {
	genes  []string
	index  map[string]int
	comps  [][]string
	blocks []*mat.Dense
	alpha  float64
}

// NewKernel precomputes (1-alpha)*(I - alpha*W)^-1 per connected component.
func NewKernel(net *Network, alpha float64, symmetric bool) (*Kernel, error) {
	if err := checkAlpha(alpha); err != nil {
		return nil, err
	}
	if net.NumGenes() == 0 {
		return nil, fmt.Errorf("multinbs: kernel of an empty network")
	}
	genes := net.Genes()
	index := make(map[string]int, len(genes))
	for i, g := range genes {
		index[g] = i
	}
	k := &Kernel{genes: genes, index: index, alpha: alpha}
	for _, comp := range net.ConnectedComponents() {
		m, err := propagationSystem(net, comp, alpha, symmetric)
		if err != nil {
			return nil, err
		}
		var block mat.Dense
		if err := block.Inverse(m); err != nil {
			if _, ok := err.(mat.Condition); !ok {
				return nil, fmt.Errorf("multinbs: kernel component of %d genes: %w", len(comp), ErrSingular)
			}
		}
		block.Scale(1-alpha, &block)
		k.comps = append(k.comps, comp)
		k.blocks = append(k.blocks, &block)
	}
	return k, nil
}

// Genes returns the kernel's gene order (the network's insertion order).
func (k *Kernel) Genes() []string {
	out := make([]string, len(k.genes))
	copy(out, k.genes)
	return out
}

// Alpha returns the restart probability the kernel was built with.
func (k *Kernel) Alpha() float64 { return k.alpha }

// Propagate smooths a profile with the precomputed operator. The result has
// the kernel's gene order; profile genes outside the network are dropped and
// network genes missing from the profile contribute zero signal.
func (k *Kernel) Propagate(p *Profile) (*Profile, error) {
	shared := 0
	for _, g := range k.genes {
		if _, ok := p.geneIndex[g]; ok {
			shared++
		}
	}
	if shared == 0 {
		return nil, fmt.Errorf("multinbs: kernel propagate: %w", ErrNoOverlap)
	}
	out, err := NewProfile(p.Samples(), k.Genes())
	if err != nil {
		return nil, err
	}
	for ci, comp := range k.comps {
		f0, found := gatherColumns(p, comp)
		if found == 0 {
			continue
		}
		var prod mat.Dense
		prod.Mul(f0, k.blocks[ci])
		for j, g := range comp {
			dst := k.index[g]
			for i := 0; i < p.NumSamples(); i++ {
				out.data.Set(i, dst, prod.At(i, j))
			}
		}
	}
	return out, nil
}
