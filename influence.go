package multinbs

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// NetworkLaplacian returns the combinatorial graph Laplacian D - A over the
// given gene order. A nil slice means all genes in network order.
func NetworkLaplacian(net *Network, genes []string) (*mat.SymDense, error) {
	if genes == nil {
		genes = net.Genes()
	}
	adj, err := net.AdjacencyMatrix(genes)
	if err != nil {
		return nil, err
	}
	n := len(genes)
	lap := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		var deg float64
		for j := 0; j < n; j++ {
			deg += adj.At(i, j)
		}
		lap.SetSym(i, i, deg)
		for j := i + 1; j < n; j++ {
			if adj.At(i, j) != 0 {
				lap.SetSym(i, j, -adj.At(i, j))
			}
		}
	}
	return lap, nil
}

// Influence measures how strongly each gene's signal reaches every other
// gene through the network, as the inverse of the regularized Laplacian
//
//	(L + gamma*I)^-1
//
// over all network genes in network order. gamma > 0 keeps the system
// positive definite, so the inverse always exists.
func Influence(net *Network, gamma float64) (*mat.SymDense, error) {
	if gamma <= 0 {
		return nil, fmt.Errorf("multinbs: influence gamma must be > 0, got %g", gamma)
	}
	lap, err := NetworkLaplacian(net, nil)
	if err != nil {
		return nil, err
	}
	n := lap.SymmetricDim()
	for i := 0; i < n; i++ {
		lap.SetSym(i, i, lap.At(i, i)+gamma)
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(lap); !ok {
		return nil, fmt.Errorf("multinbs: influence: %w", ErrSingular)
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, fmt.Errorf("multinbs: influence: %w", ErrSingular)
	}
	return &inv, nil
}

// KNNNetwork builds the k-nearest-neighbor similarity network used to
// regularize factorization: each gene is linked to the k genes that
// influence it most (self excluded, ties broken by network order), and the
// union of those directed picks is kept as an undirected network over the
// same genes.
func KNNNetwork(net *Network, gamma float64, k int) (*Network, error) {
	genes := net.Genes()
	if k < 1 || k >= len(genes) {
		return nil, fmt.Errorf("multinbs: k nearest neighbors must be in [1,%d), got %d", len(genes), k)
	}
	inf, err := Influence(net, gamma)
	if err != nil {
		return nil, err
	}

	knn := NewNetwork()
	for _, g := range genes {
		knn.addGene(g)
	}
	idx := make([]int, len(genes))
	for i := range genes {
		for j := range idx {
			idx[j] = j
		}
		sort.SliceStable(idx, func(a, b int) bool {
			return inf.At(i, idx[a]) > inf.At(i, idx[b])
		})
		taken := 0
		for _, j := range idx {
			if j == i {
				continue
			}
			knn.AddInteraction(genes[i], genes[j])
			taken++
			if taken == k {
				break
			}
		}
	}
	return knn, nil
}
