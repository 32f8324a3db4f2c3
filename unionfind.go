package multinbs

// UnionFind tracks cluster membership while a dendrogram is built or
// replayed. It holds 2*n - 1 elements so merged clusters can be addressed by
// their dendrogram IDs (observations 0..n-1, merges n..2n-2).
type UnionFind struct {
	parent []int
	size   []int
	// nextLabel is the dendrogram ID the next merge creates, starting at n.
	nextLabel int
}

// NewUnionFind creates a UnionFind over n observations with storage for the
// n-1 merged clusters a full dendrogram can introduce.
func NewUnionFind(n int) *UnionFind {
	total := 2*n - 1
	if total < 1 {
		total = 1
	}
	parent := make([]int, total)
	size := make([]int, total)
	for i := range parent {
		parent[i] = -1 // -1 means "is a root"
	}
	for i := 0; i < n; i++ {
		size[i] = 1
	}
	return &UnionFind{
		parent:    parent,
		size:      size,
		nextLabel: n,
	}
}

// Find returns the current cluster ID containing x, with path compression.
func (uf *UnionFind) Find(x int) int {
	// Walk to the root.
	root := x
	for uf.parent[root] != -1 {
		root = uf.parent[root]
	}
	// Path compression: point all nodes along the path directly to root.
	for uf.parent[x] != -1 {
		x, uf.parent[x] = uf.parent[x], root
	}
	return root
}

// Merge joins the clusters rooted at a and b under a fresh dendrogram ID and
// returns that ID. Both arguments must be current roots.
func (uf *UnionFind) Merge(a, b int) int {
	label := uf.nextLabel
	uf.size[label] = uf.size[a] + uf.size[b]
	uf.parent[a] = label
	uf.parent[b] = label
	uf.nextLabel++
	return label
}

// Size returns the number of observations inside the cluster with the given
// dendrogram ID.
func (uf *UnionFind) Size(id int) int { return uf.size[id] }
