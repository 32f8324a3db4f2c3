package multinbs

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/mat"
)

// geneNode is a graph node labeled with a gene name. DOTID makes Graphviz
// export emit gene names instead of numeric IDs.
type geneNode struct {
	id   int64
	name string
}

func (n geneNode) ID() int64     { return n.id }
func (n geneNode) DOTID() string { return n.name }

// Network is an undirected, unweighted gene interaction network. Node IDs
// are assigned densely in insertion order, and the edge list preserves
// insertion order so that exports and shuffles are deterministic.
type Network struct {
	g     *simple.UndirectedGraph
	ids   map[string]int64
	names []string
	edges [][2]int64
}

// NewNetwork returns an empty interaction network.
func NewNetwork() *Network {
	return &Network{
		g:   simple.NewUndirectedGraph(),
		ids: make(map[string]int64),
	}
}

func (n *Network) addGene(name string) int64 {
	if id, ok := n.ids[name]; ok {
		return id
	}
	id := int64(len(n.names))
	n.ids[name] = id
	n.names = append(n.names, name)
	n.g.AddNode(geneNode{id: id, name: name})
	return id
}

// AddInteraction records an undirected interaction between two genes, adding
// the genes to the network if needed. Self-interactions and duplicate edges
// are ignored.
func (n *Network) AddInteraction(a, b string) {
	if a == b {
		return
	}
	ai := n.addGene(a)
	bi := n.addGene(b)
	if n.g.HasEdgeBetween(ai, bi) {
		return
	}
	n.g.SetEdge(simple.Edge{F: geneNode{id: ai, name: a}, T: geneNode{id: bi, name: b}})
	if ai < bi {
		n.edges = append(n.edges, [2]int64{ai, bi})
	} else {
		n.edges = append(n.edges, [2]int64{bi, ai})
	}
}

// NumGenes returns the number of genes in the network.
func (n *Network) NumGenes() int { return len(n.names) }

// NumInteractions returns the number of undirected edges.
func (n *Network) NumInteractions() int { return len(n.edges) }

// Genes returns a copy of the gene names in insertion order.
func (n *Network) Genes() []string {
	out := make([]string, len(n.names))
	copy(out, n.names)
	return out
}

// HasGene reports whether the named gene is in the network.
func (n *Network) HasGene(name string) bool {
	_, ok := n.ids[name]
	return ok
}

// HasInteraction reports whether an edge exists between two genes.
func (n *Network) HasInteraction(a, b string) bool {
	ai, ok := n.ids[a]
	if !ok {
		return false
	}
	bi, ok := n.ids[b]
	if !ok {
		return false
	}
	return n.g.HasEdgeBetween(ai, bi)
}

// Degree returns the number of interaction partners of the named gene, or 0
// if the gene is not in the network.
func (n *Network) Degree(name string) int {
	id, ok := n.ids[name]
	if !ok {
		return 0
	}
	return n.g.From(id).Len()
}

// Interactions returns the edge list as gene-name pairs in insertion order.
func (n *Network) Interactions() [][2]string {
	out := make([][2]string, len(n.edges))
	for i, e := range n.edges {
		out[i] = [2]string{n.names[e[0]], n.names[e[1]]}
	}
	return out
}

// Neighbors returns the interaction partners of the named gene, sorted by
// insertion order.
func (n *Network) Neighbors(name string) []string {
	id, ok := n.ids[name]
	if !ok {
		return nil
	}
	it := n.g.From(id)
	nbIDs := make([]int64, 0, it.Len())
	for it.Next() {
		nbIDs = append(nbIDs, it.Node().ID())
	}
	sort.Slice(nbIDs, func(i, j int) bool { return nbIDs[i] < nbIDs[j] })
	out := make([]string, len(nbIDs))
	for i, id := range nbIDs {
		out[i] = n.names[id]
	}
	return out
}

// ConnectedComponents returns the connected components of the network. Genes
// within a component are ordered by insertion, and components are ordered by
// their earliest gene.
func (n *Network) ConnectedComponents() [][]string {
	comps := topo.ConnectedComponents(n.g)
	out := make([][]string, 0, len(comps))
	for _, comp := range comps {
		ids := make([]int64, len(comp))
		for i, node := range comp {
			ids[i] = node.ID()
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		genes := make([]string, len(ids))
		for i, id := range ids {
			genes[i] = n.names[id]
		}
		out = append(out, genes)
	}
	sort.Slice(out, func(i, j int) bool { return n.ids[out[i][0]] < n.ids[out[j][0]] })
	return out
}

// AdjacencyMatrix returns the symmetric 0/1 adjacency matrix over the given
// gene order. A nil slice means all genes in insertion order. Unknown genes
// are an error.
func (n *Network) AdjacencyMatrix(genes []string) (*mat.Dense, error) {
	if genes == nil {
		genes = n.names
	}
	pos := make(map[int64]int, len(genes))
	for i, g := range genes {
		id, ok := n.ids[g]
		if !ok {
			return nil, fmt.Errorf("multinbs: gene %q is not in the network", g)
		}
		pos[id] = i
	}
	adj := mat.NewDense(len(genes), len(genes), nil)
	for _, e := range n.edges {
		i, iok := pos[e[0]]
		j, jok := pos[e[1]]
		if !iok || !jok {
			continue
		}
		adj.Set(i, j, 1)
		adj.Set(j, i, 1)
	}
	return adj, nil
}

// DOT renders the network in Graphviz DOT format with gene names as node IDs.
func (n *Network) DOT(name string) ([]byte, error) {
	b, err := dot.Marshal(n.g, name, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("multinbs: render network as DOT: %w", err)
	}
	return b, nil
}

// clone returns a deep copy sharing no state with n.
func (n *Network) clone() *Network {
	out := NewNetwork()
	for _, name := range n.names {
		out.addGene(name)
	}
	for _, e := range n.edges {
		out.AddInteraction(n.names[e[0]], n.names[e[1]])
	}
	return out
}

var _ graph.Node = geneNode{}
