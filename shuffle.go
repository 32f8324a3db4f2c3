package multinbs

import (
	"math/rand/v2"
)

// DegreeShuffle returns a copy of the network rewired by double edge swaps,
// preserving every gene's degree. It attempts as many successful swaps as
// there are edges, giving up after ten times that many tries, so a heavily
// constrained network may be only partially rewired. The number of swaps
// performed is returned alongside the shuffled network.
func DegreeShuffle(net *Network, rng *rand.Rand) (*Network, int) {
	nEdges := len(net.edges)
	if nEdges < 2 {
		return net.clone(), 0
	}

	edges := make([][2]int64, nEdges)
	copy(edges, net.edges)
	adj := make(map[int64]map[int64]bool, len(net.names))
	addAdj := func(a, b int64) {
		if adj[a] == nil {
			adj[a] = make(map[int64]bool)
		}
		adj[a][b] = true
	}
	for _, e := range edges {
		addAdj(e[0], e[1])
		addAdj(e[1], e[0])
	}

	target := nEdges
	maxTries := 10 * nEdges
	swaps := 0
	for tries := 0; tries < maxTries && swaps < target; tries++ {
		// Two random edges with random orientations: (u,v) and (x,y)
		// become (u,x) and (v,y).
		ei := rng.IntN(nEdges)
		ej := rng.IntN(nEdges)
		u, v := edges[ei][0], edges[ei][1]
		if rng.IntN(2) == 1 {
			u, v = v, u
		}
		x, y := edges[ej][0], edges[ej][1]
		if rng.IntN(2) == 1 {
			x, y = y, x
		}
		if u == x || v == y {
			continue
		}
		if adj[u][x] || adj[v][y] {
			continue
		}
		delete(adj[u], v)
		delete(adj[v], u)
		delete(adj[x], y)
		delete(adj[y], x)
		addAdj(u, x)
		addAdj(x, u)
		addAdj(v, y)
		addAdj(y, v)
		edges[ei] = orderPair(u, x)
		edges[ej] = orderPair(v, y)
		swaps++
	}

	out := NewNetwork()
	for _, name := range net.names {
		out.addGene(name)
	}
	for _, e := range edges {
		out.AddInteraction(net.names[e[0]], net.names[e[1]])
	}
	return out, swaps
}

func orderPair(a, b int64) [2]int64 {
	if a < b {
		return [2]int64{a, b}
	}
	return [2]int64{b, a}
}

// LabelShuffle returns a copy of the network with gene names permuted across
// nodes. The topology is unchanged, so the degree sequence survives, but
// which gene sits on which node is randomized.
func LabelShuffle(net *Network, rng *rand.Rand) *Network {
	perm := make([]string, len(net.names))
	copy(perm, net.names)
	rng.Shuffle(len(perm), func(i, j int) {
		perm[i], perm[j] = perm[j], perm[i]
	})

	out := NewNetwork()
	for _, name := range perm {
		out.addGene(name)
	}
	for _, e := range net.edges {
		out.AddInteraction(perm[e[0]], perm[e[1]])
	}
	return out
}
