package multinbs

import (
	"testing"
)

func TestNetworkLaplacian_PathGraph(t *testing.T) {
	// Path A-B-C: degrees 1, 2, 1.
	net := buildTestNetwork([][2]string{{"A", "B"}, {"B", "C"}})
	lap, err := NetworkLaplacian(net, nil)
	if err != nil {
		t.Fatalf("NetworkLaplacian: %v", err)
	}
	want := []float64{
		1, -1, 0,
		-1, 2, -1,
		0, -1, 1,
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if !almostEqual(lap.At(i, j), want[i*3+j], floatTol) {
				t.Errorf("lap[%d,%d] = %v, want %v", i, j, lap.At(i, j), want[i*3+j])
			}
		}
	}
}

func TestNetworkLaplacian_SubsetOrder(t *testing.T) {
	// Degrees come from the restricted adjacency, not the full network.
	net := buildTestNetwork([][2]string{{"A", "B"}, {"B", "C"}})
	lap, err := NetworkLaplacian(net, []string{"C", "B"})
	if err != nil {
		t.Fatalf("NetworkLaplacian: %v", err)
	}
	if lap.SymmetricDim() != 2 {
		t.Fatalf("dim = %d, want 2", lap.SymmetricDim())
	}
	want := []float64{
		1, -1,
		-1, 1,
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if !almostEqual(lap.At(i, j), want[i*2+j], floatTol) {
				t.Errorf("lap[%d,%d] = %v, want %v", i, j, lap.At(i, j), want[i*2+j])
			}
		}
	}
}

func TestNetworkLaplacian_UnknownGene(t *testing.T) {
	net := buildTestNetwork([][2]string{{"A", "B"}})
	if _, err := NetworkLaplacian(net, []string{"A", "Z"}); err == nil {
		t.Error("expected error for gene outside the network")
	}
}

func TestInfluence_SingleEdgeHandComputed(t *testing.T) {
	// L + I = [[2,-1],[-1,2]], inverse = (1/3)*[[2,1],[1,2]].
	net := buildTestNetwork([][2]string{{"A", "B"}})
	inf, err := Influence(net, 1)
	if err != nil {
		t.Fatalf("Influence: %v", err)
	}
	want := []float64{
		2.0 / 3.0, 1.0 / 3.0,
		1.0 / 3.0, 2.0 / 3.0,
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if !almostEqual(inf.At(i, j), want[i*2+j], 1e-9) {
				t.Errorf("inf[%d,%d] = %v, want %v", i, j, inf.At(i, j), want[i*2+j])
			}
		}
	}
}

func TestInfluence_DisconnectedComponentsDoNotReach(t *testing.T) {
	net := buildTestNetwork([][2]string{{"A", "B"}, {"C", "D"}})
	inf, err := Influence(net, 0.1)
	if err != nil {
		t.Fatalf("Influence: %v", err)
	}
	// Gene order is A, B, C, D; cross-component influence is zero.
	for _, ij := range [][2]int{{0, 2}, {0, 3}, {1, 2}, {1, 3}} {
		if v := inf.At(ij[0], ij[1]); !almostEqual(v, 0, 1e-12) {
			t.Errorf("inf[%d,%d] = %v, want 0", ij[0], ij[1], v)
		}
	}
	// Within a component influence is strictly positive.
	if inf.At(0, 1) <= 0 {
		t.Errorf("inf[0,1] = %v, want > 0", inf.At(0, 1))
	}
}

func TestInfluence_InvalidGamma(t *testing.T) {
	net := buildTestNetwork([][2]string{{"A", "B"}})
	for _, gamma := range []float64{0, -0.5} {
		if _, err := Influence(net, gamma); err == nil {
			t.Errorf("expected error for gamma %v", gamma)
		}
	}
}

func TestKNNNetwork_PairsUpComponents(t *testing.T) {
	// With two disconnected pairs and k=1, each gene's nearest neighbor is
	// its partner, so the kNN network is exactly the two original edges.
	net := buildTestNetwork([][2]string{{"A", "B"}, {"C", "D"}})
	knn, err := KNNNetwork(net, 0.1, 1)
	if err != nil {
		t.Fatalf("KNNNetwork: %v", err)
	}
	if knn.NumInteractions() != 2 {
		t.Fatalf("NumInteractions = %d, want 2", knn.NumInteractions())
	}
	if !knn.HasInteraction("A", "B") || !knn.HasInteraction("C", "D") {
		t.Error("expected edges A-B and C-D")
	}
	if !equalLabels(knn.Genes(), net.Genes()) {
		t.Errorf("gene order = %v, want %v", knn.Genes(), net.Genes())
	}
}

func TestKNNNetwork_StarUnion(t *testing.T) {
	// In a star every leaf's nearest neighbor is the hub, so the union of
	// directed picks restores all spokes whatever the hub itself picks.
	net := buildTestNetwork([][2]string{{"A", "B"}, {"A", "C"}, {"A", "D"}})
	knn, err := KNNNetwork(net, 0.01, 1)
	if err != nil {
		t.Fatalf("KNNNetwork: %v", err)
	}
	for _, leaf := range []string{"B", "C", "D"} {
		if !knn.HasInteraction("A", leaf) {
			t.Errorf("missing spoke A-%s", leaf)
		}
	}
	if knn.NumInteractions() != 3 {
		t.Errorf("NumInteractions = %d, want 3", knn.NumInteractions())
	}
}

func TestKNNNetwork_InvalidK(t *testing.T) {
	net := buildTestNetwork([][2]string{{"A", "B"}, {"C", "D"}})
	for _, k := range []int{0, -1, 4, 5} {
		if _, err := KNNNetwork(net, 0.1, k); err == nil {
			t.Errorf("expected error for k=%d on a 4-gene network", k)
		}
	}
}

func TestKNNNetwork_PropagatesGammaError(t *testing.T) {
	net := buildTestNetwork([][2]string{{"A", "B"}, {"C", "D"}})
	if _, err := KNNNetwork(net, 0, 1); err == nil {
		t.Error("expected error for gamma 0")
	}
}
