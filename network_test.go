package multinbs

import (
	"strings"
	"testing"
)

func buildTestNetwork(edges [][2]string) *Network {
	net := NewNetwork()
	for _, e := range edges {
		net.AddInteraction(e[0], e[1])
	}
	return net
}

func TestNetwork_AddInteraction(t *testing.T) {
	net := buildTestNetwork([][2]string{
		{"TP53", "MDM2"},
		{"TP53", "ATM"},
	})

	if net.NumGenes() != 3 {
		t.Errorf("NumGenes = %d, want 3", net.NumGenes())
	}
	if net.NumInteractions() != 2 {
		t.Errorf("NumInteractions = %d, want 2", net.NumInteractions())
	}
	if !net.HasGene("MDM2") {
		t.Error("MDM2 should be present")
	}
	if !net.HasInteraction("TP53", "MDM2") || !net.HasInteraction("MDM2", "TP53") {
		t.Error("interaction should be undirected")
	}
	if net.HasInteraction("MDM2", "ATM") {
		t.Error("MDM2-ATM should not exist")
	}
}

func TestNetwork_IgnoresSelfLoopsAndDuplicates(t *testing.T) {
	net := NewNetwork()
	net.AddInteraction("A", "A")
	net.AddInteraction("A", "B")
	net.AddInteraction("A", "B")
	net.AddInteraction("B", "A")

	if net.NumInteractions() != 1 {
		t.Errorf("NumInteractions = %d, want 1", net.NumInteractions())
	}
	if net.NumGenes() != 2 {
		t.Errorf("NumGenes = %d, want 2", net.NumGenes())
	}
}

func TestNetwork_GenesInsertionOrder(t *testing.T) {
	net := buildTestNetwork([][2]string{
		{"C", "A"},
		{"B", "A"},
	})
	want := []string{"C", "A", "B"}
	got := net.Genes()
	if len(got) != len(want) {
		t.Fatalf("Genes length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Genes[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNetwork_Degree(t *testing.T) {
	net := buildTestNetwork([][2]string{
		{"HUB", "A"},
		{"HUB", "B"},
		{"HUB", "C"},
	})
	if d := net.Degree("HUB"); d != 3 {
		t.Errorf("Degree(HUB) = %d, want 3", d)
	}
	if d := net.Degree("A"); d != 1 {
		t.Errorf("Degree(A) = %d, want 1", d)
	}
	if d := net.Degree("missing"); d != 0 {
		t.Errorf("Degree(missing) = %d, want 0", d)
	}
}

func TestNetwork_NeighborsSorted(t *testing.T) {
	net := buildTestNetwork([][2]string{
		{"X", "C"},
		{"X", "A"},
		{"X", "B"},
	})
	// Neighbors come back in insertion order: C, A, B.
	want := []string{"C", "A", "B"}
	got := net.Neighbors("X")
	if len(got) != 3 {
		t.Fatalf("Neighbors length = %d, want 3", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Neighbors[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if net.Neighbors("missing") != nil {
		t.Error("Neighbors of unknown gene should be nil")
	}
}

func TestNetwork_InteractionsInsertionOrder(t *testing.T) {
	net := buildTestNetwork([][2]string{
		{"B", "A"},
		{"C", "A"},
	})
	got := net.Interactions()
	if len(got) != 2 {
		t.Fatalf("Interactions length = %d, want 2", len(got))
	}
	// Pairs are canonicalized with the earlier-inserted gene first.
	if got[0] != [2]string{"B", "A"} {
		t.Errorf("Interactions[0] = %v, want [B A]", got[0])
	}
	if got[1] != [2]string{"C", "A"} {
		t.Errorf("Interactions[1] = %v, want [C A]", got[1])
	}
}

func TestNetwork_ConnectedComponents(t *testing.T) {
	net := buildTestNetwork([][2]string{
		{"A", "B"},
		{"C", "D"},
		{"B", "E"},
	})
	comps := net.ConnectedComponents()
	if len(comps) != 2 {
		t.Fatalf("expected 2 components, got %d", len(comps))
	}
	// First component contains the first-inserted gene.
	first := comps[0]
	if len(first) != 3 || first[0] != "A" || first[1] != "B" || first[2] != "E" {
		t.Errorf("first component = %v, want [A B E]", first)
	}
	second := comps[1]
	if len(second) != 2 || second[0] != "C" || second[1] != "D" {
		t.Errorf("second component = %v, want [C D]", second)
	}
}

func TestNetwork_AdjacencyMatrix(t *testing.T) {
	net := buildTestNetwork([][2]string{
		{"A", "B"},
		{"B", "C"},
	})
	adj, err := net.AdjacencyMatrix(nil)
	if err != nil {
		t.Fatalf("AdjacencyMatrix: %v", err)
	}
	// Order A, B, C: path graph.
	want := []float64{
		0, 1, 0,
		1, 0, 1,
		0, 1, 0,
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if adj.At(i, j) != want[i*3+j] {
				t.Errorf("adj[%d,%d] = %v, want %v", i, j, adj.At(i, j), want[i*3+j])
			}
		}
	}
}

func TestNetwork_AdjacencyMatrixCustomOrder(t *testing.T) {
	net := buildTestNetwork([][2]string{
		{"A", "B"},
		{"B", "C"},
	})
	adj, err := net.AdjacencyMatrix([]string{"C", "B"})
	if err != nil {
		t.Fatalf("AdjacencyMatrix: %v", err)
	}
	r, c := adj.Dims()
	if r != 2 || c != 2 {
		t.Fatalf("dims = %dx%d, want 2x2", r, c)
	}
	if adj.At(0, 1) != 1 || adj.At(1, 0) != 1 {
		t.Error("C-B edge should survive reordering")
	}
	if adj.At(0, 0) != 0 || adj.At(1, 1) != 0 {
		t.Error("diagonal should be zero")
	}
}

func TestNetwork_AdjacencyMatrixUnknownGene(t *testing.T) {
	net := buildTestNetwork([][2]string{{"A", "B"}})
	if _, err := net.AdjacencyMatrix([]string{"A", "Z"}); err == nil {
		t.Error("expected error for unknown gene")
	}
}

func TestNetwork_DOT(t *testing.T) {
	net := buildTestNetwork([][2]string{{"TP53", "MDM2"}})
	b, err := net.DOT("interactome")
	if err != nil {
		t.Fatalf("DOT: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "TP53") || !strings.Contains(s, "MDM2") {
		t.Errorf("DOT output should name the genes:\n%s", s)
	}
	if !strings.Contains(s, "interactome") {
		t.Errorf("DOT output should carry the graph name:\n%s", s)
	}
}
