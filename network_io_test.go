package multinbs

import (
	"fmt"
	"strings"
	"testing"
)

func TestReadNetwork_TabSeparated(t *testing.T) {
	input := "# interactome v1\n" +
		"TP53\tMDM2\n" +
		"\n" +
		"TP53\tATM\textra_column_ignored\n"
	net, err := ReadNetwork(strings.NewReader(input), "")
	if err != nil {
		t.Fatalf("ReadNetwork: %v", err)
	}
	if net.NumGenes() != 3 {
		t.Errorf("NumGenes = %d, want 3", net.NumGenes())
	}
	if net.NumInteractions() != 2 {
		t.Errorf("NumInteractions = %d, want 2", net.NumInteractions())
	}
	if !net.HasInteraction("TP53", "ATM") {
		t.Error("TP53-ATM should be present")
	}
}

func TestReadNetwork_CustomDelimiter(t *testing.T) {
	net, err := ReadNetwork(strings.NewReader("A,B\nB,C\n"), ",")
	if err != nil {
		t.Fatalf("ReadNetwork: %v", err)
	}
	if net.NumInteractions() != 2 {
		t.Errorf("NumInteractions = %d, want 2", net.NumInteractions())
	}
}

func TestReadNetwork_WindowsLineEndings(t *testing.T) {
	net, err := ReadNetwork(strings.NewReader("A\tB\r\nB\tC\r\n"), "")
	if err != nil {
		t.Fatalf("ReadNetwork: %v", err)
	}
	if net.HasGene("B\r") || net.HasGene("C\r") {
		t.Error("carriage returns should be stripped from gene names")
	}
	if !net.HasInteraction("B", "C") {
		t.Error("B-C should be present")
	}
}

func TestReadNetwork_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"single field", "TP53\n"},
		{"empty gene", "TP53\t\n"},
		{"no interactions", "# only a comment\n"},
		{"empty input", ""},
	}
	for _, tt := range tests {
		if _, err := ReadNetwork(strings.NewReader(tt.input), ""); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestWriteEdgeList_RoundTrip(t *testing.T) {
	net := buildTestNetwork([][2]string{
		{"A", "B"},
		{"B", "C"},
		{"C", "A"},
	})
	var buf strings.Builder
	if err := WriteEdgeList(&buf, net); err != nil {
		t.Fatalf("WriteEdgeList: %v", err)
	}
	back, err := ReadNetwork(strings.NewReader(buf.String()), "")
	if err != nil {
		t.Fatalf("ReadNetwork: %v", err)
	}
	if back.NumInteractions() != net.NumInteractions() {
		t.Errorf("round trip lost interactions: %d != %d", back.NumInteractions(), net.NumInteractions())
	}
	for _, e := range net.Interactions() {
		if !back.HasInteraction(e[0], e[1]) {
			t.Errorf("round trip lost %v", e)
		}
	}
}

func TestFilterWeightedEdges_HandComputed(t *testing.T) {
	// Scores 1..10. The 0.9 quantile by linear interpolation is
	// 9 + 0.1*(10-9) = 9.1, so only the score-10 edge survives.
	var in strings.Builder
	for i := 1; i <= 10; i++ {
		fmt.Fprintf(&in, "g%d\th%d\t%d\n", i, i, i)
	}
	var out strings.Builder
	stats, err := FilterWeightedEdges(strings.NewReader(in.String()), &out, DefaultEdgeFilterOptions())
	if err != nil {
		t.Fatalf("FilterWeightedEdges: %v", err)
	}
	if !almostEqual(stats.Threshold, 9.1, 1e-10) {
		t.Errorf("Threshold = %v, want 9.1", stats.Threshold)
	}
	if stats.Total != 10 {
		t.Errorf("Total = %d, want 10", stats.Total)
	}
	if stats.Kept != 1 {
		t.Errorf("Kept = %d, want 1", stats.Kept)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 output line, got %d: %q", len(lines), out.String())
	}
	if lines[0] != "g10\th10\t10" {
		t.Errorf("surviving edge = %q, want \"g10\\th10\\t10\"", lines[0])
	}
}

func TestFilterWeightedEdges_ZeroQuantileDropsMinimumTies(t *testing.T) {
	// Threshold at q=0 is the minimum score; the strict > comparison drops
	// every edge tied with it.
	input := "a\tb\t1.0\nc\td\t1.0\ne\tf\t2.0\n"
	var out strings.Builder
	stats, err := FilterWeightedEdges(strings.NewReader(input), &out, EdgeFilterOptions{
		NodeACol: 0, NodeBCol: 1, ScoreCol: 2, Quantile: 0,
	})
	if err != nil {
		t.Fatalf("FilterWeightedEdges: %v", err)
	}
	if stats.Threshold != 1.0 {
		t.Errorf("Threshold = %v, want 1.0", stats.Threshold)
	}
	if stats.Kept != 1 {
		t.Errorf("Kept = %d, want 1", stats.Kept)
	}
}

func TestFilterWeightedEdges_ColumnSelection(t *testing.T) {
	// Score lives in column 0, genes in columns 2 and 3.
	input := "0.5\tx\tA\tB\n0.9\tx\tC\tD\n"
	var out strings.Builder
	stats, err := FilterWeightedEdges(strings.NewReader(input), &out, EdgeFilterOptions{
		NodeACol: 2, NodeBCol: 3, ScoreCol: 0, Quantile: 0.5,
	})
	if err != nil {
		t.Fatalf("FilterWeightedEdges: %v", err)
	}
	// Median of {0.5, 0.9} is 0.7; only the C-D edge exceeds it.
	if !almostEqual(stats.Threshold, 0.7, 1e-10) {
		t.Errorf("Threshold = %v, want 0.7", stats.Threshold)
	}
	if !strings.HasPrefix(out.String(), "C\tD\t") {
		t.Errorf("output should start with the surviving C-D edge: %q", out.String())
	}
}

func TestFilterWeightedEdges_Errors(t *testing.T) {
	opts := DefaultEdgeFilterOptions()
	var out strings.Builder

	opts.Quantile = 1.0
	if _, err := FilterWeightedEdges(strings.NewReader("a\tb\t1\n"), &out, opts); err == nil {
		t.Error("expected error for quantile 1.0")
	}

	opts = DefaultEdgeFilterOptions()
	if _, err := FilterWeightedEdges(strings.NewReader("a\tb\n"), &out, opts); err == nil {
		t.Error("expected error for missing score column")
	}
	if _, err := FilterWeightedEdges(strings.NewReader("a\tb\tnot_a_number\n"), &out, opts); err == nil {
		t.Error("expected error for unparsable score")
	}
	if _, err := FilterWeightedEdges(strings.NewReader("# empty\n"), &out, opts); err == nil {
		t.Error("expected error for empty edge list")
	}
}

func TestQuantileLinear(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	tests := []struct {
		q    float64
		want float64
	}{
		{0, 1},
		{0.5, 2.5},
		{0.25, 1.75},
	}
	for _, tt := range tests {
		if got := quantileLinear(sorted, tt.q); !almostEqual(got, tt.want, 1e-10) {
			t.Errorf("quantileLinear(q=%v) = %v, want %v", tt.q, got, tt.want)
		}
	}
	if got := quantileLinear([]float64{7}, 0.9); got != 7 {
		t.Errorf("single value quantile = %v, want 7", got)
	}
}
