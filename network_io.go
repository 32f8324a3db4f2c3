package multinbs

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// maxLineBytes bounds a single input line. Expression matrices for large
// cohorts produce lines well past bufio's default token size.
const maxLineBytes = 1 << 26

func lineScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return sc
}

func splitFields(line, delim string) []string {
	if delim == "" {
		delim = "\t"
	}
	return strings.Split(strings.TrimRight(line, "\r"), delim)
}

func skippableLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed == "" || strings.HasPrefix(trimmed, "#")
}

// ReadNetwork parses an edge-list into a Network. Each non-comment line
// names one interaction; only the first two fields are used, any further
// columns are ignored. An empty delimiter means tab. Lines that are blank or
// start with '#' are skipped.
func ReadNetwork(r io.Reader, delim string) (*Network, error) {
	net := NewNetwork()
	sc := lineScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if skippableLine(line) {
			continue
		}
		fields := splitFields(line, delim)
		if len(fields) < 2 {
			return nil, fmt.Errorf("multinbs: edge list line %d: want at least 2 fields, got %d", lineNo, len(fields))
		}
		a := strings.TrimSpace(fields[0])
		b := strings.TrimSpace(fields[1])
		if a == "" || b == "" {
			return nil, fmt.Errorf("multinbs: edge list line %d: empty gene name", lineNo)
		}
		net.AddInteraction(a, b)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("multinbs: read edge list: %w", err)
	}
	if net.NumInteractions() == 0 {
		return nil, fmt.Errorf("multinbs: edge list contains no interactions")
	}
	return net, nil
}

// LoadNetwork reads an edge-list file. See [ReadNetwork].
func LoadNetwork(path, delim string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("multinbs: open network file: %w", err)
	}
	defer f.Close()
	net, err := ReadNetwork(f, delim)
	if err != nil {
		return nil, fmt.Errorf("multinbs: %s: %w", path, err)
	}
	return net, nil
}

// WriteEdgeList writes the network as a two-column tab-separated edge list,
// one interaction per line in insertion order.
func WriteEdgeList(w io.Writer, net *Network) error {
	bw := bufio.NewWriter(w)
	for _, e := range net.Interactions() {
		if _, err := fmt.Fprintf(bw, "%s\t%s\n", e[0], e[1]); err != nil {
			return fmt.Errorf("multinbs: write edge list: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("multinbs: write edge list: %w", err)
	}
	return nil
}

// EdgeFilterOptions controls [FilterWeightedEdges]. Column indices are
// zero-based positions in the input rows.
type EdgeFilterOptions struct {
	// Delimiter separates input columns. Empty means tab.
	Delimiter string
	// NodeACol and NodeBCol locate the interacting genes.
	NodeACol int
	NodeBCol int
	// ScoreCol locates the edge confidence score.
	ScoreCol int
	// Quantile is the score quantile an edge must exceed to be kept,
	// in [0, 1).
	Quantile float64
}

// DefaultEdgeFilterOptions returns the conventional three-column layout with
// a 0.9 score quantile.
func DefaultEdgeFilterOptions() EdgeFilterOptions {
	return EdgeFilterOptions{
		NodeACol: 0,
		NodeBCol: 1,
		ScoreCol: 2,
		Quantile: 0.9,
	}
}

// EdgeFilterStats summarizes one FilterWeightedEdges pass.
type EdgeFilterStats struct {
	// Threshold is the score value at the requested quantile.
	Threshold float64
	// Kept and Total count edges after and before filtering.
	Kept  int
	Total int
}

type weightedEdge struct {
	a, b  string
	score float64
}

// FilterWeightedEdges reads a weighted edge list from r, keeps the edges
// whose score is strictly greater than the requested score quantile, and
// writes them to w as tab-separated (geneA, geneB, score) rows. Blank lines
// and '#' comments in the input are skipped.
func FilterWeightedEdges(r io.Reader, w io.Writer, opts EdgeFilterOptions) (EdgeFilterStats, error) {
	var stats EdgeFilterStats
	if opts.Quantile < 0 || opts.Quantile >= 1 {
		return stats, fmt.Errorf("multinbs: edge filter quantile must be in [0,1), got %g", opts.Quantile)
	}
	minFields := max(opts.NodeACol, opts.NodeBCol, opts.ScoreCol) + 1

	var edges []weightedEdge
	sc := lineScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if skippableLine(line) {
			continue
		}
		fields := splitFields(line, opts.Delimiter)
		if len(fields) < minFields {
			return stats, fmt.Errorf("multinbs: weighted edge list line %d: want at least %d fields, got %d", lineNo, minFields, len(fields))
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(fields[opts.ScoreCol]), 64)
		if err != nil {
			return stats, fmt.Errorf("multinbs: weighted edge list line %d: parse score %q: %w", lineNo, fields[opts.ScoreCol], err)
		}
		edges = append(edges, weightedEdge{
			a:     strings.TrimSpace(fields[opts.NodeACol]),
			b:     strings.TrimSpace(fields[opts.NodeBCol]),
			score: score,
		})
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("multinbs: read weighted edge list: %w", err)
	}
	if len(edges) == 0 {
		return stats, fmt.Errorf("multinbs: weighted edge list contains no edges")
	}

	scores := make([]float64, len(edges))
	for i, e := range edges {
		scores[i] = e.score
	}
	sort.Float64s(scores)
	stats.Threshold = quantileLinear(scores, opts.Quantile)
	stats.Total = len(edges)

	bw := bufio.NewWriter(w)
	for _, e := range edges {
		if e.score <= stats.Threshold {
			continue
		}
		if _, err := fmt.Fprintf(bw, "%s\t%s\t%s\n", e.a, e.b, strconv.FormatFloat(e.score, 'g', -1, 64)); err != nil {
			return stats, fmt.Errorf("multinbs: write filtered edge list: %w", err)
		}
		stats.Kept++
	}
	if err := bw.Flush(); err != nil {
		return stats, fmt.Errorf("multinbs: write filtered edge list: %w", err)
	}
	return stats, nil
}

// quantileLinear returns the q-th quantile of sorted values, interpolating
// linearly between order statistics (the convention spreadsheet and dataframe
// tooling use, so thresholds match upstream preprocessing).
func quantileLinear(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	h := q * float64(n-1)
	lo := int(h)
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
