package multinbs

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// MutationFormat selects the on-disk layout of binary mutation data.
type MutationFormat string

const (
	// MutationList is a two-column file: sample, then one mutated gene in
	// that sample per line.
	MutationList MutationFormat = "list"
	// MutationMatrix is a full samples-by-genes table with row and column
	// headers and 0/1 entries.
	MutationMatrix MutationFormat = "matrix"
)

// ReadBinaryMutations parses binary somatic mutation data in the given
// format. An empty delimiter means tab.
//
// For MutationList input, samples and genes come out sorted
// lexicographically. For MutationMatrix input, file order is kept and
// fractional entries are truncated toward zero.
func ReadBinaryMutations(r io.Reader, format MutationFormat, delim string) (*Profile, error) {
	switch format {
	case MutationList:
		return readMutationList(r, delim)
	case MutationMatrix:
		return readMatrix(r, delim, true)
	default:
		return nil, fmt.Errorf("multinbs: mutation format must be %q or %q, got %q", MutationList, MutationMatrix, format)
	}
}

// LoadBinaryMutations reads binary mutation data from a file.
// See [ReadBinaryMutations].
func LoadBinaryMutations(path string, format MutationFormat, delim string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("multinbs: open mutation file: %w", err)
	}
	defer f.Close()
	p, err := ReadBinaryMutations(f, format, delim)
	if err != nil {
		return nil, fmt.Errorf("multinbs: %s: %w", path, err)
	}
	return p, nil
}

func readMutationList(r io.Reader, delim string) (*Profile, error) {
	calls := make(map[string]map[string]bool)
	geneSet := make(map[string]bool)

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
			return nil, fmt.Errorf("multinbs: mutation list line %d: want 2 fields, got %d", lineNo, len(fields))
		}
		sample := strings.TrimSpace(fields[0])
		gene := strings.TrimSpace(fields[1])
		if sample == "" || gene == "" {
			return nil, fmt.Errorf("multinbs: mutation list line %d: empty sample or gene", lineNo)
		}
		if calls[sample] == nil {
			calls[sample] = make(map[string]bool)
		}
		calls[sample][gene] = true
		geneSet[gene] = true
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("multinbs: read mutation list: %w", err)
	}
	if len(calls) == 0 {
		return nil, fmt.Errorf("multinbs: mutation list contains no calls")
	}

	samples := make([]string, 0, len(calls))
	for s := range calls {
		samples = append(samples, s)
	}
	sort.Strings(samples)
	genes := make([]string, 0, len(geneSet))
	for g := range geneSet {
		genes = append(genes, g)
	}
	sort.Strings(genes)

	p, err := NewProfile(samples, genes)
	if err != nil {
		return nil, err
	}
	for i, s := range samples {
		for g := range calls[s] {
			j, _ := p.GeneIndex(g)
			p.Set(i, j, 1)
		}
	}
	return p, nil
}

func readMatrix(r io.Reader, delim string, truncate bool) (*Profile, error) {
	sc := lineScanner(r)

	var genes []string
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if skippableLine(line) {
			continue
		}
		fields := splitFields(line, delim)
		if len(fields) < 2 {
			return nil, fmt.Errorf("multinbs: matrix header line %d: want at least 2 fields, got %d", lineNo, len(fields))
		}
		// First header cell names the sample index and is ignored.
		genes = make([]string, len(fields)-1)
		for j, g := range fields[1:] {
			genes[j] = strings.TrimSpace(g)
		}
		break
	}
	if genes == nil {
		return nil, fmt.Errorf("multinbs: matrix is empty")
	}

	var samples []string
	var values []float64
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if skippableLine(line) {
			continue
		}
		fields := splitFields(line, delim)
		if len(fields) != len(genes)+1 {
			return nil, fmt.Errorf("multinbs: matrix line %d: want %d fields, got %d", lineNo, len(genes)+1, len(fields))
		}
		samples = append(samples, strings.TrimSpace(fields[0]))
		for _, cell := range fields[1:] {
			cell = strings.TrimSpace(cell)
			if cell == "" || strings.EqualFold(cell, "na") || strings.EqualFold(cell, "nan") {
				values = append(values, math.NaN())
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("multinbs: matrix line %d: parse %q: %w", lineNo, cell, err)
			}
			if truncate {
				v = math.Trunc(v)
			}
			values = append(values, v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("multinbs: read matrix: %w", err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("multinbs: matrix has no sample rows")
	}

	if _, err := indexLabels("sample", samples); err != nil {
		return nil, err
	}
	if _, err := indexLabels("gene", genes); err != nil {
		return nil, err
	}
	return newProfileFromDense(samples, genes, mat.NewDense(len(samples), len(genes), values)), nil
}

// ReadProfile parses a continuous samples-by-genes table (for example TPM
// expression values) with row and column headers. Empty, "NA" and "NaN"
// cells parse as NaN; resolve them with [Profile.FillNaN] before combining.
// An empty delimiter means tab.
func ReadProfile(r io.Reader, delim string) (*Profile, error) {
	return readMatrix(r, delim, false)
}

// LoadProfile reads a continuous profile from a file. See [ReadProfile].
func LoadProfile(path, delim string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("multinbs: open profile file: %w", err)
	}
	defer f.Close()
	p, err := ReadProfile(f, delim)
	if err != nil {
		return nil, fmt.Errorf("multinbs: %s: %w", path, err)
	}
	return p, nil
}

// WriteProfileTSV writes the profile as a tab-separated table with sample
// rows and gene columns. The top-left header cell is left empty.
func WriteProfileTSV(w io.Writer, p *Profile) error {
	bw := bufio.NewWriter(w)
	for _, g := range p.genes {
		if _, err := fmt.Fprintf(bw, "\t%s", g); err != nil {
			return fmt.Errorf("multinbs: write profile: %w", err)
		}
	}
	if _, err := fmt.Fprintln(bw); err != nil {
		return fmt.Errorf("multinbs: write profile: %w", err)
	}
	for i, s := range p.samples {
		if _, err := bw.WriteString(s); err != nil {
			return fmt.Errorf("multinbs: write profile: %w", err)
		}
		for j := range p.genes {
			if _, err := fmt.Fprintf(bw, "\t%s", strconv.FormatFloat(p.At(i, j), 'g', -1, 64)); err != nil {
				return fmt.Errorf("multinbs: write profile: %w", err)
			}
		}
		if _, err := fmt.Fprintln(bw); err != nil {
			return fmt.Errorf("multinbs: write profile: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("multinbs: write profile: %w", err)
	}
	return nil
}

// WriteMutationList writes the nonzero cells of a binary profile as a
// two-column tab-separated list, one (sample, gene) call per line in row
// order.
func WriteMutationList(w io.Writer, p *Profile) error {
	bw := bufio.NewWriter(w)
	for i, s := range p.samples {
		for j, g := range p.genes {
			if p.At(i, j) == 0 {
				continue
			}
			if _, err := fmt.Fprintf(bw, "%s\t%s\n", s, g); err != nil {
				return fmt.Errorf("multinbs: write mutation list: %w", err)
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("multinbs: write mutation list: %w", err)
	}
	return nil
}
