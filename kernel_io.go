package multinbs

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// WriteKernelTSV writes the kernel as a gene-labeled tab-separated matrix,
// preceded by a comment line recording the restart probability. Entries
// between different connected components are zero, so the written matrix is
// block diagonal up to gene ordering.
func WriteKernelTSV(w io.Writer, k *Kernel) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "# alpha=%s\n", strconv.FormatFloat(k.alpha, 'g', -1, 64)); err != nil {
		return fmt.Errorf("multinbs: write kernel: %w", err)
	}
	for _, g := range k.genes {
		if _, err := fmt.Fprintf(bw, "\t%s", g); err != nil {
			return fmt.Errorf("multinbs: write kernel: %w", err)
		}
	}
	if _, err := fmt.Fprintln(bw); err != nil {
		return fmt.Errorf("multinbs: write kernel: %w", err)
	}

	full := mat.NewDense(len(k.genes), len(k.genes), nil)
	for ci, comp := range k.comps {
		block := k.blocks[ci]
		for i, gi := range comp {
			row := k.index[gi]
			for j, gj := range comp {
				full.Set(row, k.index[gj], block.At(i, j))
			}
		}
	}
	for i, g := range k.genes {
		if _, err := bw.WriteString(g); err != nil {
			return fmt.Errorf("multinbs: write kernel: %w", err)
		}
		for j := range k.genes {
			if _, err := fmt.Fprintf(bw, "\t%s", strconv.FormatFloat(full.At(i, j), 'g', -1, 64)); err != nil {
				return fmt.Errorf("multinbs: write kernel: %w", err)
			}
		}
		if _, err := fmt.Fprintln(bw); err != nil {
			return fmt.Errorf("multinbs: write kernel: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("multinbs: write kernel: %w", err)
	}
	return nil
}

// SaveKernelTSV writes the kernel to a file. See [WriteKernelTSV].
func SaveKernelTSV(path string, k *Kernel) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("multinbs: create kernel file: %w", err)
	}
	if err := WriteKernelTSV(f, k); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadKernelTSV restores a kernel written by [WriteKernelTSV]. The restored
// kernel holds one dense block over all genes; zeros between components make
// this equivalent to the original block structure under [Kernel.Propagate].
func ReadKernelTSV(r io.Reader) (*Kernel, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1<<20), 1<<26)

	alpha := 0.0
	var genes []string
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "#") {
			if v, ok := strings.CutPrefix(strings.TrimSpace(line), "# alpha="); ok {
				a, err := strconv.ParseFloat(v, 64)
				if err != nil {
					return nil, fmt.Errorf("multinbs: read kernel: bad alpha %q", v)
				}
				alpha = a
			}
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			return nil, fmt.Errorf("multinbs: read kernel: header names no genes")
		}
		genes = fields[1:]
		break
	}
	if genes == nil {
		return nil, fmt.Errorf("multinbs: read kernel: empty input")
	}

	n := len(genes)
	block := mat.NewDense(n, n, nil)
	index := make(map[string]int, n)
	row := 0
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		if row >= n {
			return nil, fmt.Errorf("multinbs: read kernel: more rows than genes")
		}
		fields := strings.Split(line, "\t")
		if len(fields) != n+1 {
			return nil, fmt.Errorf("multinbs: read kernel: row %q has %d values, want %d", fields[0], len(fields)-1, n)
		}
		if fields[0] != genes[row] {
			return nil, fmt.Errorf("multinbs: read kernel: row %d labeled %q, want %q", row, fields[0], genes[row])
		}
		index[fields[0]] = row
		for j, field := range fields[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("multinbs: read kernel: row %q column %s: %w", fields[0], genes[j], err)
			}
			block.Set(row, j, v)
		}
		row++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("multinbs: read kernel: %w", err)
	}
	if row != n {
		return nil, fmt.Errorf("multinbs: read kernel: %d rows for %d genes", row, n)
	}

	genesCopy := make([]string, n)
	copy(genesCopy, genes)
	return &Kernel{
		genes:  genesCopy,
		index:  index,
		comps:  [][]string{genesCopy},
		blocks: []*mat.Dense{block},
		alpha:  alpha,
	}, nil
}

// LoadKernelTSV reads a kernel from a file. See [ReadKernelTSV].
func LoadKernelTSV(path string) (*Kernel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("multinbs: open kernel file: %w", err)
	}
	defer f.Close()
	k, err := ReadKernelTSV(f)
	if err != nil {
		return nil, fmt.Errorf("multinbs: %s: %w", path, err)
	}
	return k, nil
}
