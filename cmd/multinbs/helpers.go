package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// writeAssignmentsTSV writes sample-to-subtype assignments as a two-column
// table with a header row.
func writeAssignmentsTSV(path string, samples []string, labels []int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	bw := bufio.NewWriter(f)
	fmt.Fprintln(bw, "sample\tcluster")
	for i, s := range samples {
		fmt.Fprintf(bw, "%s\t%d\n", s, labels[i])
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// readAssignmentsTSV reads a file written by writeAssignmentsTSV. A header
// row is recognized by its non-numeric second column and skipped.
func readAssignmentsTSV(path string) ([]string, []int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var samples []string
	var labels []int
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			return nil, nil, fmt.Errorf("%s line %d: expected sample and cluster columns", path, lineNo)
		}
		cluster, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil {
			if lineNo == 1 {
				continue
			}
			return nil, nil, fmt.Errorf("%s line %d: bad cluster %q", path, lineNo, fields[1])
		}
		samples = append(samples, fields[0])
		labels = append(labels, cluster)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(samples) == 0 {
		return nil, nil, fmt.Errorf("%s holds no assignments", path)
	}
	return samples, labels, nil
}

// writeConsensusTSV writes the sample-labeled consensus matrix.
func writeConsensusTSV(path string, samples []string, m *mat.Dense) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	bw := bufio.NewWriter(f)
	for _, s := range samples {
		fmt.Fprintf(bw, "\t%s", s)
	}
	fmt.Fprintln(bw)
	for i, s := range samples {
		bw.WriteString(s)
		for j := range samples {
			fmt.Fprintf(bw, "\t%s", strconv.FormatFloat(m.At(i, j), 'g', -1, 64))
		}
		fmt.Fprintln(bw)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// clusterSizes tallies cohort size per subtype, ordered by subtype number.
func clusterSizes(labels []int) ([]int, map[int]int) {
	counts := make(map[int]int)
	for _, l := range labels {
		counts[l]++
	}
	order := make([]int, 0, len(counts))
	for c := range counts {
		order = append(order, c)
	}
	sort.Ints(order)
	return order, counts
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
