package multinbs

import (
	"fmt"
	"math"
)

// LinkageMethod selects how the distance between merged clusters is updated
// during agglomerative clustering.
type LinkageMethod string

const (
	// LinkageAverage uses the size-weighted mean of member distances (UPGMA).
	LinkageAverage LinkageMethod = "average"
	// LinkageSingle uses the minimum member distance.
	LinkageSingle LinkageMethod = "single"
	// LinkageComplete uses the maximum member distance.
	LinkageComplete LinkageMethod = "complete"
)

// Linkage agglomerates n observations into a dendrogram from a flat n*n
// distance matrix (row-major, symmetric). Each of the n-1 merge rows is
// [left, right, distance, mergedSize]; leaves are 0..n-1 and merged cluster
// IDs start at n and increment, with the smaller ID written first. When
// several pairs tie for the minimum distance, the pair with the lowest slot
// indices merges first.
func Linkage(dist []float64, n int, method LinkageMethod) ([][4]float64, error) {
	switch method {
	case LinkageAverage, LinkageSingle, LinkageComplete:
	default:
		return nil, fmt.Errorf("multinbs: linkage method must be %q, %q or %q, got %q",
			LinkageAverage, LinkageSingle, LinkageComplete, method)
	}
	if n < 1 {
		return nil, fmt.Errorf("multinbs: linkage needs at least one observation, got %d", n)
	}
	if len(dist) != n*n {
		return nil, fmt.Errorf("multinbs: distance matrix length %d does not match n*n = %d (n=%d)", len(dist), n*n, n)
	}
	if n == 1 {
		return nil, nil
	}

	d := make([]float64, len(dist))
	copy(d, dist)
	active := make([]bool, n)
	size := make([]float64, n)
	clusterID := make([]int, n)
	for i := 0; i < n; i++ {
		active[i] = true
		size[i] = 1
		clusterID[i] = i
	}

	result := make([][4]float64, 0, n-1)
	for step := 0; step < n-1; step++ {
		// Closest active pair, scanning slots in order so ties are stable.
		bi, bj := -1, -1
		best := math.Inf(1)
		for i := 0; i < n; i++ {
			if !active[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if !active[j] {
					continue
				}
				if d[i*n+j] < best {
					best = d[i*n+j]
					bi, bj = i, j
				}
			}
		}

		left, right := clusterID[bi], clusterID[bj]
		if left > right {
			left, right = right, left
		}
		merged := size[bi] + size[bj]
		result = append(result, [4]float64{float64(left), float64(right), best, merged})

		// Fold cluster bj into slot bi and refresh its distances.
		for k := 0; k < n; k++ {
			if !active[k] || k == bi || k == bj {
				continue
			}
			dik := d[bi*n+k]
			djk := d[bj*n+k]
			var nd float64
			switch method {
			case LinkageSingle:
				nd = math.Min(dik, djk)
			case LinkageComplete:
				nd = math.Max(dik, djk)
			default:
				nd = (size[bi]*dik + size[bj]*djk) / merged
			}
			d[bi*n+k] = nd
			d[k*n+bi] = nd
		}
		size[bi] = merged
		clusterID[bi] = n + step
		active[bj] = false
	}
	return result, nil
}

// CutTree flattens a dendrogram into exactly k clusters by replaying the
// first n-k merges. Labels run 1..k, numbered by each cluster's earliest
// observation.
func CutTree(dendrogram [][4]float64, n, k int) ([]int, error) {
	if k < 1 || k > n {
		return nil, fmt.Errorf("multinbs: cut of %d observations into %d clusters", n, k)
	}
	if len(dendrogram) < n-k {
		return nil, fmt.Errorf("multinbs: dendrogram has %d merges, need %d to reach %d clusters", len(dendrogram), n-k, k)
	}

	uf := NewUnionFind(n)
	for step := 0; step < n-k; step++ {
		row := dendrogram[step]
		aa := uf.Find(int(row[0]))
		bb := uf.Find(int(row[1]))
		uf.Merge(aa, bb)
	}

	labels := make([]int, n)
	byRoot := make(map[int]int, k)
	next := 1
	for i := 0; i < n; i++ {
		root := uf.Find(i)
		label, ok := byRoot[root]
		if !ok {
			label = next
			byRoot[root] = label
			next++
		}
		labels[i] = label
	}
	return labels, nil
}
