package multinbs

import "testing"

func TestNewUnionFind(t *testing.T) {
	uf := NewUnionFind(5)

	// Each observation should be its own root.
	for i := 0; i < 5; i++ {
		if root := uf.Find(i); root != i {
			t.Errorf("Find(%d) = %d, want %d", i, root, i)
		}
	}

	// Each observation has size 1.
	for i := 0; i < 5; i++ {
		if uf.Size(i) != 1 {
			t.Errorf("Size(%d) = %d, want 1", i, uf.Size(i))
		}
	}
}

func TestUnionFind_MergeTwoObservations(t *testing.T) {
	uf := NewUnionFind(5)
	label := uf.Merge(1, 3)

	// The first merge over 5 observations creates dendrogram ID 5.
	if label != 5 {
		t.Errorf("Merge(1,3) = %d, want 5", label)
	}
	// Both should resolve to the new cluster.
	if uf.Find(1) != label || uf.Find(3) != label {
		t.Errorf("after Merge(1,3), Find(1)=%d Find(3)=%d, want %d", uf.Find(1), uf.Find(3), label)
	}
	// Size of the new cluster should be 2.
	if uf.Size(label) != 2 {
		t.Errorf("Size(%d) = %d, want 2", label, uf.Size(label))
	}
}

func TestUnionFind_SequentialLabels(t *testing.T) {
	uf := NewUnionFind(4)

	// Merges assign dendrogram IDs 4, 5, 6 in order.
	//
	// Merge(0,1) → 4 (size 2)
	// Merge(2,3) → 5 (size 2)
	// Merge(4,5) → 6 (size 4)
	l1 := uf.Merge(0, 1)
	l2 := uf.Merge(2, 3)
	l3 := uf.Merge(l1, l2)

	if l1 != 4 || l2 != 5 || l3 != 6 {
		t.Errorf("labels = %d,%d,%d, want 4,5,6", l1, l2, l3)
	}
	if uf.Size(l3) != 4 {
		t.Errorf("Size(%d) = %d, want 4", l3, uf.Size(l3))
	}

	// All observations resolve to the final cluster.
	for i := 0; i < 4; i++ {
		if uf.Find(i) != l3 {
			t.Errorf("Find(%d) = %d, want %d", i, uf.Find(i), l3)
		}
	}
}

func TestUnionFind_PathCompression(t *testing.T) {
	uf := NewUnionFind(4)

	// Build a chain of merges so observation 0 sits three hops from the
	// final root: 0 → 4 → 5 → 6.
	l1 := uf.Merge(0, 1)
	l2 := uf.Merge(l1, 2)
	root := uf.Merge(l2, 3)

	// Find(0) should compress the path.
	if got := uf.Find(0); got != root {
		t.Fatalf("Find(0) = %d, want %d", got, root)
	}
	if uf.parent[0] != root {
		t.Errorf("after Find(0), parent[0] = %d, want root %d", uf.parent[0], root)
	}
}

func TestUnionFind_SingleObservation(t *testing.T) {
	uf := NewUnionFind(1)
	if root := uf.Find(0); root != 0 {
		t.Errorf("Find(0) = %d, want 0", root)
	}
	if uf.Size(0) != 1 {
		t.Errorf("Size(0) = %d, want 1", uf.Size(0))
	}
}
