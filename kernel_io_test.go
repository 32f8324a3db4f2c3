package multinbs

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

func TestKernelTSV_RoundTrip(t *testing.T) {
	net := buildTestNetwork([][2]string{{"g1", "g2"}, {"g2", "g3"}, {"g4", "g5"}})
	k, err := NewKernel(net, 0.6, false)
	if err != nil {
		t.Fatalf("NewKernel: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteKernelTSV(&buf, k); err != nil {
		t.Fatalf("WriteKernelTSV: %v", err)
	}
	restored, err := ReadKernelTSV(&buf)
	if err != nil {
		t.Fatalf("ReadKernelTSV: %v", err)
	}

	if restored.Alpha() != 0.6 {
		t.Errorf("Alpha = %v, want 0.6", restored.Alpha())
	}
	if !equalLabels(restored.Genes(), k.Genes()) {
		t.Errorf("Genes = %v, want %v", restored.Genes(), k.Genes())
	}

	// The restored single-block kernel must smooth profiles exactly like
	// the per-component original.
	p := mustProfile(t, []string{"s1", "s2"}, []string{"g1", "g3", "g4"}, []float64{
		1, 0, 1,
		0, 1, 0,
	})
	want, err := k.Propagate(p)
	if err != nil {
		t.Fatalf("Propagate: %v", err)
	}
	got, err := restored.Propagate(p)
	if err != nil {
		t.Fatalf("restored Propagate: %v", err)
	}
	for i := 0; i < want.NumSamples(); i++ {
		for j := 0; j < want.NumGenes(); j++ {
			if math.Abs(got.At(i, j)-want.At(i, j)) > 1e-12 {
				t.Fatalf("restored kernel differs at (%d,%d): %v vs %v", i, j, got.At(i, j), want.At(i, j))
			}
		}
	}
}

func TestReadKernelTSV_Errors(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"empty input", ""},
		{"bad alpha", "# alpha=high\n\tg1\ng1\t1\n"},
		{"header without genes", "no-tabs-here\n"},
		{"short row", "\tg1\tg2\ng1\t1\ng2\t0\t1\n"},
		{"mislabeled row", "\tg1\tg2\ng1\t1\t0\ngX\t0\t1\n"},
		{"missing rows", "\tg1\tg2\ng1\t1\t0\n"},
		{"extra rows", "\tg1\ng1\t1\ng2\t0\n"},
		{"non-numeric value", "\tg1\ng1\tabc\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ReadKernelTSV(strings.NewReader(tc.input)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
