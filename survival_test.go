package multinbs

import (
	"math"
	"strings"
	"testing"
)

func TestReadClinical_Basic(t *testing.T) {
	in := "sample\tvital_status\toverall_survival\n" +
		"p1\t1\t450\n" +
		"p2\t0\t1200\n" +
		"p3\tdead\t90.5\n"
	recs, err := ReadClinical(strings.NewReader(in), "")
	if err != nil {
		t.Fatalf("ReadClinical: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}
	want := []ClinicalRecord{
		{Sample: "p1", Time: 450, Event: true},
		{Sample: "p2", Time: 1200, Event: false},
		{Sample: "p3", Time: 90.5, Event: true},
	}
	for i, w := range want {
		if recs[i] != w {
			t.Errorf("record %d = %+v, want %+v", i, recs[i], w)
		}
	}
}

func TestReadClinical_ColumnAliasesAndCase(t *testing.T) {
	// Column matching ignores case; extra columns are ignored.
	in := "ID,Age,STATUS,Days\n" +
		"p1,61,alive,300\n" +
		"p2,47,Deceased,80\n"
	recs, err := ReadClinical(strings.NewReader(in), ",")
	if err != nil {
		t.Fatalf("ReadClinical: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].Event || recs[0].Time != 300 {
		t.Errorf("p1 = %+v, want censored at 300", recs[0])
	}
	if !recs[1].Event || recs[1].Time != 80 {
		t.Errorf("p2 = %+v, want event at 80", recs[1])
	}
}

func TestReadClinical_Errors(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"empty input", ""},
		{"header only", "sample\tstatus\ttime\n"},
		{"missing event column", "sample\ttime\np1\t10\n"},
		{"missing time column", "sample\tstatus\np1\t1\n"},
		{"bad event value", "sample\tstatus\ttime\np1\tmaybe\t10\n"},
		{"bad time value", "sample\tstatus\ttime\np1\t1\tsoon\n"},
		{"negative time", "sample\tstatus\ttime\np1\t1\t-5\n"},
		{"duplicate sample", "sample\tstatus\ttime\np1\t1\t10\np1\t0\t20\n"},
		{"empty sample ID", "sample\tstatus\ttime\n\t1\t10\n"},
		{"short row", "sample\tstatus\ttime\np1\t1\n"},
	}
	for _, tc := range cases {
		if _, err := ReadClinical(strings.NewReader(tc.in), ""); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestKaplanMeier_HandComputed(t *testing.T) {
	// times 1..5, deaths at 1, 3, 4; censored at 2 and 5.
	//
	//	t=1: S = 1 - 1/5           = 0.8
	//	t=3: S = 0.8 * (1 - 1/3)   = 8/15
	//	t=4: S = 8/15 * (1 - 1/2)  = 4/15
	curve := KaplanMeier(
		[]float64{1, 2, 3, 4, 5},
		[]bool{true, false, true, true, false},
	)
	if len(curve) != 3 {
		t.Fatalf("got %d curve points, want 3", len(curve))
	}
	want := []KMPoint{
		{Time: 1, Survival: 0.8, AtRisk: 5, Events: 1},
		{Time: 3, Survival: 8.0 / 15.0, AtRisk: 3, Events: 1},
		{Time: 4, Survival: 4.0 / 15.0, AtRisk: 2, Events: 1},
	}
	for i, w := range want {
		got := curve[i]
		if got.Time != w.Time || got.AtRisk != w.AtRisk || got.Events != w.Events {
			t.Errorf("point %d = %+v, want %+v", i, got, w)
		}
		if !almostEqual(got.Survival, w.Survival, floatTol) {
			t.Errorf("point %d survival = %v, want %v", i, got.Survival, w.Survival)
		}
	}
}

func TestKaplanMeier_TiedDeaths(t *testing.T) {
	// Two deaths share t=2: one multiplicative step 1 - 2/3.
	curve := KaplanMeier([]float64{2, 2, 3}, []bool{true, true, true})
	if len(curve) != 2 {
		t.Fatalf("got %d curve points, want 2", len(curve))
	}
	if !almostEqual(curve[0].Survival, 1.0/3.0, floatTol) || curve[0].Events != 2 {
		t.Errorf("first point = %+v, want survival 1/3 with 2 events", curve[0])
	}
	if !almostEqual(curve[1].Survival, 0, floatTol) {
		t.Errorf("second point survival = %v, want 0", curve[1].Survival)
	}
}

func TestKaplanMeier_CensoredShareEventTime(t *testing.T) {
	// A censored observation at a death time still counts at risk there.
	curve := KaplanMeier([]float64{1, 1}, []bool{true, false})
	if len(curve) != 1 {
		t.Fatalf("got %d curve points, want 1", len(curve))
	}
	if !almostEqual(curve[0].Survival, 0.5, floatTol) || curve[0].AtRisk != 2 {
		t.Errorf("point = %+v, want survival 0.5 with 2 at risk", curve[0])
	}
}

func TestKaplanMeier_AllCensored(t *testing.T) {
	if curve := KaplanMeier([]float64{1, 2}, []bool{false, false}); len(curve) != 0 {
		t.Errorf("got %d curve points, want none", len(curve))
	}
}

func TestLogRank_TwoGroupsHandComputed(t *testing.T) {
	// Group 1 dies at 1 and 2, group 2 at 3 and 4.
	//
	//	O1 = 2, E1 = 2/4 + 1/3 = 5/6
	//	Var = 1*(2/4)(2/4) + 1*(1/3)(2/3) = 17/36
	//	chi2 = (7/6)^2 / (17/36) = 49/17
	res, err := LogRank(
		[]float64{1, 2, 3, 4},
		[]bool{true, true, true, true},
		[]int{1, 1, 2, 2},
	)
	if err != nil {
		t.Fatalf("LogRank: %v", err)
	}
	if res.DF != 1 {
		t.Errorf("DF = %d, want 1", res.DF)
	}
	if !almostEqual(res.ChiSquare, 49.0/17.0, 1e-9) {
		t.Errorf("ChiSquare = %v, want %v", res.ChiSquare, 49.0/17.0)
	}
	if !almostEqual(res.PValue, 0.0895, 1e-3) {
		t.Errorf("PValue = %v, want about 0.0895", res.PValue)
	}
}

func TestLogRank_IdenticalGroupsScoreZero(t *testing.T) {
	// Perfectly interleaved outcomes carry no separation: each group's
	// observed deaths match its expectation exactly.
	res, err := LogRank(
		[]float64{1, 1, 2, 2},
		[]bool{true, true, true, true},
		[]int{1, 2, 1, 2},
	)
	if err != nil {
		t.Fatalf("LogRank: %v", err)
	}
	if !almostEqual(res.ChiSquare, 0, 1e-9) {
		t.Errorf("ChiSquare = %v, want 0", res.ChiSquare)
	}
	if !almostEqual(res.PValue, 1, 1e-9) {
		t.Errorf("PValue = %v, want 1", res.PValue)
	}
}

func TestLogRank_ThreeGroups(t *testing.T) {
	res, err := LogRank(
		[]float64{1, 2, 5, 6, 9, 10},
		[]bool{true, true, true, true, true, true},
		[]int{0, 0, 1, 1, 2, 2},
	)
	if err != nil {
		t.Fatalf("LogRank: %v", err)
	}
	if res.DF != 2 {
		t.Errorf("DF = %d, want 2", res.DF)
	}
	if res.ChiSquare < 0 {
		t.Errorf("ChiSquare = %v, want >= 0", res.ChiSquare)
	}
	if res.PValue < 0 || res.PValue > 1 {
		t.Errorf("PValue = %v, want in [0,1]", res.PValue)
	}
}

func TestLogRank_Errors(t *testing.T) {
	if _, err := LogRank([]float64{1, 2}, []bool{true, true}, []int{1, 1}); err == nil {
		t.Error("expected error for a single group")
	}
	if _, err := LogRank([]float64{1, 2}, []bool{false, false}, []int{1, 2}); err == nil {
		t.Error("expected error with no observed events")
	}
	if _, err := LogRank([]float64{1, 2}, []bool{true}, []int{1, 2}); err == nil {
		t.Error("expected error for mismatched lengths")
	}
}

func TestClusterSurvival_TwoClusters(t *testing.T) {
	clinical := []ClinicalRecord{
		{Sample: "a", Time: 1, Event: true},
		{Sample: "b", Time: 2, Event: true},
		{Sample: "c", Time: 9, Event: true},
		{Sample: "d", Time: 10, Event: false},
	}
	res, err := ClusterSurvival([]string{"a", "b", "c", "d"}, []int{1, 1, 2, 2}, clinical, -1)
	if err != nil {
		t.Fatalf("ClusterSurvival: %v", err)
	}
	if res.MissingClinical != 0 {
		t.Errorf("MissingClinical = %d, want 0", res.MissingClinical)
	}
	if len(res.Groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(res.Groups))
	}
	g1, g2 := res.Groups[0], res.Groups[1]
	if g1.Cluster != 1 || g1.N != 2 || g1.Events != 2 {
		t.Errorf("group 1 = %+v, want cluster 1 with 2 samples, 2 events", g1)
	}
	if g2.Cluster != 2 || g2.N != 2 || g2.Events != 1 {
		t.Errorf("group 2 = %+v, want cluster 2 with 2 samples, 1 event", g2)
	}
	if res.LogRank == nil {
		t.Fatal("LogRank = nil, want a test result")
	}
	if res.LogRank.DF != 1 {
		t.Errorf("LogRank.DF = %d, want 1", res.LogRank.DF)
	}
}

func TestClusterSurvival_MissingRecordsCounted(t *testing.T) {
	clinical := []ClinicalRecord{
		{Sample: "a", Time: 1, Event: true},
		{Sample: "c", Time: 5, Event: true},
	}
	res, err := ClusterSurvival([]string{"a", "b", "c"}, []int{1, 1, 2}, clinical, -1)
	if err != nil {
		t.Fatalf("ClusterSurvival: %v", err)
	}
	if res.MissingClinical != 1 {
		t.Errorf("MissingClinical = %d, want 1", res.MissingClinical)
	}
	if res.Groups[0].N != 1 {
		t.Errorf("group 1 N = %d, want 1", res.Groups[0].N)
	}
}

func TestClusterSurvival_TruncatesFollowUp(t *testing.T) {
	clinical := []ClinicalRecord{
		{Sample: "a", Time: 3, Event: true},
		{Sample: "b", Time: 10, Event: true},
	}
	res, err := ClusterSurvival([]string{"a", "b"}, []int{1, 2}, clinical, 5)
	if err != nil {
		t.Fatalf("ClusterSurvival: %v", err)
	}
	// b's death at 10 becomes a censoring at 5.
	if res.Groups[1].Events != 0 {
		t.Errorf("group 2 events = %d, want 0 after truncation", res.Groups[1].Events)
	}
	if len(res.Groups[1].Curve) != 0 {
		t.Errorf("group 2 curve has %d points, want 0", len(res.Groups[1].Curve))
	}
	if res.Groups[0].Events != 1 {
		t.Errorf("group 1 events = %d, want 1", res.Groups[0].Events)
	}

	// Non-positive tmax disables truncation; zero must not censor every
	// record at time zero.
	for _, tmax := range []float64{-1, 0} {
		res, err = ClusterSurvival([]string{"a", "b"}, []int{1, 2}, clinical, tmax)
		if err != nil {
			t.Fatalf("ClusterSurvival(tmax=%g): %v", tmax, err)
		}
		if res.Groups[0].Events != 1 {
			t.Errorf("tmax=%g: group 1 events = %d, want 1 without truncation", tmax, res.Groups[0].Events)
		}
		if res.Groups[1].Events != 1 {
			t.Errorf("tmax=%g: group 2 events = %d, want 1 without truncation", tmax, res.Groups[1].Events)
		}
	}
}

func TestClusterSurvival_SingleClusterSkipsLogRank(t *testing.T) {
	clinical := []ClinicalRecord{
		{Sample: "a", Time: 1, Event: true},
		{Sample: "b", Time: 2, Event: false},
	}
	res, err := ClusterSurvival([]string{"a", "b"}, []int{1, 1}, clinical, -1)
	if err != nil {
		t.Fatalf("ClusterSurvival: %v", err)
	}
	if res.LogRank != nil {
		t.Errorf("LogRank = %+v, want nil for a single cluster", res.LogRank)
	}
}

func TestClusterSurvival_Errors(t *testing.T) {
	clinical := []ClinicalRecord{{Sample: "z", Time: 1, Event: true}}
	if _, err := ClusterSurvival([]string{"a"}, []int{1, 2}, clinical, -1); err == nil {
		t.Error("expected error for mismatched samples and labels")
	}
	if _, err := ClusterSurvival([]string{"a", "b"}, []int{1, 2}, clinical, -1); err == nil {
		t.Error("expected error when no sample has a clinical record")
	}
}

func TestMedianSurvival(t *testing.T) {
	curve := KaplanMeier([]float64{1, 2, 3, 4}, []bool{true, true, true, true})
	if m := MedianSurvival(curve); m != 2 {
		t.Errorf("MedianSurvival = %v, want 2 (survival hits 0.5 at the second death)", m)
	}
	// One death among ten never drags survival to the median.
	curve = KaplanMeier([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, []bool{true, false, false, false, false, false, false, false, false, false})
	if m := MedianSurvival(curve); !math.IsNaN(m) {
		t.Errorf("MedianSurvival = %v, want NaN", m)
	}
	if m := MedianSurvival(nil); !math.IsNaN(m) {
		t.Errorf("MedianSurvival(nil) = %v, want NaN", m)
	}
}
