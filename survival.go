package multinbs

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ClinicalRecord ties a sample to its survival outcome.
type ClinicalRecord struct {
	Sample string
	// Time is the follow-up time (conventionally days).
	Time float64
	// Event is true when death was observed and false when the sample was
	// censored at Time.
	Event bool
}

var (
	eventColumns = map[string]bool{"vital_status": true, "event": true, "status": true}
	timeColumns  = map[string]bool{"overall_survival": true, "time": true, "days": true}
)

// ReadClinical parses a delimited survival table. The first column holds the
// sample ID; the event column is named vital_status, event or status, and
// the time column overall_survival, time or days (case-insensitive). Event
// values accept 0/1, true/false, and alive/dead spellings. An empty
// delimiter means tab.
func ReadClinical(r io.Reader, delim string) ([]ClinicalRecord, error) {
	sc := lineScanner(r)
	var header []string
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if skippableLine(line) {
			continue
		}
		header = splitFields(line, delim)
		break
	}
	if header == nil {
		return nil, fmt.Errorf("multinbs: clinical table is empty")
	}
	eventIdx, timeIdx := -1, -1
	for i, name := range header {
		switch n := strings.ToLower(strings.TrimSpace(name)); {
		case eventColumns[n]:
			eventIdx = i
		case timeColumns[n]:
			timeIdx = i
		}
	}
	if eventIdx < 0 {
		return nil, fmt.Errorf("multinbs: clinical table is missing an event column (vital_status, event or status)")
	}
	if timeIdx < 0 {
		return nil, fmt.Errorf("multinbs: clinical table is missing a time column (overall_survival, time or days)")
	}

	minFields := max(eventIdx, timeIdx) + 1
	var records []ClinicalRecord
	seen := make(map[string]bool)
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if skippableLine(line) {
			continue
		}
		fields := splitFields(line, delim)
		if len(fields) < minFields {
			return nil, fmt.Errorf("multinbs: clinical table line %d: want at least %d fields, got %d", lineNo, minFields, len(fields))
		}
		sample := strings.TrimSpace(fields[0])
		if sample == "" {
			return nil, fmt.Errorf("multinbs: clinical table line %d: empty sample ID", lineNo)
		}
		if seen[sample] {
			return nil, fmt.Errorf("multinbs: clinical table line %d: duplicate sample %q", lineNo, sample)
		}
		seen[sample] = true
		event, err := parseEvent(fields[eventIdx])
		if err != nil {
			return nil, fmt.Errorf("multinbs: clinical table line %d: %w", lineNo, err)
		}
		t, err := strconv.ParseFloat(strings.TrimSpace(fields[timeIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("multinbs: clinical table line %d: parse time %q: %w", lineNo, fields[timeIdx], err)
		}
		if t < 0 {
			return nil, fmt.Errorf("multinbs: clinical table line %d: negative time %g", lineNo, t)
		}
		records = append(records, ClinicalRecord{Sample: sample, Time: t, Event: event})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("multinbs: read clinical table: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("multinbs: clinical table has no records")
	}
	return records, nil
}

func parseEvent(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "dead", "deceased":
		return true, nil
	case "0", "false", "alive", "living":
		return false, nil
	default:
		return false, fmt.Errorf("cannot interpret event value %q", s)
	}
}

// LoadClinical reads a survival table from a file. See [ReadClinical].
func LoadClinical(path, delim string) ([]ClinicalRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("multinbs: open clinical file: %w", err)
	}
	defer f.Close()
	recs, err := ReadClinical(f, delim)
	if err != nil {
		return nil, fmt.Errorf("multinbs: %s: %w", path, err)
	}
	return recs, nil
}

// KMPoint is one step of a Kaplan–Meier survival curve.
type KMPoint struct {
	// Time is a distinct event time.
	Time float64
	// Survival is the product-limit estimate just after Time.
	Survival float64
	// AtRisk is the number of samples under observation entering Time.
	AtRisk int
	// Events is the number of deaths at Time.
	Events int
}

// KaplanMeier computes the product-limit survival estimate for one group.
// Curve points are emitted at distinct event times; censoring only thins the
// at-risk count.
func KaplanMeier(times []float64, events []bool) []KMPoint {
	type obs struct {
		t     float64
		event bool
	}
	data := make([]obs, len(times))
	for i := range times {
		data[i] = obs{times[i], events[i]}
	}
	sort.Slice(data, func(i, j int) bool { return data[i].t < data[j].t })

	var curve []KMPoint
	surv := 1.0
	atRisk := len(data)
	for i := 0; i < len(data); {
		t := data[i].t
		deaths, removed := 0, 0
		for i < len(data) && data[i].t == t {
			if data[i].event {
				deaths++
			}
			removed++
			i++
		}
		if deaths > 0 {
			surv *= 1 - float64(deaths)/float64(atRisk)
			curve = append(curve, KMPoint{Time: t, Survival: surv, AtRisk: atRisk, Events: deaths})
		}
		atRisk -= removed
	}
	return curve
}

// MedianSurvival returns the first curve time at which survival drops to
// 0.5 or below, or NaN when the curve never crosses the median.
func MedianSurvival(curve []KMPoint) float64 {
	for _, pt := range curve {
		if pt.Survival <= 0.5 {
			return pt.Time
		}
	}
	return math.NaN()
}

// LogRankResult is the outcome of a G-sample log-rank test.
type LogRankResult struct {
	ChiSquare float64
	// DF is G-1 for G groups.
	DF int
	PValue float64
}

// LogRank tests whether survival differs across groups. groups holds an
// arbitrary integer label per observation; the statistic follows a
// chi-squared distribution with G-1 degrees of freedom under the null. At
// least two distinct groups are required.
func LogRank(times []float64, events []bool, groups []int) (*LogRankResult, error) {
	if len(times) != len(events) || len(times) != len(groups) {
		return nil, fmt.Errorf("multinbs: log-rank inputs have mismatched lengths %d, %d, %d", len(times), len(events), len(groups))
	}
	gids := make(map[int]int)
	for _, g := range groups {
		if _, ok := gids[g]; !ok {
			gids[g] = 0
		}
	}
	if len(gids) < 2 {
		return nil, fmt.Errorf("multinbs: log-rank needs at least two groups, got %d", len(gids))
	}
	labels := make([]int, 0, len(gids))
	for g := range gids {
		labels = append(labels, g)
	}
	sort.Ints(labels)
	for i, g := range labels {
		gids[g] = i
	}
	ng := len(labels)

	// Distinct event times, pooled across groups.
	timeSet := make(map[float64]bool)
	for i, t := range times {
		if events[i] {
			timeSet[t] = true
		}
	}
	if len(timeSet) == 0 {
		return nil, fmt.Errorf("multinbs: log-rank needs at least one observed event")
	}
	eventTimes := make([]float64, 0, len(timeSet))
	for t := range timeSet {
		eventTimes = append(eventTimes, t)
	}
	sort.Float64s(eventTimes)

	observed := make([]float64, ng)
	expected := make([]float64, ng)
	cov := mat.NewSymDense(ng, nil)
	atRisk := make([]float64, ng)
	deaths := make([]float64, ng)
	for _, t := range eventTimes {
		for g := range atRisk {
			atRisk[g] = 0
			deaths[g] = 0
		}
		for i := range times {
			g := gids[groups[i]]
			if times[i] >= t {
				atRisk[g]++
			}
			if events[i] && times[i] == t {
				deaths[g]++
			}
		}
		var nTot, dTot float64
		for g := 0; g < ng; g++ {
			nTot += atRisk[g]
			dTot += deaths[g]
		}
		if nTot == 0 || dTot == 0 {
			continue
		}
		for g := 0; g < ng; g++ {
			observed[g] += deaths[g]
			expected[g] += dTot * atRisk[g] / nTot
		}
		if nTot > 1 {
			// Hypergeometric variance of the deaths split at this time.
			scale := dTot * (nTot - dTot) / (nTot - 1)
			for g := 0; g < ng; g++ {
				for h := g; h < ng; h++ {
					delta := 0.0
					if g == h {
						delta = 1.0
					}
					v := scale * (atRisk[g] / nTot) * (delta - atRisk[h]/nTot)
					cov.SetSym(g, h, cov.At(g, h)+v)
				}
			}
		}
	}

	// The covariance of all G groups is singular by construction; test on
	// the first G-1 components.
	df := ng - 1
	z := mat.NewVecDense(df, nil)
	sub := mat.NewSymDense(df, nil)
	for g := 0; g < df; g++ {
		z.SetVec(g, observed[g]-expected[g])
		for h := g; h < df; h++ {
			sub.SetSym(g, h, cov.At(g, h))
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(sub); !ok {
		return nil, fmt.Errorf("multinbs: log-rank covariance: %w", ErrSingular)
	}
	var sol mat.VecDense
	if err := chol.SolveVecTo(&sol, z); err != nil {
		return nil, fmt.Errorf("multinbs: log-rank covariance: %w", ErrSingular)
	}
	chi2 := mat.Dot(z, &sol)

	dist := distuv.ChiSquared{K: float64(df)}
	return &LogRankResult{
		ChiSquare: chi2,
		DF:        df,
		PValue:    dist.Survival(chi2),
	}, nil
}

// GroupSurvival is the survival summary of one subtype.
type GroupSurvival struct {
	Cluster int
	N       int
	Events  int
	Curve   []KMPoint
}

// SurvivalResult is the outcome of a cluster survival analysis.
type SurvivalResult struct {
	Groups []GroupSurvival
	// LogRank is nil when fewer than two subtypes had clinical follow-up.
	LogRank *LogRankResult
	// MissingClinical counts stratified samples without a clinical record.
	MissingClinical int
}

// ClusterSurvival evaluates whether the discovered subtypes separate
// survival. Samples without a clinical record are skipped and counted.
// tmax > 0 truncates follow-up: events past tmax count as censored at tmax.
// Zero or negative tmax disables truncation (pass -1 for full follow-up).
func ClusterSurvival(samples []string, labels []int, clinical []ClinicalRecord, tmax float64) (*SurvivalResult, error) {
	if len(samples) != len(labels) {
		return nil, fmt.Errorf("multinbs: %d samples but %d labels", len(samples), len(labels))
	}
	byID := make(map[string]ClinicalRecord, len(clinical))
	for _, rec := range clinical {
		byID[rec.Sample] = rec
	}

	var times []float64
	var events []bool
	var groups []int
	missing := 0
	for i, s := range samples {
		rec, ok := byID[s]
		if !ok {
			missing++
			continue
		}
		t, e := rec.Time, rec.Event
		if tmax > 0 && t > tmax {
			t, e = tmax, false
		}
		times = append(times, t)
		events = append(events, e)
		groups = append(groups, labels[i])
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("multinbs: no stratified samples have clinical records")
	}

	clusterSet := make(map[int]bool)
	for _, g := range groups {
		clusterSet[g] = true
	}
	clusters := make([]int, 0, len(clusterSet))
	for c := range clusterSet {
		clusters = append(clusters, c)
	}
	sort.Ints(clusters)

	res := &SurvivalResult{MissingClinical: missing}
	for _, c := range clusters {
		var gt []float64
		var ge []bool
		nEvents := 0
		for i, g := range groups {
			if g != c {
				continue
			}
			gt = append(gt, times[i])
			ge = append(ge, events[i])
			if events[i] {
				nEvents++
			}
		}
		res.Groups = append(res.Groups, GroupSurvival{
			Cluster: c,
			N:       len(gt),
			Events:  nEvents,
			Curve:   KaplanMeier(gt, ge),
		})
	}
	if len(clusters) >= 2 {
		lr, err := LogRank(times, events, groups)
		if err != nil {
			return nil, err
		}
		res.LogRank = lr
	}
	return res, nil
}
