package multinbs

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// RoundStats summarizes one consensus round.
type RoundStats struct {
	// Samples is the cohort size that survived subsampling this round.
	Samples int
	// Iterations and Residual report the factorization's convergence.
	Iterations int
	Residual   float64
	Converged  bool
}

// consensusRound is one round's retained cohort (as indices into the full
// cohort) and its hard subtype assignments.
type consensusRound struct {
	members []int
	labels  []int
	stats   RoundStats
}

// consensusAccumulator tallies, per sample pair, how often the pair was
// subsampled together and how often it landed in the same factor.
type consensusAccumulator struct {
	n        int
	together []float64
	same     []float64
}

func newConsensusAccumulator(n int) *consensusAccumulator {
	return &consensusAccumulator{
		n:        n,
		together: make([]float64, n*n),
		same:     make([]float64, n*n),
	}
}

func (a *consensusAccumulator) add(r *consensusRound) {
	for x, sx := range r.members {
		for y, sy := range r.members {
			a.together[sx*a.n+sy]++
			if r.labels[x] == r.labels[y] {
				a.same[sx*a.n+sy]++
			}
		}
	}
}

// ratio returns the co-clustering frequency matrix. Pairs that were never
// subsampled together get zero.
func (a *consensusAccumulator) ratio() *mat.Dense {
	out := mat.NewDense(a.n, a.n, nil)
	for i := 0; i < a.n; i++ {
		for j := 0; j < a.n; j++ {
			if t := a.together[i*a.n+j]; t > 0 {
				out.Set(i, j, a.same[i*a.n+j]/t)
			}
		}
	}
	return out
}

// unsampledPairs counts the sample pairs that never shared a round. Their
// consensus entries are zero by construction, not by disagreement.
func (a *consensusAccumulator) unsampledPairs() int {
	count := 0
	for i := 0; i < a.n; i++ {
		for j := i + 1; j < a.n; j++ {
			if a.together[i*a.n+j] == 0 {
				count++
			}
		}
	}
	return count
}

// runConsensusRound executes one subsample → smooth → normalize → factor →
// assign pass with the round's own RNG.
func runConsensusRound(data *Profile, kernel *Kernel, lap *mat.SymDense, net *Network, cfg *Config, rng *rand.Rand) (*consensusRound, error) {
	sub, err := Subsample(data, SubsampleOptions{
		SampleFraction: cfg.SampleFraction,
		GeneFraction:   cfg.GeneFraction,
		MinRowSum:      cfg.MinRowSum,
		Network:        net,
	}, rng)
	if err != nil {
		return nil, err
	}

	var smoothed *Profile
	if kernel != nil {
		smoothed, err = kernel.Propagate(sub)
		if err != nil {
			return nil, err
		}
	} else {
		smoothed, err = sub.ReindexGenes(net.Genes())
		if err != nil {
			return nil, err
		}
	}
	if !cfg.SkipQuantileNorm {
		smoothed = QuantileNormalize(smoothed)
	}

	// Factor genes-by-samples.
	x := mat.DenseCopyOf(smoothed.Values().T())
	nmf, err := NetNMF(x, lap, NMFOptions{
		Clusters:      cfg.Clusters,
		Lambda:        cfg.Lambda,
		MaxIterations: cfg.MaxIterations,
		Epsilon:       cfg.Epsilon,
		ErrTol:        cfg.ErrTol,
		ErrDeltaTol:   cfg.ErrDeltaTol,
	}, rng)
	if err != nil {
		return nil, err
	}

	members := make([]int, smoothed.NumSamples())
	for i, name := range smoothed.Samples() {
		idx, ok := data.SampleIndex(name)
		if !ok {
			return nil, fmt.Errorf("multinbs: subsampled sample %q missing from cohort", name)
		}
		members[i] = idx
	}
	return &consensusRound{
		members: members,
		labels:  HardAssignments(nmf.H),
		stats: RoundStats{
			Samples:    len(members),
			Iterations: nmf.Iterations,
			Residual:   nmf.Residual,
			Converged:  nmf.Converged,
		},
	}, nil
}

// consensusCluster runs the configured number of rounds in parallel,
// averages the co-clustering evidence, and cuts the resulting hierarchy into
// cfg.Clusters subtypes.
func consensusCluster(ctx context.Context, data *Profile, kernel *Kernel, lap *mat.SymDense, net *Network, cfg *Config) (*mat.Dense, [][4]float64, []int, []RoundStats, int, error) {
	n := data.NumSamples()
	acc := newConsensusAccumulator(n)
	stats := make([]RoundStats, cfg.Iterations)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	var mu sync.Mutex
	for round := 0; round < cfg.Iterations; round++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(cfg.Seed, uint64(round)))
			res, err := runConsensusRound(data, kernel, lap, net, cfg, rng)
			if err != nil {
				return fmt.Errorf("consensus round %d: %w", round, err)
			}
			// Rounds write disjoint stats slots; only the accumulator
			// needs the lock.
			stats[round] = res.stats
			mu.Lock()
			acc.add(res)
			mu.Unlock()
			cfg.Logger.Debug("consensus round complete",
				"round", round,
				"samples", res.stats.Samples,
				"nmf_iterations", res.stats.Iterations,
				"residual", res.stats.Residual,
				"converged", res.stats.Converged)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, nil, nil, 0, err
	}

	unsampled := acc.unsampledPairs()
	if unsampled > 0 {
		cfg.Logger.Warn("some sample pairs were never drawn together; consider more rounds",
			"pairs", unsampled)
	}
	ratio := acc.ratio()
	dist := ComputePairwiseDistancesParallel(ratioRows(ratio), n, n, cfg.LinkageMetric, cfg.Workers)
	dendro, err := Linkage(dist, n, cfg.LinkageMethod)
	if err != nil {
		return nil, nil, nil, nil, 0, err
	}
	labels, err := CutTree(dendro, n, cfg.Clusters)
	if err != nil {
		return nil, nil, nil, nil, 0, err
	}
	return ratio, dendro, labels, stats, unsampled, nil
}

// ratioRows exposes the consensus matrix's backing slice as flat row-major
// data for pairwise distance computation.
func ratioRows(m *mat.Dense) []float64 {
	return m.RawMatrix().Data
}
