package multinbs

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"

	"gonum.org/v1/gonum/mat"
)

// Config controls consensus subtype stratification.
// Start with [DefaultConfig] and override the fields you need.
type Config struct {
	// Alpha is the random walk restart probability for network smoothing.
	// Higher values keep signal closer to the mutated genes; lower values
	// spread it further. Must be in [0,1). Default: 0.7.
	Alpha float64

	// SymmetricNorm propagates over D^-1/2*A*D^-1/2 instead of the
	// row-stochastic A/deg. Symmetric normalization does not conserve each
	// sample's total signal. Default: false.
	SymmetricNorm bool

	// SkipPropagation feeds raw profiles to factorization instead of
	// network-smoothed ones. Default: false.
	SkipPropagation bool

	// SkipQuantileNorm disables quantile normalization of the smoothed
	// profiles. Default: false.
	SkipQuantileNorm bool

	// Gamma regularizes the Laplacian inverted to measure gene-to-gene
	// influence for the KNN network. Must be > 0. Default: 0.01.
	Gamma float64

	// KNearestNeighbors is how many strongest influencers each gene links
	// to in the KNN regularization network. Must be >= 1 and smaller than
	// the network. Default: 11.
	KNearestNeighbors int

	// Clusters is the number of subtypes to resolve. Must be >= 2.
	// Default: 4.
	Clusters int

	// Lambda weighs the network regularizer during factorization.
	// Must be >= 0. Default: 200.
	Lambda float64

	// MaxIterations bounds each factorization's update loop. Must be >= 1.
	// Default: 250.
	MaxIterations int

	// Epsilon is the positivity clamp applied to the factor matrices.
	// Must be > 0. Default: 1e-15.
	Epsilon float64

	// ErrTol stops a factorization once its Frobenius reconstruction error
	// falls below it. Must be >= 0. Default: 1e-4.
	ErrTol float64

	// ErrDeltaTol stops a factorization once the fit changes less than
	// this between iterations. Must be >= 0. Default: 1e-8.
	ErrDeltaTol float64

	// Iterations is the number of consensus rounds. Must be >= 1.
	// Default: 100.
	Iterations int

	// SampleFraction and GeneFraction set how much of the cohort and gene
	// space each round draws, in (0,1]. Default: 0.8 each.
	SampleFraction float64
	GeneFraction   float64

	// MinRowSum drops a subsampled sample whose remaining signal sums
	// below this value, so near-empty profiles don't dilute a round.
	// 0 keeps everything. Must be >= 0. Default: 10.
	MinRowSum float64

	// LinkageMethod merges consensus clusters by "average", "single" or
	// "complete" linkage. Default: "average".
	LinkageMethod LinkageMethod

	// LinkageMetric measures distance between consensus matrix rows.
	// Built-in: EuclideanMetric, ManhattanMetric, CosineMetric,
	// ChebyshevMetric. Use DistanceFunc to wrap a custom function.
	// Default: EuclideanMetric.
	LinkageMetric DistanceMetric

	// Workers caps concurrent consensus rounds. 0 means runtime.NumCPU().
	Workers int

	// Seed makes runs reproducible: every round derives its own generator
	// from Seed and the round number, so results do not depend on
	// scheduling. 0 draws a random seed; the seed used is reported in the
	// Result. Default: 0.
	Seed uint64

	// Logger receives stage and per-round progress. nil discards logs.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with the standard stratification
// parameters.
func DefaultConfig() Config {
	return Config{
		Alpha:             0.7,
		Gamma:             0.01,
		KNearestNeighbors: 11,
		Clusters:          4,
		Lambda:            200,
		MaxIterations:     250,
		Epsilon:           1e-15,
		ErrTol:            1e-4,
		ErrDeltaTol:       1e-8,
		Iterations:        100,
		SampleFraction:    0.8,
		GeneFraction:      0.8,
		MinRowSum:         10,
		LinkageMethod:     LinkageAverage,
		LinkageMetric:     EuclideanMetric{},
	}
}

// applyDefaults fills in zero-valued config fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.LinkageMethod == "" {
		cfg.LinkageMethod = LinkageAverage
	}
	if cfg.LinkageMetric == nil {
		cfg.LinkageMetric = EuclideanMetric{}
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Seed == 0 {
		cfg.Seed = rand.Uint64()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
}

// validateConfig checks that cfg fields are valid and returns a descriptive error if not.
func validateConfig(cfg *Config) error {
	if cfg.Alpha < 0 || cfg.Alpha >= 1 {
		return fmt.Errorf("multinbs: Alpha must be in [0,1), got %g", cfg.Alpha)
	}
	if cfg.Gamma <= 0 {
		return fmt.Errorf("multinbs: Gamma must be > 0, got %g", cfg.Gamma)
	}
	if cfg.KNearestNeighbors < 1 {
		return fmt.Errorf("multinbs: KNearestNeighbors must be >= 1, got %d", cfg.KNearestNeighbors)
	}
	if cfg.Clusters < 2 {
		return fmt.Errorf("multinbs: Clusters must be >= 2, got %d", cfg.Clusters)
	}
	if cfg.Lambda < 0 {
		return fmt.Errorf("multinbs: Lambda must be >= 0, got %g", cfg.Lambda)
	}
	if cfg.MaxIterations < 1 {
		return fmt.Errorf("multinbs: MaxIterations must be >= 1, got %d", cfg.MaxIterations)
	}
	if cfg.Epsilon <= 0 {
		return fmt.Errorf("multinbs: Epsilon must be > 0, got %g", cfg.Epsilon)
	}
	if cfg.ErrTol < 0 {
		return fmt.Errorf("multinbs: ErrTol must be >= 0, got %g", cfg.ErrTol)
	}
	if cfg.ErrDeltaTol < 0 {
		return fmt.Errorf("multinbs: ErrDeltaTol must be >= 0, got %g", cfg.ErrDeltaTol)
	}
	if cfg.Iterations < 1 {
		return fmt.Errorf("multinbs: Iterations must be >= 1, got %d", cfg.Iterations)
	}
	if cfg.SampleFraction <= 0 || cfg.SampleFraction > 1 {
		return fmt.Errorf("multinbs: SampleFraction must be in (0,1], got %g", cfg.SampleFraction)
	}
	if cfg.GeneFraction <= 0 || cfg.GeneFraction > 1 {
		return fmt.Errorf("multinbs: GeneFraction must be in (0,1], got %g", cfg.GeneFraction)
	}
	if cfg.MinRowSum < 0 {
		return fmt.Errorf("multinbs: MinRowSum must be >= 0, got %g", cfg.MinRowSum)
	}
	switch cfg.LinkageMethod {
	case LinkageAverage, LinkageSingle, LinkageComplete:
		// valid
	default:
		return fmt.Errorf("multinbs: invalid LinkageMethod %q", cfg.LinkageMethod)
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("multinbs: Workers must be >= 0 (0 means all CPUs), got %d", cfg.Workers)
	}
	return nil
}

// Result contains the output of consensus stratification.
type Result struct {
	// Samples lists the cohort in profile order.
	Samples []string

	// Labels assigns each sample a subtype in 1..Clusters, aligned with
	// Samples.
	Labels []int

	// Consensus is the samples-by-samples co-clustering frequency matrix:
	// entry (i,j) is the fraction of rounds containing both samples that
	// put them in the same factor.
	Consensus *mat.Dense

	// Dendrogram is the hierarchy over consensus rows: each row is
	// [left, right, distance, mergedSize], with merged cluster IDs
	// starting at the cohort size.
	Dendrogram [][4]float64

	// Rounds reports per-round factorization convergence.
	Rounds []RoundStats

	// UnsampledPairs counts sample pairs that never shared a round. Their
	// consensus entries are zero by construction rather than disagreement;
	// a nonzero count suggests raising Iterations.
	UnsampledPairs int

	// Seed is the seed this run actually used.
	Seed uint64

	// Clusters echoes the requested subtype count.
	Clusters int
}

// Stratify partitions a cohort into molecular subtypes. Each consensus
// round subsamples the profile, smooths it over the interaction network,
// quantile-normalizes it, and factors it under network regularization; the
// co-clustering evidence across rounds is then hierarchically clustered and
// cut into cfg.Clusters subtypes.
//
// The profile may be a binary mutation matrix or a multi-omic blend from
// [Combine]. Rounds run concurrently; ctx cancels the run between stages
// and rounds.
func Stratify(ctx context.Context, data *Profile, network *Network, cfg Config) (*Result, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("multinbs: nil profile")
	}
	if network == nil {
		return nil, fmt.Errorf("multinbs: nil network")
	}
	if cfg.Clusters > data.NumSamples() {
		return nil, fmt.Errorf("multinbs: cannot resolve %d subtypes from %d samples", cfg.Clusters, data.NumSamples())
	}
	shared := 0
	for _, g := range network.Genes() {
		if _, ok := data.GeneIndex(g); ok {
			shared++
		}
	}
	if shared == 0 {
		return nil, fmt.Errorf("multinbs: stratify: %w", ErrNoOverlap)
	}

	log := cfg.Logger
	log.Info("stratifying cohort",
		"samples", data.NumSamples(),
		"profile_genes", data.NumGenes(),
		"network_genes", network.NumGenes(),
		"shared_genes", shared,
		"clusters", cfg.Clusters,
		"seed", cfg.Seed)

	var kernel *Kernel
	if !cfg.SkipPropagation {
		log.Info("building propagation kernel", "alpha", cfg.Alpha, "symmetric", cfg.SymmetricNorm)
		var err error
		kernel, err = NewKernel(network, cfg.Alpha, cfg.SymmetricNorm)
		if err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Info("building KNN regularization network", "gamma", cfg.Gamma, "k", cfg.KNearestNeighbors)
	knn, err := KNNNetwork(network, cfg.Gamma, cfg.KNearestNeighbors)
	if err != nil {
		return nil, err
	}
	lap, err := NetworkLaplacian(knn, network.Genes())
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Info("running consensus clustering", "rounds", cfg.Iterations, "workers", cfg.Workers)
	consensus, dendro, labels, rounds, unsampled, err := consensusCluster(ctx, data, kernel, lap, network, &cfg)
	if err != nil {
		return nil, err
	}

	return &Result{
		Samples:        data.Samples(),
		Labels:         labels,
		Consensus:      consensus,
		Dendrogram:     dendro,
		Rounds:         rounds,
		UnsampledPairs: unsampled,
		Seed:           cfg.Seed,
		Clusters:       cfg.Clusters,
	}, nil
}
