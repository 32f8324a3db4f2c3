// Package multinbs implements network-based stratification of tumor
// cohorts into molecular subtypes.
//
// Somatic mutation profiles are too sparse to cluster directly: two tumors
// driven by the same pathway rarely mutate the same genes. Stratification
// smooths each sample's profile over a gene interaction network by random
// walk with restart, so signal accumulates on network neighborhoods instead
// of individual genes, then consensus-clusters the smoothed profiles with
// network-regularized nonnegative matrix factorization.
//
// Basic usage:
//
//	network, err := multinbs.LoadNetwork("interactions.tsv", "\t")
//	profile, err := multinbs.LoadBinaryMutations("mutations.tsv", multinbs.MutationList, "\t")
//	cfg := multinbs.DefaultConfig()
//	cfg.Clusters = 4
//	result, err := multinbs.Stratify(ctx, profile, network, cfg)
//	// result.Labels[i] is the subtype (1..Clusters) for result.Samples[i]
//	// result.Consensus holds pairwise co-clustering frequencies
//
// To blend mutation calls with a continuous platform such as expression
// before stratifying:
//
//	blended, err := multinbs.Combine(mutations, expression, 0.8)
//	result, err := multinbs.Stratify(ctx, blended, network, cfg)
//
// # Reproducibility
//
// Rounds run concurrently, but every round derives its own random stream
// from Config.Seed and the round number, so a fixed seed gives identical
// results at any worker count. Leave Seed at 0 to draw a fresh seed; the
// one used is reported in Result.Seed.
//
// # Checking subtypes against outcomes
//
// ClusterSurvival joins an assignment with clinical follow-up, builds a
// Kaplan-Meier curve per subtype and tests separation with a log-rank test:
//
//	clinical, err := multinbs.LoadClinical("clinical.tsv", "\t")
//	surv, err := multinbs.ClusterSurvival(result.Samples, result.Labels, clinical, -1)
//	// surv.LogRank.PValue is the significance of subtype separation
package multinbs
