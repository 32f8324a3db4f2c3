package multinbs

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// SubsampleOptions controls one random draw of a profile.
type SubsampleOptions struct {
	// SampleFraction is the fraction of rows to keep, in (0, 1].
	SampleFraction float64
	// GeneFraction is the fraction of columns to keep, in (0, 1].
	GeneFraction float64
	// MinRowSum drops subsampled rows whose remaining signal sums below
	// this value. Rows at or above it survive.
	MinRowSum float64
	// Network, when set, restricts the MinRowSum count to genes present in
	// the network; signal outside it cannot propagate, so it should not
	// keep a sample alive.
	Network *Network
}

// Subsample draws a random subset of samples and genes without replacement
// and then drops samples whose subsampled row sums fall below
// opts.MinRowSum. Consensus clustering runs many such draws so that cluster
// co-membership can be averaged over perturbed cohorts.
func Subsample(p *Profile, opts SubsampleOptions, rng *rand.Rand) (*Profile, error) {
	if opts.SampleFraction <= 0 || opts.SampleFraction > 1 {
		return nil, fmt.Errorf("multinbs: sample fraction must be in (0,1], got %g", opts.SampleFraction)
	}
	if opts.GeneFraction <= 0 || opts.GeneFraction > 1 {
		return nil, fmt.Errorf("multinbs: gene fraction must be in (0,1], got %g", opts.GeneFraction)
	}
	if opts.MinRowSum < 0 {
		return nil, fmt.Errorf("multinbs: minimum row sum must be >= 0, got %g", opts.MinRowSum)
	}

	nPats := int(math.Round(float64(p.NumSamples()) * opts.SampleFraction))
	nGenes := int(math.Round(float64(p.NumGenes()) * opts.GeneFraction))
	if nPats == 0 || nGenes == 0 {
		return nil, fmt.Errorf("multinbs: subsample of %dx%d profile at %gx%g keeps nothing",
			p.NumSamples(), p.NumGenes(), opts.SampleFraction, opts.GeneFraction)
	}

	// Kept rows and columns stay in profile order.
	sampleIdx := rng.Perm(p.NumSamples())[:nPats]
	geneIdx := rng.Perm(p.NumGenes())[:nGenes]
	sort.Ints(sampleIdx)
	sort.Ints(geneIdx)

	sub, err := p.Subset(sampleIdx, geneIdx)
	if err != nil {
		return nil, err
	}

	countable := make([]bool, sub.NumGenes())
	for j, g := range sub.genes {
		countable[j] = opts.Network == nil || opts.Network.HasGene(g)
	}
	kept := make([]int, 0, sub.NumSamples())
	for i := 0; i < sub.NumSamples(); i++ {
		var sum float64
		for j := range countable {
			if countable[j] {
				sum += sub.data.At(i, j)
			}
		}
		if sum >= opts.MinRowSum {
			kept = append(kept, i)
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("multinbs: subsample: %w", ErrEmptyCohort)
	}
	if len(kept) == sub.NumSamples() {
		return sub, nil
	}
	allGenes := make([]int, sub.NumGenes())
	for j := range allGenes {
		allGenes[j] = j
	}
	return sub.Subset(kept, allGenes)
}
