package config

import (
	"fmt"

	"github.com/kenliou45/multinbs"
)

// Params converts the file configuration into library stratification
// parameters. The caller attaches its own logger.
func (c *Config) Params() (multinbs.Config, error) {
	metric, ok := multinbs.MetricByName(c.Consensus.Metric)
	if !ok {
		return multinbs.Config{}, fmt.Errorf("consensus.metric %q is not supported", c.Consensus.Metric)
	}
	return multinbs.Config{
		Alpha:             c.Propagation.Alpha,
		SymmetricNorm:     c.Propagation.Symmetric,
		SkipPropagation:   c.Propagation.Skip,
		SkipQuantileNorm:  !c.Propagation.QuantileNormalize,
		Gamma:             c.Factorization.Gamma,
		KNearestNeighbors: c.Factorization.KNearestNeighbors,
		Clusters:          c.Factorization.Clusters,
		Lambda:            c.Factorization.Lambda,
		MaxIterations:     c.Factorization.MaxIterations,
		Epsilon:           c.Factorization.Epsilon,
		ErrTol:            c.Factorization.ErrTol,
		ErrDeltaTol:       c.Factorization.ErrDeltaTol,
		Iterations:        c.Consensus.Iterations,
		SampleFraction:    c.Consensus.SampleFraction,
		GeneFraction:      c.Consensus.GeneFraction,
		MinRowSum:         c.Consensus.MinRowSum,
		LinkageMethod:     multinbs.LinkageMethod(c.Consensus.Linkage),
		LinkageMetric:     metric,
		Workers:           c.Consensus.Workers,
		Seed:              c.Consensus.Seed,
	}, nil
}
