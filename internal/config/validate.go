package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable. Range checks mirror the
// library's own validation so a bad file fails before any data is read.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePropagation(); err != nil {
		return err
	}
	if err := c.validateFactorization(); err != nil {
		return err
	}
	if err := c.validateConsensus(); err != nil {
		return err
	}
	if c.Blend.Beta < 0 || c.Blend.Beta > 1 {
		return fmt.Errorf("blend.beta must be between 0 and 1, got %g", c.Blend.Beta)
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	switch c.Paths.ProfileFormat {
	case "list", "matrix":
	default:
		return fmt.Errorf("paths.profile_format must be \"list\" or \"matrix\", got %q", c.Paths.ProfileFormat)
	}
	if len(c.Paths.Delimiter) > 1 {
		return fmt.Errorf("paths.delimiter must be a single character, got %q", c.Paths.Delimiter)
	}
	return nil
}

func (c *Config) validatePropagation() error {
	if c.Propagation.Alpha < 0 || c.Propagation.Alpha >= 1 {
		return fmt.Errorf("propagation.alpha must be in [0,1), got %g", c.Propagation.Alpha)
	}
	return nil
}

func (c *Config) validateFactorization() error {
	f := c.Factorization
	if f.Clusters < 2 {
		return fmt.Errorf("factorization.clusters must be at least 2, got %d", f.Clusters)
	}
	if f.Lambda < 0 {
		return fmt.Errorf("factorization.lambda must not be negative, got %g", f.Lambda)
	}
	if f.Gamma <= 0 {
		return fmt.Errorf("factorization.gamma must be positive, got %g", f.Gamma)
	}
	if f.KNearestNeighbors < 1 {
		return fmt.Errorf("factorization.k_nearest_neighbors must be at least 1, got %d", f.KNearestNeighbors)
	}
	if f.MaxIterations < 1 {
		return fmt.Errorf("factorization.max_iterations must be at least 1, got %d", f.MaxIterations)
	}
	if f.Epsilon <= 0 {
		return fmt.Errorf("factorization.epsilon must be positive, got %g", f.Epsilon)
	}
	if f.ErrTol < 0 || f.ErrDeltaTol < 0 {
		return errors.New("factorization error tolerances must not be negative")
	}
	return nil
}

func (c *Config) validateConsensus() error {
	cc := c.Consensus
	if cc.Iterations < 1 {
		return fmt.Errorf("consensus.iterations must be at least 1, got %d", cc.Iterations)
	}
	if cc.SampleFraction <= 0 || cc.SampleFraction > 1 {
		return fmt.Errorf("consensus.sample_fraction must be in (0,1], got %g", cc.SampleFraction)
	}
	if cc.GeneFraction <= 0 || cc.GeneFraction > 1 {
		return fmt.Errorf("consensus.gene_fraction must be in (0,1], got %g", cc.GeneFraction)
	}
	if cc.MinRowSum < 0 {
		return fmt.Errorf("consensus.min_row_sum must not be negative, got %g", cc.MinRowSum)
	}
	switch cc.Linkage {
	case "average", "single", "complete":
	default:
		return fmt.Errorf("consensus.linkage must be \"average\", \"single\" or \"complete\", got %q", cc.Linkage)
	}
	switch cc.Metric {
	case "euclidean", "manhattan", "cityblock", "cosine", "chebyshev":
	default:
		return fmt.Errorf("consensus.metric %q is not supported", cc.Metric)
	}
	if cc.Workers < 0 {
		return fmt.Errorf("consensus.workers must not be negative, got %d", cc.Workers)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
