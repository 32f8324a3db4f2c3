package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.Paths.ProfileFormat = strings.ToLower(strings.TrimSpace(c.Paths.ProfileFormat))
	if c.Paths.ProfileFormat == "" {
		c.Paths.ProfileFormat = defaultProfileFormat
	}
	c.Consensus.Linkage = strings.ToLower(strings.TrimSpace(c.Consensus.Linkage))
	if c.Consensus.Linkage == "" {
		c.Consensus.Linkage = defaultLinkage
	}
	c.Consensus.Metric = strings.ToLower(strings.TrimSpace(c.Consensus.Metric))
	if c.Consensus.Metric == "" {
		c.Consensus.Metric = defaultMetric
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.Network, err = expandPath(c.Paths.Network); err != nil {
		return fmt.Errorf("paths.network: %w", err)
	}
	if c.Paths.Profile, err = expandPath(c.Paths.Profile); err != nil {
		return fmt.Errorf("paths.profile: %w", err)
	}
	if c.Paths.Expression, err = expandPath(c.Paths.Expression); err != nil {
		return fmt.Errorf("paths.expression: %w", err)
	}
	if c.Paths.Clinical, err = expandPath(c.Paths.Clinical); err != nil {
		return fmt.Errorf("paths.clinical: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutDir) == "" {
		c.Paths.OutDir = defaultOutDir
	}
	if c.Paths.OutDir, err = expandPath(c.Paths.OutDir); err != nil {
		return fmt.Errorf("paths.outdir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	return nil
}
