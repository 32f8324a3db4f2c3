package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains input file and output directory configuration.
type Paths struct {
	// Network is the gene interaction edge list.
	Network string `toml:"network"`
	// Profile is the somatic mutation input.
	Profile string `toml:"profile"`
	// ProfileFormat is "list" (sample<TAB>gene) or "matrix".
	ProfileFormat string `toml:"profile_format"`
	// Expression optionally blends an expression matrix into the profile.
	Expression string `toml:"expression"`
	// Clinical optionally points at a survival table for outcome checks.
	Clinical string `toml:"clinical"`
	// OutDir receives assignment, consensus and survival outputs.
	OutDir string `toml:"outdir"`
	// DataDir holds the run ledger database.
	DataDir string `toml:"data_dir"`
	// Delimiter separates fields in the input tables. Empty means tab.
	Delimiter string `toml:"delimiter"`
}

// Propagation contains network smoothing configuration.
type Propagation struct {
	Alpha     float64 `toml:"alpha"`
	Symmetric bool    `toml:"symmetric"`
	Skip      bool    `toml:"skip"`
	// QuantileNormalize controls normalization of the smoothed profiles.
	QuantileNormalize bool `toml:"quantile_normalize"`
}

// Factorization contains network-regularized NMF configuration.
type Factorization struct {
	Clusters          int     `toml:"clusters"`
	Lambda            float64 `toml:"lambda"`
	Gamma             float64 `toml:"gamma"`
	KNearestNeighbors int     `toml:"k_nearest_neighbors"`
	MaxIterations     int     `toml:"max_iterations"`
	Epsilon           float64 `toml:"epsilon"`
	ErrTol            float64 `toml:"err_tol"`
	ErrDeltaTol       float64 `toml:"err_delta_tol"`
}

// Consensus contains consensus clustering configuration.
type Consensus struct {
	Iterations     int     `toml:"iterations"`
	SampleFraction float64 `toml:"sample_fraction"`
	GeneFraction   float64 `toml:"gene_fraction"`
	MinRowSum      float64 `toml:"min_row_sum"`
	Linkage        string  `toml:"linkage"`
	Metric         string  `toml:"metric"`
	Workers        int     `toml:"workers"`
	Seed           uint64  `toml:"seed"`
}

// Blend contains multi-omics blending configuration.
type Blend struct {
	// Beta weighs the mutation profile against expression, in [0,1].
	Beta float64 `toml:"beta"`
}

// Survival contains outcome analysis configuration.
type Survival struct {
	// TMax truncates follow-up; zero or negative disables truncation.
	TMax float64 `toml:"tmax"`
}

// Logging contains log output configuration.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	// File appends logs to a file in addition to stdout.
	File string `toml:"file"`
}

// Config holds every knob of a stratification run.
//
// Sections:
//   - Paths: input files, output and data directories
//   - Propagation: network smoothing of mutation profiles
//   - Factorization: network-regularized NMF parameters
//   - Consensus: subsampling rounds and the consensus cut
//   - Blend: mutation/expression mixing weight
//   - Survival: follow-up truncation for outcome checks
//   - Logging: log level and format
type Config struct {
	Paths         Paths         `toml:"paths"`
	Propagation   Propagation   `toml:"propagation"`
	Factorization Factorization `toml:"factorization"`
	Consensus     Consensus     `toml:"consensus"`
	Blend         Blend         `toml:"blend"`
	Survival      Survival      `toml:"survival"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/multinbs/config.toml")
}

// Load locates, parses, and validates a configuration file. An empty path
// falls back to the default location, then to multinbs.toml in the working
// directory; a missing file is not an error and yields the defaults. The
// returned config has all path fields expanded.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("multinbs.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// CreateSample writes the annotated sample configuration to target.
func CreateSample(target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(target, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Sample returns the annotated sample configuration text.
func Sample() string {
	return sampleConfig
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
