package config

const (
	defaultOutDir        = "~/multinbs/results"
	defaultDataDir       = "~/.local/share/multinbs"
	defaultProfileFormat = "list"
	defaultLinkage       = "average"
	defaultMetric        = "euclidean"
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
)

// Default returns a Config populated with repository defaults. The numeric
// parameters mirror multinbs.DefaultConfig.
func Default() Config {
	return Config{
		Paths: Paths{
			ProfileFormat: defaultProfileFormat,
			OutDir:        defaultOutDir,
			DataDir:       defaultDataDir,
		},
		Propagation: Propagation{
			Alpha:             0.7,
			QuantileNormalize: true,
		},
		Factorization: Factorization{
			Clusters:          4,
			Lambda:            200,
			Gamma:             0.01,
			KNearestNeighbors: 11,
			MaxIterations:     250,
			Epsilon:           1e-15,
			ErrTol:            1e-4,
			ErrDeltaTol:       1e-8,
		},
		Consensus: Consensus{
			Iterations:     100,
			SampleFraction: 0.8,
			GeneFraction:   0.8,
			MinRowSum:      10,
			Linkage:        defaultLinkage,
			Metric:         defaultMetric,
		},
		Blend: Blend{
			Beta: 1,
		},
		Survival: Survival{
			TMax: -1,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
