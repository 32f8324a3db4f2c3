package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kenliou45/multinbs"
	"github.com/kenliou45/multinbs/internal/runstore"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		networkPath    string
		profilePath    string
		profileFormat  string
		expressionPath string
		clinicalPath   string
		outDir         string
		runName        string
		clustersFlag   int
		seedFlag       uint64
		noLedger       bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Stratify a cohort into molecular subtypes",
		Long: "Run the full stratification pipeline: smooth the mutation profile over\n" +
			"the interaction network, factor consensus rounds into subtypes, write the\n" +
			"assignments and consensus matrix, and record the run in the ledger.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			network := firstNonEmpty(networkPath, cfg.Paths.Network)
			profile := firstNonEmpty(profilePath, cfg.Paths.Profile)
			format := firstNonEmpty(profileFormat, cfg.Paths.ProfileFormat)
			expression := firstNonEmpty(expressionPath, cfg.Paths.Expression)
			clinical := firstNonEmpty(clinicalPath, cfg.Paths.Clinical)
			results := firstNonEmpty(outDir, cfg.Paths.OutDir)
			if network == "" {
				return fmt.Errorf("no interaction network: set --network or paths.network")
			}
			if profile == "" {
				return fmt.Errorf("no mutation profile: set --profile or paths.profile")
			}

			params, err := cfg.Params()
			if err != nil {
				return err
			}
			if clustersFlag > 0 {
				params.Clusters = clustersFlag
			}
			if seedFlag != 0 {
				params.Seed = seedFlag
			}
			params.Logger = logger

			var store *runstore.Store
			var run *runstore.Run
			if !noLedger {
				store, err = runstore.Open(cfg.Paths.DataDir)
				if err != nil {
					return err
				}
				defer store.Close()

				paramsJSON, err := json.Marshal(cfg)
				if err != nil {
					return fmt.Errorf("serialize parameters: %w", err)
				}
				run = &runstore.Run{
					Name:       runName,
					Network:    network,
					Profile:    profile,
					ParamsJSON: string(paramsJSON),
					Clusters:   params.Clusters,
					Seed:       params.Seed,
				}
				if err := store.CreateRun(cmd.Context(), run); err != nil {
					return err
				}
				logger.Info("run recorded", "run_id", run.ID, "name", run.Name)
			}

			fail := func(cause error) error {
				if store != nil && run != nil {
					if ferr := store.FailRun(cmd.Context(), run.ID, cause.Error()); ferr != nil {
						logger.Error("marking run failed", "run_id", run.ID, "error", ferr)
					}
				}
				return cause
			}

			res, survival, err := executeRun(cmd, ctx, logger, runInputs{
				network:    network,
				profile:    profile,
				format:     format,
				expression: expression,
				clinical:   clinical,
				outDir:     results,
				beta:       cfg.Blend.Beta,
				tmax:       cfg.Survival.TMax,
				params:     params,
			})
			if err != nil {
				return fail(err)
			}

			if store != nil && run != nil {
				if err := store.SaveAssignments(cmd.Context(), run.ID, res.Samples, res.Labels); err != nil {
					return fail(err)
				}
				if survival != nil && survival.LogRank != nil {
					used := 0
					for _, g := range survival.Groups {
						used += g.N
					}
					if err := store.SaveSurvival(cmd.Context(), &runstore.SurvivalRecord{
						RunID:          run.ID,
						ChiSquare:      survival.LogRank.ChiSquare,
						PValue:         survival.LogRank.PValue,
						DF:             survival.LogRank.DF,
						SamplesUsed:    used,
						SamplesMissing: survival.MissingClinical,
					}); err != nil {
						return fail(err)
					}
				}
				if err := store.CompleteRun(cmd.Context(), run.ID, len(res.Samples), res.Seed); err != nil {
					return fail(err)
				}
			}

			printRunSummary(cmd, res, survival)
			if run != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Run ID: %s\n", run.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&networkPath, "network", "", "Gene interaction edge list (overrides paths.network)")
	cmd.Flags().StringVar(&profilePath, "profile", "", "Binary somatic mutation data (overrides paths.profile)")
	cmd.Flags().StringVar(&profileFormat, "profile-format", "", "Mutation data layout: list or matrix")
	cmd.Flags().StringVar(&expressionPath, "expression", "", "Expression matrix to blend into the profile")
	cmd.Flags().StringVar(&clinicalPath, "clinical", "", "Clinical survival table for outcome separation")
	cmd.Flags().StringVarP(&outDir, "outdir", "o", "", "Directory for assignment and consensus outputs")
	cmd.Flags().StringVar(&runName, "name", "multinbs", "Run name recorded in the ledger")
	cmd.Flags().IntVarP(&clustersFlag, "clusters", "k", 0, "Number of subtypes (overrides factorization.clusters)")
	cmd.Flags().Uint64Var(&seedFlag, "seed", 0, "Random seed (overrides consensus.seed)")
	cmd.Flags().BoolVar(&noLedger, "no-ledger", false, "Skip recording the run in the ledger")

	return cmd
}

type runInputs struct {
	network    string
	profile    string
	format     string
	expression string
	clinical   string
	outDir     string
	beta       float64
	tmax       float64
	params     multinbs.Config
}

// executeRun loads the inputs, stratifies, and writes the output files.
func executeRun(cmd *cobra.Command, ctx *commandContext, logger *slog.Logger, in runInputs) (*multinbs.Result, *multinbs.SurvivalResult, error) {
	delim := ctx.delimiter()

	net, err := multinbs.LoadNetwork(in.network, delim)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("network loaded", "genes", net.NumGenes(), "interactions", net.NumInteractions())

	data, err := multinbs.LoadBinaryMutations(in.profile, multinbs.MutationFormat(in.format), delim)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("mutation profile loaded", "samples", data.NumSamples(), "genes", data.NumGenes())

	if in.expression != "" {
		expr, err := multinbs.LoadProfile(in.expression, delim)
		if err != nil {
			return nil, nil, err
		}
		data, err = multinbs.Combine(data, expr, in.beta)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("expression blended into profile", "beta", in.beta, "expression_samples", expr.NumSamples())
	}

	res, err := multinbs.Stratify(cmd.Context(), data, net, in.params)
	if err != nil {
		return nil, nil, err
	}

	if err := os.MkdirAll(in.outDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create output directory: %w", err)
	}
	assignPath := filepath.Join(in.outDir, "assignments.tsv")
	if err := writeAssignmentsTSV(assignPath, res.Samples, res.Labels); err != nil {
		return nil, nil, err
	}
	consensusPath := filepath.Join(in.outDir, "consensus.tsv")
	if err := writeConsensusTSV(consensusPath, res.Samples, res.Consensus); err != nil {
		return nil, nil, err
	}
	logger.Info("outputs written", "assignments", assignPath, "consensus", consensusPath)

	var survival *multinbs.SurvivalResult
	if in.clinical != "" {
		clinical, err := multinbs.LoadClinical(in.clinical, delim)
		if err != nil {
			return nil, nil, err
		}
		survival, err = multinbs.ClusterSurvival(res.Samples, res.Labels, clinical, in.tmax)
		if err != nil {
			return nil, nil, err
		}
		survivalPath := filepath.Join(in.outDir, "survival.tsv")
		if err := writeSurvivalTSV(survivalPath, survival); err != nil {
			return nil, nil, err
		}
		logger.Info("survival summary written", "path", survivalPath)
	}
	return res, survival, nil
}

func printRunSummary(cmd *cobra.Command, res *multinbs.Result, survival *multinbs.SurvivalResult) {
	out := cmd.OutOrStdout()
	order, counts := clusterSizes(res.Labels)
	rows := make([][]string, 0, len(order))
	for _, c := range order {
		rows = append(rows, []string{strconv.Itoa(c), strconv.Itoa(counts[c])})
	}
	fmt.Fprintln(out, renderTable([]string{"Subtype", "Samples"}, rows, []columnAlignment{alignRight, alignRight}))
	if res.UnsampledPairs > 0 {
		fmt.Fprintf(out, "Warning: %d sample pairs were never drawn together; consider more rounds\n", res.UnsampledPairs)
	}
	if survival != nil && survival.LogRank != nil {
		lr := survival.LogRank
		fmt.Fprintf(out, "Log-rank: chi2=%s df=%d p=%s\n", formatFloat(lr.ChiSquare), lr.DF, formatFloat(lr.PValue))
	}
}

// writeSurvivalTSV writes per-subtype survival summaries, with the log-rank
// result as a trailing comment.
func writeSurvivalTSV(path string, sr *multinbs.SurvivalResult) error {
	var b strings.Builder
	b.WriteString("cluster\tn\tevents\tmedian_survival\n")
	for _, g := range sr.Groups {
		median := multinbs.MedianSurvival(g.Curve)
		medianStr := "NA"
		if !math.IsNaN(median) {
			medianStr = strconv.FormatFloat(median, 'g', -1, 64)
		}
		fmt.Fprintf(&b, "%d\t%d\t%d\t%s\n", g.Cluster, g.N, g.Events, medianStr)
	}
	if sr.LogRank != nil {
		fmt.Fprintf(&b, "# logrank chi2=%s df=%d p=%s\n",
			strconv.FormatFloat(sr.LogRank.ChiSquare, 'g', -1, 64),
			sr.LogRank.DF,
			strconv.FormatFloat(sr.LogRank.PValue, 'g', -1, 64))
	}
	if sr.MissingClinical > 0 {
		fmt.Fprintf(&b, "# samples without clinical records: %d\n", sr.MissingClinical)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
