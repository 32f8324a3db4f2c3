package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kenliou45/multinbs"
)

func newCombineCommand(ctx *commandContext) *cobra.Command {
	var (
		mutationPath   string
		format         string
		expressionPath string
		outPath        string
		beta           float64
		replaceNaN     bool
	)

	cmd := &cobra.Command{
		Use:   "combine",
		Short: "Blend mutation and expression profiles into one matrix",
		Long: "Combine a binary mutation profile P and an expression matrix Q into\n" +
			"beta*P + (1-beta)*Q, min-max normalizing Q per gene and aligning it to\n" +
			"P's samples and genes first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			delim := ctx.delimiter()

			mut, err := multinbs.LoadBinaryMutations(mutationPath, multinbs.MutationFormat(format), delim)
			if err != nil {
				return err
			}
			expr, err := multinbs.LoadProfile(expressionPath, delim)
			if err != nil {
				return err
			}
			if replaceNaN {
				mut.FillNaN(0)
				expr.FillNaN(0)
			}
			combined, err := multinbs.Combine(mut, expr, beta)
			if err != nil {
				return err
			}
			logger.Info("profiles combined",
				"samples", combined.NumSamples(),
				"genes", combined.NumGenes(),
				"beta", beta)

			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("create %s: %w", outPath, err)
			}
			if err := multinbs.WriteProfileTSV(f, combined); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}

	cmd.Flags().StringVar(&mutationPath, "mutations", "", "Binary mutation data")
	cmd.Flags().StringVar(&format, "profile-format", "list", "Mutation data layout: list or matrix")
	cmd.Flags().StringVar(&expressionPath, "expression", "", "Expression matrix")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Destination for the combined profile")
	cmd.Flags().Float64Var(&beta, "beta", 0.8, "Weight of the mutation profile, in [0,1]")
	cmd.Flags().BoolVar(&replaceNaN, "replace-nan", false, "Zero NaN entries instead of rejecting them")
	_ = cmd.MarkFlagRequired("mutations")
	_ = cmd.MarkFlagRequired("expression")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}
