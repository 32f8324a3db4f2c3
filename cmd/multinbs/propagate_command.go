package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kenliou45/multinbs"
)

func newPropagateCommand(ctx *commandContext) *cobra.Command {
	var (
		networkPath string
		profilePath string
		format      string
		outPath     string
		kernelPath  string
		alpha       float64
		symmetric   bool
	)

	cmd := &cobra.Command{
		Use:   "propagate",
		Short: "Smooth a molecular profile over an interaction network",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			delim := ctx.delimiter()

			net, err := multinbs.LoadNetwork(networkPath, delim)
			if err != nil {
				return err
			}
			var p *multinbs.Profile
			switch format {
			case "continuous":
				p, err = multinbs.LoadProfile(profilePath, delim)
			case "list", "matrix":
				p, err = multinbs.LoadBinaryMutations(profilePath, multinbs.MutationFormat(format), delim)
			default:
				return fmt.Errorf("profile format must be list, matrix or continuous, got %q", format)
			}
			if err != nil {
				return err
			}
			logger.Info("smoothing profile",
				"samples", p.NumSamples(),
				"profile_genes", p.NumGenes(),
				"network_genes", net.NumGenes(),
				"alpha", alpha,
				"symmetric", symmetric)

			kernel, err := multinbs.NewKernel(net, alpha, symmetric)
			if err != nil {
				return err
			}
			smoothed, err := kernel.Propagate(p)
			if err != nil {
				return err
			}

			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("create %s: %w", outPath, err)
			}
			if err := multinbs.WriteProfileTSV(f, smoothed); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			logger.Info("smoothed profile written", "path", outPath)

			if kernelPath != "" {
				if err := multinbs.SaveKernelTSV(kernelPath, kernel); err != nil {
					return err
				}
				logger.Info("propagation kernel written", "path", kernelPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&networkPath, "network", "", "Gene interaction edge list")
	cmd.Flags().StringVar(&profilePath, "profile", "", "Profile to smooth")
	cmd.Flags().StringVar(&format, "profile-format", "matrix", "Profile layout: list, matrix or continuous")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Destination for the smoothed profile")
	cmd.Flags().StringVar(&kernelPath, "save-kernel", "", "Also write the propagation kernel to this path")
	cmd.Flags().Float64Var(&alpha, "alpha", 0.7, "Random walk restart probability, in [0,1)")
	cmd.Flags().BoolVar(&symmetric, "symmetric", false, "Use symmetric degree normalization")
	_ = cmd.MarkFlagRequired("network")
	_ = cmd.MarkFlagRequired("profile")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}
