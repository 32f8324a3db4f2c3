package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kenliou45/multinbs"
)

func newMAFCommand(ctx *commandContext) *cobra.Command {
	mafCmd := &cobra.Command{
		Use:   "maf",
		Short: "TCGA Mutation Annotation Format utilities",
	}
	mafCmd.AddCommand(newMAFConvertCommand(ctx))
	return mafCmd
}

func newMAFConvertCommand(ctx *commandContext) *cobra.Command {
	var (
		inPath  string
		outPath string
		naming  string
		format  string
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a TCGA MAF into binary mutation data",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			var geneNaming multinbs.GeneNaming
			switch naming {
			case "symbol", "":
				geneNaming = multinbs.GeneSymbol
			case "entrez":
				geneNaming = multinbs.GeneEntrez
			default:
				return fmt.Errorf("gene naming must be symbol or entrez, got %q", naming)
			}

			p, dropped, err := multinbs.LoadMAF(inPath, geneNaming)
			if err != nil {
				return err
			}
			if len(dropped) > 0 {
				logger.Warn("dropped patients with ambiguous barcodes", "patients", len(dropped))
			}
			logger.Info("MAF converted", "samples", p.NumSamples(), "genes", p.NumGenes())

			out, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("create %s: %w", outPath, err)
			}
			switch format {
			case "matrix":
				err = multinbs.WriteProfileTSV(out, p)
			case "list":
				err = multinbs.WriteMutationList(out, p)
			default:
				out.Close()
				return fmt.Errorf("output format must be matrix or list, got %q", format)
			}
			if err != nil {
				out.Close()
				return err
			}
			return out.Close()
		},
	}

	cmd.Flags().StringVar(&inPath, "in", "", "MAF file to convert")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Destination for the mutation data")
	cmd.Flags().StringVar(&naming, "naming", "symbol", "Gene naming: symbol (Hugo) or entrez")
	cmd.Flags().StringVar(&format, "format", "matrix", "Output layout: matrix or list")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}
