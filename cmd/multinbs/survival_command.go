package main

import (
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kenliou45/multinbs"
)

func newSurvivalCommand(ctx *commandContext) *cobra.Command {
	var (
		assignmentsPath string
		clinicalPath    string
		tmax            float64
		asJSON          bool
	)

	cmd := &cobra.Command{
		Use:   "survival",
		Short: "Test whether existing subtype assignments separate survival",
		RunE: func(cmd *cobra.Command, args []string) error {
			samples, labels, err := readAssignmentsTSV(assignmentsPath)
			if err != nil {
				return err
			}
			clinical, err := multinbs.LoadClinical(clinicalPath, ctx.delimiter())
			if err != nil {
				return err
			}
			res, err := multinbs.ClusterSurvival(samples, labels, clinical, tmax)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, survivalReport(res))
			}

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(res.Groups))
			for _, g := range res.Groups {
				median := "NA"
				if m := multinbs.MedianSurvival(g.Curve); !math.IsNaN(m) {
					median = strconv.FormatFloat(m, 'g', -1, 64)
				}
				rows = append(rows, []string{
					strconv.Itoa(g.Cluster),
					strconv.Itoa(g.N),
					strconv.Itoa(g.Events),
					median,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Subtype", "Samples", "Events", "Median survival"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight}))
			if res.LogRank != nil {
				fmt.Fprintf(out, "Log-rank: chi2=%s df=%d p=%s\n",
					formatFloat(res.LogRank.ChiSquare), res.LogRank.DF, formatFloat(res.LogRank.PValue))
			}
			if res.MissingClinical > 0 {
				fmt.Fprintf(out, "%d assigned samples had no clinical record\n", res.MissingClinical)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&assignmentsPath, "assignments", "", "Subtype assignment table (sample, cluster)")
	cmd.Flags().StringVar(&clinicalPath, "clinical", "", "Clinical survival table")
	cmd.Flags().Float64Var(&tmax, "tmax", -1, "Truncate follow-up at this time; zero or negative disables")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the summary as JSON")
	_ = cmd.MarkFlagRequired("assignments")
	_ = cmd.MarkFlagRequired("clinical")

	return cmd
}

type survivalGroupReport struct {
	Cluster        int     `json:"cluster"`
	Samples        int     `json:"samples"`
	Events         int     `json:"events"`
	MedianSurvival float64 `json:"median_survival,omitempty"`
}

type survivalSummaryReport struct {
	Groups          []survivalGroupReport `json:"groups"`
	ChiSquare       float64               `json:"chi_square,omitempty"`
	DF              int                   `json:"df,omitempty"`
	PValue          float64               `json:"p_value,omitempty"`
	MissingClinical int                   `json:"missing_clinical"`
}

func survivalReport(res *multinbs.SurvivalResult) survivalSummaryReport {
	report := survivalSummaryReport{MissingClinical: res.MissingClinical}
	for _, g := range res.Groups {
		entry := survivalGroupReport{Cluster: g.Cluster, Samples: g.N, Events: g.Events}
		if m := multinbs.MedianSurvival(g.Curve); !math.IsNaN(m) {
			entry.MedianSurvival = m
		}
		report.Groups = append(report.Groups, entry)
	}
	if res.LogRank != nil {
		report.ChiSquare = res.LogRank.ChiSquare
		report.DF = res.LogRank.DF
		report.PValue = res.LogRank.PValue
	}
	return report
}
