package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/kenliou45/multinbs/internal/runstore"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the ledger of past stratification runs",
	}
	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))
	runsCmd.AddCommand(newRunsDeleteCommand(ctx))
	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *runstore.Store) error {
				runs, err := store.ListRuns(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, runs)
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						run.ID,
						run.Name,
						run.Status,
						run.CreatedAt.Local().Format(time.DateTime),
						strconv.Itoa(run.Clusters),
						strconv.Itoa(run.Samples),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Name", "Status", "Created", "Subtypes", "Samples"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight}))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the run list as JSON")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run with its assignments and survival summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *runstore.Store) error {
				run, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				samples, labels, err := store.Assignments(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				survival, err := store.Survival(cmd.Context(), run.ID)
				if err != nil && !errors.Is(err, runstore.ErrNotFound) {
					return err
				}

				if asJSON {
					return writeJSON(cmd, map[string]any{
						"run":      run,
						"samples":  samples,
						"labels":   labels,
						"survival": survival,
					})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run %s (%s)\n", run.ID, run.Name)
				fmt.Fprintf(out, "Status: %s\n", run.Status)
				fmt.Fprintf(out, "Created: %s\n", run.CreatedAt.Local().Format(time.DateTime))
				fmt.Fprintf(out, "Network: %s\n", run.Network)
				fmt.Fprintf(out, "Profile: %s\n", run.Profile)
				fmt.Fprintf(out, "Seed: %d\n", run.Seed)
				if run.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", run.Error)
				}

				if len(labels) > 0 {
					order, counts := clusterSizes(labels)
					rows := make([][]string, 0, len(order))
					for _, c := range order {
						rows = append(rows, []string{strconv.Itoa(c), strconv.Itoa(counts[c])})
					}
					fmt.Fprintln(out, renderTable([]string{"Subtype", "Samples"}, rows,
						[]columnAlignment{alignRight, alignRight}))
				}
				if survival != nil {
					fmt.Fprintf(out, "Log-rank: chi2=%s df=%d p=%s (%d samples, %d missing clinical)\n",
						formatFloat(survival.ChiSquare), survival.DF, formatFloat(survival.PValue),
						survival.SamplesUsed, survival.SamplesMissing)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the run as JSON")
	return cmd
}

func newRunsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Remove a run and its stored outputs from the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *runstore.Store) error {
				if err := store.DeleteRun(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
				return nil
			})
		},
	}
}
