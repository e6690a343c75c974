package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"presence/internal/history"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect past assessment runs",
	}

	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))
	runsCmd.AddCommand(newRunsClearCommand(ctx))

	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				runs, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
					return nil
				}

				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					size := ""
					if run.ArtifactSize > 0 {
						size = humanize.IBytes(uint64(run.ArtifactSize))
					}
					rows = append(rows, []string{
						strconv.FormatInt(run.ID, 10),
						humanize.Time(run.CreatedAt),
						run.EntryPoint,
						run.ScenarioID,
						run.Phase,
						run.ArtifactName,
						size,
						run.ReportID,
					})
				}
				table := renderTable(
					[]string{"ID", "Started", "Entry", "Scenario", "Phase", "Artifact", "Size", "Report"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show details for one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid run id %q", args[0])
			}
			return withHistory(ctx, func(store *history.Store) error {
				run, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %d not found", id)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run #%d (%s)\n", run.ID, run.RunKey)
				fmt.Fprintf(out, "  Entry:    %s\n", run.EntryPoint)
				if run.ScenarioID != "" {
					fmt.Fprintf(out, "  Scenario: %s\n", run.ScenarioID)
				}
				fmt.Fprintf(out, "  Phase:    %s\n", run.Phase)
				if run.ArtifactName != "" {
					fmt.Fprintf(out, "  Artifact: %s (%s)\n", run.ArtifactName, humanize.IBytes(uint64(run.ArtifactSize)))
				}
				if run.VideoID != "" {
					fmt.Fprintf(out, "  Video:    %s\n", run.VideoID)
				}
				if run.JobID != "" {
					fmt.Fprintf(out, "  Job:      %s", run.JobID)
					if run.CurrentStep != "" {
						fmt.Fprintf(out, " [%s %.0f%%]", run.CurrentStep, run.Progress)
					}
					fmt.Fprintln(out)
				}
				if run.ReportID != "" {
					fmt.Fprintf(out, "  Report:   %s\n", run.ReportID)
				}
				if run.ErrorMessage != "" {
					fmt.Fprintf(out, "  Error:    %s\n", run.ErrorMessage)
				}
				fmt.Fprintf(out, "  Started:  %s\n", run.CreatedAt.Local().Format("2006-01-02 15:04:05"))
				fmt.Fprintf(out, "  Updated:  %s\n", run.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
				return nil
			})
		},
	}
}

func newRunsClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				if err := store.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Run history cleared")
				return nil
			})
		},
	}
}

func withHistory(ctx *commandContext, fn func(*history.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}
