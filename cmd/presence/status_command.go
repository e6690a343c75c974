package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"presence/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var skipCapture bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check readiness of the capture and submission environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			creds, err := ctx.credentials()
			if err != nil {
				return err
			}

			results := preflight.RunAll(cmd.Context(), cfg, creds, !skipCapture)
			rows := make([][]string, 0, len(results))
			for _, result := range results {
				rows = append(rows, []string{result.Name, yesNo(result.Passed), result.Detail})
			}
			table := renderTable([]string{"Check", "OK", "Detail"}, rows, []columnAlignment{alignLeft, alignLeft, alignLeft})
			fmt.Fprintln(cmd.OutOrStdout(), table)

			if !preflight.AllPassed(results) {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipCapture, "no-capture", false, "Skip capture device and ffmpeg checks")
	return cmd
}
