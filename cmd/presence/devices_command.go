package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"presence/internal/devices"
)

func newDevicesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List available capture devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			found, err := devices.NewEnumerator(logger).List(cmd.Context())
			if err != nil {
				return err
			}
			if len(found) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No capture devices found")
				return nil
			}

			rows := make([][]string, 0, len(found))
			for _, device := range found {
				rows = append(rows, []string{device.Path, device.Name})
			}
			table := renderTable([]string{"Device", "Name"}, rows, []columnAlignment{alignLeft, alignLeft})
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}
