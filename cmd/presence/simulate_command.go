package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"presence/internal/history"
	"presence/internal/textutil"
)

func newSimulateCommand(ctx *commandContext) *cobra.Command {
	var scenario string
	var filePath string
	var device string
	var autoConfirm bool

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a scenario simulation and submit the response for assessment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			scenarioID := strings.TrimSpace(scenario)
			if scenarioID == "" {
				return fmt.Errorf("--scenario is required")
			}
			prefix := textutil.Slug(scenarioID)
			if prefix == "" {
				prefix = "scenario-response"
			}
			return executeRun(cmd, ctx, runOptions{
				entryPoint:  history.EntrySimulation,
				scenarioID:  scenarioID,
				namePrefix:  prefix,
				maxDuration: time.Duration(cfg.Capture.ScenarioMaxSeconds) * time.Second,
				filePath:    strings.TrimSpace(filePath),
				device:      strings.TrimSpace(device),
				autoConfirm: autoConfirm,
			})
		},
	}

	cmd.Flags().StringVarP(&scenario, "scenario", "s", "", "Scenario identifier to respond to")
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Submit an existing video file instead of recording")
	cmd.Flags().StringVar(&device, "device", "", "Capture device path (defaults to the configured video_device)")
	cmd.Flags().BoolVarP(&autoConfirm, "yes", "y", false, "Skip the preview prompt and submit immediately")
	return cmd
}
