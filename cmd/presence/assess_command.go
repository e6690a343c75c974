package main

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"presence/internal/history"
)

func newAssessCommand(ctx *commandContext) *cobra.Command {
	var filePath string
	var device string
	var autoConfirm bool

	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Record and submit a video for assessment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return executeRun(cmd, ctx, runOptions{
				entryPoint:  history.EntryAssessment,
				namePrefix:  "recorded-video",
				maxDuration: time.Duration(cfg.Capture.AssessmentMaxSeconds) * time.Second,
				filePath:    strings.TrimSpace(filePath),
				device:      strings.TrimSpace(device),
				autoConfirm: autoConfirm,
			})
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Submit an existing video file instead of recording")
	cmd.Flags().StringVar(&device, "device", "", "Capture device path (defaults to the configured video_device)")
	cmd.Flags().BoolVarP(&autoConfirm, "yes", "y", false, "Skip the preview prompt and submit immediately")
	return cmd
}
