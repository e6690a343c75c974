package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"presence/internal/analysis"
	"presence/internal/config"
	"presence/internal/history"
	"presence/internal/notifications"
	"presence/internal/preflight"
	"presence/internal/services/assessapi"
	"presence/internal/services/ffmpeg"
	"presence/internal/workflow"
)

// captureGrace is added to the ffmpeg process duration cap so the session
// always finalizes client-side before the process is cut off.
const captureGrace = 5 * time.Second

var submittableExtensions = map[string]struct{}{
	".webm": {},
	".mp4":  {},
	".mkv":  {},
	".mov":  {},
}

type runOptions struct {
	entryPoint  string
	scenarioID  string
	namePrefix  string
	maxDuration time.Duration
	filePath    string
	device      string
	autoConfirm bool
}

func executeRun(cmd *cobra.Command, cctx *commandContext, opts runOptions) error {
	cfg, err := cctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := cctx.ensureLogger()
	if err != nil {
		return err
	}
	creds, err := cctx.credentials()
	if err != nil {
		return err
	}

	if opts.filePath != "" {
		if err := validateSubmittableFile(opts.filePath); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	out := cmd.OutOrStdout()

	captureNeeded := opts.filePath == ""
	results := preflight.RunAll(ctx, cfg, creds, captureNeeded)
	if !preflight.AllPassed(results) {
		for _, result := range results {
			if !result.Passed {
				fmt.Fprintf(out, "Preflight %s: %s\n", result.Name, result.Detail)
			}
		}
		return errors.New("preflight checks failed")
	}

	store, err := history.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	client := assessapi.NewClient(cfg, creds, logger)
	controller := analysis.NewController(cfg, client, logger)
	notifier := notifications.NewService(cfg)

	engine := workflow.New(workflow.Config{
		MaxDuration:        opts.maxDuration,
		ArtifactNamePrefix: opts.namePrefix,
		EntryPoint:         opts.entryPoint,
		ScenarioID:         opts.scenarioID,
	}, client, controller, logger,
		workflow.WithHistory(store),
		workflow.WithNotifier(notifier))
	attachProgressPrinter(engine, out)

	input := bufio.NewReader(cmd.InOrStdin())

	for {
		if opts.filePath != "" {
			if err := engine.UseFile(opts.filePath); err != nil {
				return err
			}
		} else if err := captureInteractive(ctx, cmd, cfg, engine, input, opts); err != nil {
			return err
		}

		snap := engine.Snapshot()
		if snap.Phase != workflow.PhasePreviewing || snap.Artifact == nil {
			if snap.Err != nil {
				return snap.Err
			}
			return errors.New("no artifact available to submit")
		}
		fmt.Fprintf(out, "Captured %s (%s)\n",
			snap.Artifact.Name(), humanize.IBytes(uint64(snap.Artifact.SizeBytes())))

		if opts.autoConfirm {
			break
		}
		choice := promptChoice(out, input, captureNeeded)
		if choice == "r" && captureNeeded {
			if err := engine.Retake(); err != nil {
				return err
			}
			continue
		}
		if choice == "c" {
			engine.Cancel()
			fmt.Fprintln(out, "Cancelled")
			return nil
		}
		break
	}

	if err := engine.Confirm(ctx); err != nil {
		return err
	}
	final, err := engine.Wait(ctx)
	if err != nil {
		engine.Cancel()
		return err
	}

	switch final.Phase {
	case workflow.PhaseSucceeded:
		fmt.Fprintf(out, "Assessment complete. Report: %s\n", final.ReportID)
		return nil
	case workflow.PhaseFailed:
		return final.Err
	default:
		fmt.Fprintln(out, "Run cancelled")
		return nil
	}
}

func captureInteractive(ctx context.Context, cmd *cobra.Command, cfg *config.Config, engine *workflow.Engine, input *bufio.Reader, opts runOptions) error {
	capture, err := ffmpeg.NewClient(cfg.FFmpegBinary(), cfg.Paths.StateDir)
	if err != nil {
		return err
	}
	device := opts.device
	if device == "" {
		device = cfg.Capture.VideoDevice
	}
	stream, err := capture.Open(ffmpeg.CaptureOptions{
		VideoDevice: device,
		AudioDevice: cfg.Capture.AudioDevice,
		MaxDuration: opts.maxDuration + captureGrace,
	})
	if err != nil {
		return err
	}
	if err := engine.BeginCapture(stream); err != nil {
		stream.Close()
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Recording from %s (limit %s). Press Enter to stop.\n", device, opts.maxDuration)

	enter := make(chan struct{})
	go func() {
		if _, err := input.ReadString('\n'); err == nil {
			close(enter)
		}
	}()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			engine.Cancel()
			return ctx.Err()
		case <-enter:
			enter = nil
			if err := engine.StopCapture(); err != nil && engine.Phase() == workflow.PhaseCapturing {
				return err
			}
		case <-ticker.C:
		}

		switch engine.Phase() {
		case workflow.PhasePreviewing:
			return nil
		case workflow.PhaseIdle:
			if snap := engine.Snapshot(); snap.Err != nil {
				return snap.Err
			}
			return errors.New("capture ended without an artifact")
		}
	}
}

func attachProgressPrinter(engine *workflow.Engine, out io.Writer) {
	var mu sync.Mutex
	var lastPhase workflow.Phase
	var lastStep string
	var lastPercent int

	engine.Observe(func(snap workflow.Snapshot) {
		mu.Lock()
		defer mu.Unlock()

		if snap.Phase != lastPhase {
			lastPhase = snap.Phase
			switch snap.Phase {
			case workflow.PhaseUploading:
				if snap.Artifact != nil {
					fmt.Fprintf(out, "Uploading %s...\n", snap.Artifact.Name())
				}
			case workflow.PhaseProcessing:
				fmt.Fprintf(out, "Upload complete. Analysis started (job %s)\n", snap.Job.JobID)
			}
		}

		switch snap.Phase {
		case workflow.PhaseUploading:
			if snap.UploadPercent >= lastPercent+25 || (snap.UploadPercent == 100 && lastPercent != 100) {
				lastPercent = snap.UploadPercent
				fmt.Fprintf(out, "  upload %d%%\n", snap.UploadPercent)
			}
		case workflow.PhaseProcessing:
			if snap.Job.CurrentStep != "" && snap.Job.CurrentStep != lastStep {
				lastStep = snap.Job.CurrentStep
				fmt.Fprintf(out, "  %s (%.0f%%)\n", snap.Job.CurrentStep, snap.Job.Progress)
			}
		}
	})
}

func promptChoice(out io.Writer, input *bufio.Reader, allowRetake bool) string {
	if allowRetake {
		fmt.Fprint(out, "Submit recording? [Y=submit, r=retake, c=cancel]: ")
	} else {
		fmt.Fprint(out, "Submit recording? [Y=submit, c=cancel]: ")
	}
	line, _ := input.ReadString('\n')
	return strings.ToLower(strings.TrimSpace(line))
}

func validateSubmittableFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("file does not exist: %s", path)
		}
		return fmt.Errorf("inspect file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	ext := strings.ToLower(filepath.Ext(info.Name()))
	if _, ok := submittableExtensions[ext]; !ok {
		return fmt.Errorf("unsupported file extension %q", ext)
	}
	return nil
}
