package preflight

import (
	"context"

	"presence/internal/auth"
	"presence/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Capture-side checks are skipped when the caller intends to upload an
// existing file (captureNeeded false).
func RunAll(ctx context.Context, cfg *config.Config, creds auth.CredentialProvider, captureNeeded bool) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir))
	results = append(results, CheckFreeSpace("Staging free space", cfg.Paths.StagingDir, cfg.Capture.MinFreeGiB))
	results = append(results, CheckBackend(ctx, cfg.API.BaseURL))
	results = append(results, CheckCredentials(ctx, creds))

	if captureNeeded {
		results = append(results, CheckBinary("FFmpeg", cfg.FFmpegBinary()))
		results = append(results, CheckCaptureDevice(cfg.Capture.VideoDevice))
	}

	return results
}

// AllPassed reports whether every check in results passed.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
