package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors classifying workflow failures. Wrap tags errors with one of
// these markers so callers can branch on the failure class without parsing
// message text.
var (
	// ErrDeviceUnavailable indicates the capture device could not be acquired.
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	// ErrEmptyCapture indicates a recording session produced no data.
	ErrEmptyCapture = errors.New("empty capture")
	// ErrArtifactTooLarge indicates a media artifact exceeds the upload ceiling.
	ErrArtifactTooLarge = errors.New("artifact too large")
	// ErrTransport indicates a network-level failure reaching the backend.
	ErrTransport = errors.New("transport error")
	// ErrServerRejected indicates the backend returned a non-success response.
	ErrServerRejected = errors.New("server rejected request")
	// ErrAnalysisStartFailed indicates the backend refused to start analysis.
	ErrAnalysisStartFailed = errors.New("analysis start failed")
	// ErrInconsistentServer indicates the backend violated its own contract,
	// e.g. a completed job without a report id.
	ErrInconsistentServer = errors.New("inconsistent server state")
	// ErrJobFailed carries a server-reported analysis failure.
	ErrJobFailed = errors.New("analysis job failed")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Recoverable reports whether an error leaves the workflow locally retryable
// without contacting the server (device and capture failures). Everything else
// is terminal for the active run.
func Recoverable(err error) bool {
	return errors.Is(err, ErrDeviceUnavailable) || errors.Is(err, ErrEmptyCapture)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
