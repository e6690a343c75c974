package services

import "context"

type contextKey string

const (
	runIDKey     contextKey = "workflow_run_id"
	phaseKey     contextKey = "workflow_phase"
	requestIDKey contextKey = "request_id"
)

// WithRunID attaches a workflow run identifier to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	if runID == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFromContext extracts the workflow run identifier, if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(runIDKey).(string)
	return value, ok && value != ""
}

// WithPhase attaches the active workflow phase to the context.
func WithPhase(ctx context.Context, phase string) context.Context {
	if phase == "" {
		return ctx
	}
	return context.WithValue(ctx, phaseKey, phase)
}

// PhaseFromContext extracts the active workflow phase, if present.
func PhaseFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(phaseKey).(string)
	return value, ok && value != ""
}

// WithRequestID attaches a correlation identifier for backend calls.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the correlation identifier, if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(requestIDKey).(string)
	return value, ok && value != ""
}
