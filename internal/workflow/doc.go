// Package workflow sequences a capture-and-process run from recording to a
// resolved report.
//
// The Engine is a state machine over Idle, Capturing, Previewing, Uploading,
// Processing, Succeeded, and Failed. Transitions are strictly sequential:
// upload never starts before a capture finalizes an artifact, and analysis
// never starts before the upload yields a video id. State changes are
// published to a single observer callback and persisted to the run-history
// store as they happen.
//
// Two entry points share the engine: the free assessment and the scenario
// simulator. They differ only in Config (recording duration cap, artifact
// name prefix, success hand-off); the state machine itself is identical.
//
// Cancellation works at any non-terminal phase. It releases the capture
// device, abandons in-flight uploads and polls, and returns the engine to
// Idle. A generation counter suppresses callbacks that arrive after the run
// they belong to was cancelled, so a late upload completion can never mutate
// a newer run's state.
package workflow
