// Package main hosts the Presence CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into the
// capture-and-process workflow: recording or selecting a video artifact,
// uploading it to the assessment backend, driving the analysis job to
// completion, and inspecting past runs. It centralizes configuration
// resolution, credential storage, and structured logging setup so subcommands
// can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
