// Package preflight provides readiness checks for the paths, binaries, and
// services a capture-and-process run depends on.
//
// The assess and simulate commands run RunAll before acquiring the capture
// device; a failed check aborts the run before any recording starts. The
// "presence status" command uses the individual check functions to display
// environment health.
package preflight
