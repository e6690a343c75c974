package workflow

import (
	"context"
	"errors"
	"fmt"

	"presence/internal/logging"
	"presence/internal/media"
	"presence/internal/recorder"
	"presence/internal/services"
	"presence/internal/services/assessapi"
)

// BeginCapture starts a recording session over the supplied device stream.
// Only valid from Idle. A nil stream is a device failure and leaves the
// workflow in Idle; the caller may retry after fixing the device.
func (e *Engine) BeginCapture(stream recorder.DeviceStream) error {
	e.mu.Lock()
	if e.phase != PhaseIdle {
		e.mu.Unlock()
		return fmt.Errorf("cannot start capture from %s", e.phase)
	}

	session := recorder.NewSession(e.artifactName(), media.DefaultMIMEType, e.logger)
	if err := session.Start(stream, e.cfg.MaxDuration); err != nil {
		e.lastErr = err
		publish := e.publishLocked()
		e.mu.Unlock()
		publish()
		return err
	}

	gen := e.generation
	captureDone := make(chan struct{})
	e.session = session
	e.captureDone = captureDone
	e.phase = PhaseCapturing
	e.lastErr = nil
	e.createRunLocked()
	publish := e.publishLocked()
	e.mu.Unlock()
	publish()

	go func() {
		select {
		case outcome := <-session.Finalized():
			e.handleFinalized(gen, outcome)
		case <-captureDone:
		}
	}()
	return nil
}

// StopCapture finalizes the active recording. The resulting artifact (or a
// capture error) arrives through the session outcome and moves the workflow
// to Previewing or back to Idle.
func (e *Engine) StopCapture() error {
	e.mu.Lock()
	if e.phase != PhaseCapturing || e.session == nil {
		e.mu.Unlock()
		return fmt.Errorf("cannot stop capture from %s", e.phase)
	}
	session := e.session
	e.mu.Unlock()

	return session.Stop()
}

func (e *Engine) handleFinalized(gen uint64, outcome recorder.Outcome) {
	e.mu.Lock()
	if e.generation != gen || e.phase != PhaseCapturing {
		e.mu.Unlock()
		return
	}
	e.session = nil
	e.captureDone = nil
	if outcome.Err != nil {
		// Capture errors are locally recoverable: back to Idle, no server
		// contact happened.
		e.phase = PhaseIdle
		e.lastErr = outcome.Err
		e.persistLocked()
		publish := e.publishLocked()
		e.mu.Unlock()
		publish()
		return
	}
	e.artifact = outcome.Artifact
	e.phase = PhasePreviewing
	e.lastErr = nil
	e.persistLocked()
	publish := e.publishLocked()
	e.mu.Unlock()
	publish()
}

// UseFile enters Previewing with an existing media file instead of a live
// recording. Size validation happens immediately so an oversized or empty
// file never reaches the network.
func (e *Engine) UseFile(path string) error {
	e.mu.Lock()
	if e.phase != PhaseIdle {
		e.mu.Unlock()
		return fmt.Errorf("cannot select a file from %s", e.phase)
	}

	artifact, err := media.FromFile(path)
	if err != nil {
		e.lastErr = services.Wrap(services.ErrDeviceUnavailable, "workflow", "use-file", "open media file", err)
		e.mu.Unlock()
		return e.lastErr
	}
	if err := artifact.Validate(); err != nil {
		e.lastErr = err
		e.mu.Unlock()
		return err
	}

	e.artifact = artifact
	e.phase = PhasePreviewing
	e.lastErr = nil
	e.createRunLocked()
	publish := e.publishLocked()
	e.mu.Unlock()
	publish()
	return nil
}

// Retake discards the previewed artifact and returns to Idle.
func (e *Engine) Retake() error {
	e.mu.Lock()
	if e.phase != PhasePreviewing {
		e.mu.Unlock()
		return fmt.Errorf("cannot retake from %s", e.phase)
	}
	e.artifact = nil
	e.phase = PhaseIdle
	if e.store != nil && e.run != nil {
		e.run.Phase = "cancelled"
		if err := e.store.Update(context.Background(), e.run); err != nil {
			e.logger.Warn("persist run update failed", logging.Error(err))
		}
	}
	e.run = nil
	publish := e.publishLocked()
	e.mu.Unlock()
	publish()
	return nil
}

// Cancel aborts the run from any non-terminal phase, releases the capture
// device and any in-flight upload or poll, and returns to Idle. Late
// callbacks from the abandoned run never mutate state. Safe to call in any
// phase.
func (e *Engine) Cancel() {
	e.mu.Lock()
	if e.phase == PhaseIdle || e.phase.Terminal() {
		e.mu.Unlock()
		return
	}

	e.generation++
	session := e.session
	captureDone := e.captureDone
	runCancel := e.runCancel
	done := e.done

	e.session = nil
	e.captureDone = nil
	e.runCancel = nil
	e.done = nil
	e.artifact = nil
	e.uploadPercent = 0
	e.job = assessapi.JobSnapshot{}
	e.reportID = ""
	e.lastErr = nil
	e.phase = PhaseIdle
	if e.store != nil && e.run != nil {
		e.run.Phase = "cancelled"
		if err := e.store.Update(context.Background(), e.run); err != nil {
			e.logger.Warn("persist run update failed", logging.Error(err))
		}
	}
	e.run = nil
	publish := e.publishLocked()
	e.mu.Unlock()

	if captureDone != nil {
		close(captureDone)
	}
	if runCancel != nil {
		runCancel()
	}
	if session != nil {
		session.Cancel()
	}
	if done != nil {
		close(done)
	}
	publish()

	e.logger.Info("workflow cancelled", logging.String(logging.FieldEventType, "workflow_cancelled"))
}

// Reset clears a terminal run so a fresh one can start. No-op outside
// terminal phases.
func (e *Engine) Reset() {
	e.mu.Lock()
	if !e.phase.Terminal() {
		e.mu.Unlock()
		return
	}
	e.generation++
	e.artifact = nil
	e.uploadPercent = 0
	e.job = assessapi.JobSnapshot{}
	e.reportID = ""
	e.lastErr = nil
	e.run = nil
	e.done = nil
	e.successFired = false
	e.phase = PhaseIdle
	publish := e.publishLocked()
	e.mu.Unlock()
	publish()
}

func (e *Engine) artifactName() string {
	prefix := e.cfg.ArtifactNamePrefix
	if prefix == "" {
		prefix = "recorded-video"
	}
	return prefix + ".webm"
}

var errNoActiveRun = errors.New("no active run")
