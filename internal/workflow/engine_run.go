package workflow

import (
	"context"
	"fmt"

	"presence/internal/logging"
	"presence/internal/media"
	"presence/internal/services/assessapi"
)

// Confirm accepts the previewed artifact and starts the upload-and-analyze
// pipeline. The pipeline runs in the background; transitions are delivered
// through the observer and Wait.
func (e *Engine) Confirm(ctx context.Context) error {
	e.mu.Lock()
	if e.phase != PhasePreviewing || e.artifact == nil {
		e.mu.Unlock()
		return fmt.Errorf("cannot confirm from %s", e.phase)
	}

	gen := e.generation
	artifact := e.artifact
	runCtx, cancel := context.WithCancel(ctx)
	e.runCancel = cancel
	e.done = make(chan struct{})
	e.phase = PhaseUploading
	e.uploadPercent = 0
	e.lastErr = nil
	e.persistLocked()
	publish := e.publishLocked()
	e.mu.Unlock()
	publish()

	go e.runPipeline(runCtx, gen, artifact)
	return nil
}

// Wait blocks until the active run reaches a terminal phase or is cancelled,
// then returns the final snapshot. Errors only when no run is active or the
// caller's context expires first.
func (e *Engine) Wait(ctx context.Context) (Snapshot, error) {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done == nil {
		snap := e.Snapshot()
		if snap.Phase.Terminal() {
			return snap, nil
		}
		return snap, errNoActiveRun
	}

	select {
	case <-ctx.Done():
		return e.Snapshot(), ctx.Err()
	case <-done:
		return e.Snapshot(), nil
	}
}

func (e *Engine) runPipeline(ctx context.Context, gen uint64, artifact *media.Artifact) {
	videoID, err := e.uploader.Upload(ctx, artifact, func(percent int) {
		e.setUploadProgress(gen, percent)
	})
	if err != nil {
		e.fail(gen, "upload", err)
		return
	}

	jobID, err := e.uploader.StartProcessing(ctx, videoID)
	if err != nil {
		e.fail(gen, "analysis start", err)
		return
	}
	if !e.enterProcessing(gen, videoID, jobID) {
		return
	}

	final, err := e.analyzer.Await(ctx, jobID, func(snapshot assessapi.JobSnapshot) {
		e.setJobSnapshot(gen, snapshot)
	})
	if err != nil {
		e.fail(gen, "processing", err)
		return
	}
	e.succeed(gen, final)
}

func (e *Engine) setUploadProgress(gen uint64, percent int) {
	e.mu.Lock()
	if e.generation != gen || e.phase != PhaseUploading {
		e.mu.Unlock()
		return
	}
	e.uploadPercent = percent
	e.persistLocked()
	publish := e.publishLocked()
	e.mu.Unlock()
	publish()
}

func (e *Engine) enterProcessing(gen uint64, videoID, jobID string) bool {
	e.mu.Lock()
	if e.generation != gen || e.phase != PhaseUploading {
		e.mu.Unlock()
		return false
	}
	e.phase = PhaseProcessing
	e.job = assessapi.JobSnapshot{JobID: jobID, State: assessapi.JobQueued}
	if e.run != nil {
		e.run.VideoID = videoID
	}
	e.persistLocked()
	publish := e.publishLocked()
	e.mu.Unlock()
	publish()

	e.logger.Info("analysis started",
		logging.String(logging.FieldEventType, "analysis_start"),
		logging.String("video_id", videoID),
		logging.String("job_id", jobID))
	return true
}

func (e *Engine) setJobSnapshot(gen uint64, snapshot assessapi.JobSnapshot) {
	e.mu.Lock()
	if e.generation != gen || e.phase != PhaseProcessing {
		e.mu.Unlock()
		return
	}
	e.job = snapshot
	e.persistLocked()
	publish := e.publishLocked()
	e.mu.Unlock()
	publish()
}

func (e *Engine) fail(gen uint64, stage string, err error) {
	e.mu.Lock()
	if e.generation != gen || e.phase.Terminal() || e.phase == PhaseIdle {
		e.mu.Unlock()
		return
	}
	e.phase = PhaseFailed
	e.lastErr = err
	e.persistLocked()
	done := e.done
	e.done = nil
	e.runCancel = nil
	publish := e.publishLocked()
	e.mu.Unlock()

	if done != nil {
		close(done)
	}
	publish()

	e.logger.Warn("workflow failed",
		logging.String(logging.FieldEventType, "workflow_failed"),
		logging.String("stage", stage),
		logging.Error(err))
	if e.notifier != nil {
		_ = e.notifier.NotifyAssessmentFailed(context.Background(), err, stage)
	}
}

func (e *Engine) succeed(gen uint64, final assessapi.JobSnapshot) {
	e.mu.Lock()
	if e.generation != gen || e.phase != PhaseProcessing {
		e.mu.Unlock()
		return
	}
	e.phase = PhaseSucceeded
	e.job = final
	e.reportID = final.ReportID
	e.persistLocked()
	fireSuccess := !e.successFired
	e.successFired = true
	done := e.done
	e.done = nil
	e.runCancel = nil
	onSuccess := e.cfg.OnSuccess
	publish := e.publishLocked()
	e.mu.Unlock()

	if done != nil {
		close(done)
	}
	publish()

	e.logger.Info("workflow succeeded",
		logging.String(logging.FieldEventType, "workflow_succeeded"),
		logging.String("report_id", final.ReportID))
	if fireSuccess && onSuccess != nil {
		onSuccess(final.ReportID)
	}
	if e.notifier != nil {
		_ = e.notifier.NotifyAssessmentCompleted(context.Background(), final.ReportID)
	}
}
