// Package analysis tracks a backend analysis job from submission to its
// terminal state by polling the job status endpoint on a fixed cadence.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"presence/internal/config"
	"presence/internal/logging"
	"presence/internal/services"
	"presence/internal/services/assessapi"
)

// StatusClient fetches the current snapshot of an analysis job.
type StatusClient interface {
	JobStatus(ctx context.Context, jobID string) (assessapi.JobSnapshot, error)
}

// Controller polls an analysis job until it completes or fails. Transient
// fetch errors are logged and polling continues; only a terminal job status
// or caller cancellation ends the wait.
type Controller struct {
	client   StatusClient
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

// Option adjusts controller construction.
type Option func(*Controller)

// WithInterval overrides the poll cadence.
func WithInterval(interval time.Duration) Option {
	return func(c *Controller) {
		if interval > 0 {
			c.interval = interval
		}
	}
}

// NewController builds a controller using the configured poll cadence and
// optional overall timeout.
func NewController(cfg *config.Config, client StatusClient, logger *slog.Logger, opts ...Option) *Controller {
	controller := &Controller{
		client:   client,
		interval: time.Duration(cfg.Workflow.JobPollIntervalMS) * time.Millisecond,
		timeout:  time.Duration(cfg.Workflow.JobPollTimeoutSeconds) * time.Second,
		logger:   logging.NewComponentLogger(logger, "analysis"),
	}
	if controller.interval <= 0 {
		controller.interval = 2 * time.Second
	}
	for _, opt := range opts {
		opt(controller)
	}
	return controller
}

// Await blocks until the job reaches a terminal status, invoking onUpdate
// after every successful status fetch. The returned snapshot is the terminal
// one. A completed job must carry a report id; completion without one is
// reported as an inconsistent server error. A failed job surfaces the
// server's failure message verbatim.
func (c *Controller) Await(ctx context.Context, jobID string, onUpdate func(assessapi.JobSnapshot)) (assessapi.JobSnapshot, error) {
	pollCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.logger.Info("awaiting analysis job",
		logging.String(logging.FieldEventType, "analysis_await"),
		logging.String("job_id", jobID),
		logging.Duration("interval", c.interval))

	for {
		select {
		case <-pollCtx.Done():
			return assessapi.JobSnapshot{}, services.Wrap(services.ErrTransport, "analysis", "await",
				fmt.Sprintf("polling job %s interrupted", jobID), pollCtx.Err())
		case <-time.After(c.interval):
		}

		snapshot, err := c.client.JobStatus(pollCtx, jobID)
		if err != nil {
			if pollCtx.Err() != nil {
				return assessapi.JobSnapshot{}, services.Wrap(services.ErrTransport, "analysis", "await",
					fmt.Sprintf("polling job %s interrupted", jobID), pollCtx.Err())
			}
			c.logger.Warn("job status fetch failed, continuing",
				logging.String("job_id", jobID),
				logging.Error(err))
			continue
		}

		if onUpdate != nil {
			onUpdate(snapshot)
		}

		switch snapshot.State {
		case assessapi.JobCompleted:
			if snapshot.ReportID == "" {
				return snapshot, services.Wrap(services.ErrInconsistentServer, "analysis", "await",
					fmt.Sprintf("job %s completed without a report id", jobID), nil)
			}
			c.logger.Info("analysis job completed",
				logging.String(logging.FieldEventType, "analysis_completed"),
				logging.String("job_id", jobID),
				logging.String("report_id", snapshot.ReportID))
			return snapshot, nil
		case assessapi.JobFailed:
			message := snapshot.ErrorMessage
			if message == "" {
				message = "analysis failed"
			}
			c.logger.Warn("analysis job failed",
				logging.String(logging.FieldEventType, "analysis_failed"),
				logging.String("job_id", jobID),
				logging.String("detail", message))
			return snapshot, services.Wrap(services.ErrJobFailed, "analysis", "await", message, nil)
		}
	}
}
