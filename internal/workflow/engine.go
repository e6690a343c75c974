package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"presence/internal/history"
	"presence/internal/logging"
	"presence/internal/media"
	"presence/internal/notifications"
	"presence/internal/recorder"
	"presence/internal/services/assessapi"
)

// Phase identifies the workflow's current state.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseCapturing  Phase = "capturing"
	PhasePreviewing Phase = "previewing"
	PhaseUploading  Phase = "uploading"
	PhaseProcessing Phase = "processing"
	PhaseSucceeded  Phase = "succeeded"
	PhaseFailed     Phase = "failed"
)

// Terminal reports whether the phase ends a run. Terminal phases require a
// fresh run; there is no resume-from-midpoint.
func (p Phase) Terminal() bool {
	return p == PhaseSucceeded || p == PhaseFailed
}

// Snapshot is the externally visible workflow state published to the
// observer on every transition.
type Snapshot struct {
	Phase         Phase
	Artifact      *media.Artifact
	UploadPercent int
	Job           assessapi.JobSnapshot
	ReportID      string
	Err           error
}

// Uploader transfers an artifact to the backend and starts analysis.
type Uploader interface {
	Upload(ctx context.Context, artifact *media.Artifact, progress func(percent int)) (string, error)
	StartProcessing(ctx context.Context, videoID string) (string, error)
}

// Analyzer drives an analysis job to its terminal status.
type Analyzer interface {
	Await(ctx context.Context, jobID string, onUpdate func(assessapi.JobSnapshot)) (assessapi.JobSnapshot, error)
}

// Config parameterizes one engine entry point. The free assessment and the
// scenario simulator share the engine and differ only in these values.
type Config struct {
	// MaxDuration caps recording length; the session auto-stops when reached.
	MaxDuration time.Duration
	// ArtifactNamePrefix names recorded artifacts; the simulator binds the
	// scenario slug here.
	ArtifactNamePrefix string
	// EntryPoint labels run-history records.
	EntryPoint string
	// ScenarioID is recorded in run history for simulator runs.
	ScenarioID string
	// OnSuccess is invoked exactly once per successful run with the report id.
	OnSuccess func(reportID string)
}

// Engine sequences one capture-and-process run: Capture, Preview, Upload,
// Analyze, Resolve. Transitions are strictly sequential; cancellation at any
// non-terminal phase returns to Idle and suppresses late callbacks.
type Engine struct {
	cfg      Config
	uploader Uploader
	analyzer Analyzer
	store    *history.Store
	notifier notifications.Service
	logger   *slog.Logger

	mu            sync.Mutex
	phase         Phase
	generation    uint64
	session       *recorder.Session
	captureDone   chan struct{}
	runCancel     func()
	artifact      *media.Artifact
	uploadPercent int
	job           assessapi.JobSnapshot
	reportID      string
	lastErr       error
	run           *history.Run
	observer      func(Snapshot)
	done          chan struct{}
	successFired  bool
}

// Option configures optional Engine collaborators.
type Option func(*Engine)

// WithHistory persists every run transition to the given store.
func WithHistory(store *history.Store) Option {
	return func(e *Engine) { e.store = store }
}

// WithNotifier publishes terminal-state notifications through svc.
func WithNotifier(svc notifications.Service) Option {
	return func(e *Engine) { e.notifier = svc }
}

// New constructs an idle engine for one entry point.
func New(cfg Config, uploader Uploader, analyzer Analyzer, logger *slog.Logger, opts ...Option) *Engine {
	engine := &Engine{
		cfg:      cfg,
		uploader: uploader,
		analyzer: analyzer,
		logger:   logging.NewComponentLogger(logger, "workflow"),
		phase:    PhaseIdle,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Observe registers the single observer callback. Must be set before the run
// starts; replaces any previous observer.
func (e *Engine) Observe(fn func(Snapshot)) {
	e.mu.Lock()
	e.observer = fn
	e.mu.Unlock()
}

// Snapshot returns the current workflow state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Phase returns the current phase.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

func (e *Engine) snapshotLocked() Snapshot {
	return Snapshot{
		Phase:         e.phase,
		Artifact:      e.artifact,
		UploadPercent: e.uploadPercent,
		Job:           e.job,
		ReportID:      e.reportID,
		Err:           e.lastErr,
	}
}

// publishLocked captures the observer and snapshot under the lock and returns
// a closure to invoke after unlocking, so observer callbacks can call back
// into the engine.
func (e *Engine) publishLocked() func() {
	observer := e.observer
	if observer == nil {
		return func() {}
	}
	snap := e.snapshotLocked()
	return func() { observer(snap) }
}

func (e *Engine) persistLocked() {
	if e.store == nil || e.run == nil {
		return
	}
	e.run.Phase = string(e.phase)
	e.run.ErrorMessage = ""
	if e.lastErr != nil {
		e.run.ErrorMessage = e.lastErr.Error()
	}
	if e.artifact != nil {
		e.run.ArtifactName = e.artifact.Name()
		e.run.ArtifactSize = e.artifact.SizeBytes()
	}
	e.run.ReportID = e.reportID
	if e.phase == PhaseUploading {
		e.run.Progress = float64(e.uploadPercent)
	} else if e.job.JobID != "" {
		e.run.JobID = e.job.JobID
		e.run.Progress = e.job.Progress
		e.run.CurrentStep = e.job.CurrentStep
	}
	if err := e.store.Update(context.Background(), e.run); err != nil {
		e.logger.Warn("persist run update failed", logging.Error(err))
	}
}

func (e *Engine) createRunLocked() {
	if e.store == nil {
		return
	}
	entryPoint := e.cfg.EntryPoint
	if entryPoint == "" {
		entryPoint = history.EntryAssessment
	}
	run := &history.Run{
		EntryPoint: entryPoint,
		ScenarioID: e.cfg.ScenarioID,
		Phase:      string(e.phase),
	}
	if e.artifact != nil {
		run.ArtifactName = e.artifact.Name()
		run.ArtifactSize = e.artifact.SizeBytes()
	}
	if err := e.store.Create(context.Background(), run); err != nil {
		e.logger.Warn("persist run create failed", logging.Error(err))
		return
	}
	e.run = run
}
