package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"presence/internal/logging"
	"presence/internal/media"
	"presence/internal/services"
)

// DeviceStream delivers encoded media chunks from an acquired capture device.
// Implementations own the device handle; Close releases it.
type DeviceStream interface {
	// Next blocks until the next chunk is available. Any error, including
	// io.EOF and context cancellation, ends the chunk stream.
	Next(ctx context.Context) ([]byte, error)
	Close() error
}

// Outcome is the single-shot result of a recording session.
type Outcome struct {
	Artifact *media.Artifact
	Err      error
}

type sessionState int

const (
	stateIdle sessionState = iota
	stateRecording
	stateStopping
	stateStopped
	stateCancelled
)

// Session buffers chunks from a device stream and finalizes them into exactly
// one media artifact. Sessions are single use: a stopped or cancelled session
// cannot be restarted.
type Session struct {
	name     string
	mimeType string
	logger   *slog.Logger

	mu        sync.Mutex
	state     sessionState
	stream    DeviceStream
	segments  [][]byte
	startedAt time.Time

	timer      *time.Timer
	pumpCancel context.CancelFunc
	pumpDone   chan struct{}
	stopDone   chan struct{}
	outcome    Outcome
	finalized  chan Outcome
}

// NewSession constructs a session that will name its artifact after name.
func NewSession(name, mimeType string, logger *slog.Logger) *Session {
	return &Session{
		name:      name,
		mimeType:  mimeType,
		logger:    logging.NewComponentLogger(logger, "recorder"),
		finalized: make(chan Outcome, 1),
	}
}

// Start begins buffering chunks from stream and schedules an automatic stop
// at maxDuration so an unattended session cannot produce an unbounded
// artifact.
func (s *Session) Start(stream DeviceStream, maxDuration time.Duration) error {
	if stream == nil {
		return services.Wrap(services.ErrDeviceUnavailable, "recorder", "start", "no device stream supplied", nil)
	}

	s.mu.Lock()
	if s.state != stateIdle {
		s.mu.Unlock()
		return services.Wrap(services.ErrDeviceUnavailable, "recorder", "start", "session already used", nil)
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	s.state = stateRecording
	s.stream = stream
	s.startedAt = time.Now()
	s.pumpCancel = cancel
	s.pumpDone = make(chan struct{})
	s.stopDone = make(chan struct{})
	if maxDuration > 0 {
		s.timer = time.AfterFunc(maxDuration, func() {
			s.logger.Debug("recording duration cap reached", logging.Duration("max_duration", maxDuration))
			_ = s.Stop()
		})
	}
	pumpDone := s.pumpDone
	s.mu.Unlock()

	go s.pump(pumpCtx, stream, pumpDone)

	s.logger.Info("recording started",
		logging.String(logging.FieldEventType, "capture_start"),
		logging.Duration("max_duration", maxDuration),
	)
	return nil
}

func (s *Session) pump(ctx context.Context, stream DeviceStream, done chan struct{}) {
	defer close(done)
	for {
		chunk, err := stream.Next(ctx)
		if err != nil {
			return
		}
		if len(chunk) == 0 {
			continue
		}
		s.mu.Lock()
		if s.state == stateRecording {
			s.segments = append(s.segments, chunk)
		}
		s.mu.Unlock()
	}
}

// Stop finalizes buffered segments into one artifact in the order received.
// Idempotent: repeated calls return the first outcome without side effects.
func (s *Session) Stop() error {
	s.mu.Lock()
	switch s.state {
	case stateIdle, stateCancelled:
		s.mu.Unlock()
		return nil
	case stateStopped:
		out := s.outcome
		s.mu.Unlock()
		return out.Err
	case stateStopping:
		done := s.stopDone
		s.mu.Unlock()
		<-done
		s.mu.Lock()
		out := s.outcome
		s.mu.Unlock()
		return out.Err
	}

	s.state = stateStopping
	cancel := s.pumpCancel
	timer := s.timer
	pumpDone := s.pumpDone
	s.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if cancel != nil {
		cancel()
	}
	<-pumpDone

	s.mu.Lock()
	if s.stream != nil {
		_ = s.stream.Close()
		s.stream = nil
	}
	out := s.finalizeLocked()
	s.outcome = out
	s.state = stateStopped
	close(s.stopDone)
	s.mu.Unlock()

	if out.Err != nil {
		s.logger.Warn("recording produced no usable artifact", logging.Error(out.Err))
	} else {
		s.logger.Info("recording finalized",
			logging.String(logging.FieldEventType, "capture_complete"),
			logging.Int64("size_bytes", out.Artifact.SizeBytes()),
			logging.Duration("recorded", time.Since(s.startedAt)),
		)
	}
	s.finalized <- out
	return out.Err
}

// Cancel discards buffered segments and releases the device stream. Safe to
// call in any state; never reports an error.
func (s *Session) Cancel() {
	s.mu.Lock()
	if s.state != stateRecording {
		s.mu.Unlock()
		return
	}
	s.state = stateCancelled
	cancel := s.pumpCancel
	timer := s.timer
	pumpDone := s.pumpDone
	s.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if cancel != nil {
		cancel()
	}
	<-pumpDone

	s.mu.Lock()
	if s.stream != nil {
		_ = s.stream.Close()
		s.stream = nil
	}
	s.segments = nil
	s.mu.Unlock()

	s.logger.Info("recording cancelled", logging.String(logging.FieldEventType, "capture_cancelled"))
}

// Finalized delivers the session outcome exactly once, whether the stop was
// manual or triggered by the duration cap. Nothing is delivered after Cancel.
func (s *Session) Finalized() <-chan Outcome {
	return s.finalized
}

// Recording reports whether the session is actively buffering.
func (s *Session) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateRecording
}

func (s *Session) finalizeLocked() Outcome {
	if len(s.segments) == 0 {
		return Outcome{Err: services.Wrap(services.ErrEmptyCapture, "recorder", "stop", "device produced no data", nil)}
	}
	total := 0
	for _, segment := range s.segments {
		total += len(segment)
	}
	buf := make([]byte, 0, total)
	for _, segment := range s.segments {
		buf = append(buf, segment...)
	}
	s.segments = nil
	return Outcome{Artifact: media.New(s.name, s.mimeType, buf)}
}
