package recorder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"presence/internal/logging"
	"presence/internal/services"
)

// fakeStream hands out scripted chunks, then blocks until the pump context is
// cancelled. served closes once every chunk has been consumed and appended.
type fakeStream struct {
	mu      sync.Mutex
	chunks  [][]byte
	idx     int
	drained bool
	served  chan struct{}
	closed  bool
}

func newFakeStream(chunks ...[]byte) *fakeStream {
	return &fakeStream{chunks: chunks, served: make(chan struct{})}
}

func (f *fakeStream) Next(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	if f.idx < len(f.chunks) {
		chunk := f.chunks[f.idx]
		f.idx++
		f.mu.Unlock()
		return chunk, nil
	}
	if !f.drained {
		f.drained = true
		close(f.served)
	}
	f.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeStream) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func waitServed(t *testing.T, stream *fakeStream) {
	t.Helper()
	select {
	case <-stream.served:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stream to drain")
	}
}

func receiveOutcome(t *testing.T, session *Session) Outcome {
	t.Helper()
	select {
	case out := <-session.Finalized():
		return out
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for finalized outcome")
		return Outcome{}
	}
}

func TestStopFinalizesSegmentsInOrder(t *testing.T) {
	stream := newFakeStream([]byte("first-"), []byte("second-"), []byte("third"))
	session := NewSession("recorded-video.webm", "video/webm", logging.NewNop())

	if err := session.Start(stream, time.Minute); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitServed(t, stream)

	if err := session.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	out := receiveOutcome(t, session)
	if out.Err != nil {
		t.Fatalf("unexpected outcome error: %v", out.Err)
	}
	if out.Artifact.Name() != "recorded-video.webm" {
		t.Fatalf("unexpected artifact name %q", out.Artifact.Name())
	}
	if got := out.Artifact.SizeBytes(); got != int64(len("first-second-third")) {
		t.Fatalf("unexpected artifact size %d", got)
	}
	reader, err := out.Artifact.Open()
	if err != nil {
		t.Fatalf("open artifact: %v", err)
	}
	defer reader.Close()
	buf := make([]byte, 64)
	n, _ := reader.Read(buf)
	if string(buf[:n]) != "first-second-third" {
		t.Fatalf("segments out of order: %q", buf[:n])
	}
	if !stream.isClosed() {
		t.Fatal("expected device stream to be released")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	stream := newFakeStream([]byte("data"))
	session := NewSession("clip.webm", "video/webm", logging.NewNop())

	if err := session.Start(stream, time.Minute); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitServed(t, stream)

	if err := session.Stop(); err != nil {
		t.Fatalf("first Stop returned error: %v", err)
	}
	if err := session.Stop(); err != nil {
		t.Fatalf("second Stop returned error: %v", err)
	}

	out := receiveOutcome(t, session)
	if out.Err != nil || out.Artifact == nil {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	select {
	case extra := <-session.Finalized():
		t.Fatalf("expected a single outcome, got extra %+v", extra)
	default:
	}
}

func TestStopWithoutSegmentsReportsEmptyCapture(t *testing.T) {
	stream := newFakeStream()
	session := NewSession("clip.webm", "video/webm", logging.NewNop())

	if err := session.Start(stream, time.Minute); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitServed(t, stream)

	err := session.Stop()
	if !errors.Is(err, services.ErrEmptyCapture) {
		t.Fatalf("expected ErrEmptyCapture, got %v", err)
	}
	out := receiveOutcome(t, session)
	if !errors.Is(out.Err, services.ErrEmptyCapture) {
		t.Fatalf("expected outcome to carry ErrEmptyCapture, got %v", out.Err)
	}
	if out.Artifact != nil {
		t.Fatal("expected no artifact for empty capture")
	}
}

func TestAutoStopAtDurationCap(t *testing.T) {
	stream := newFakeStream([]byte("capped"))
	session := NewSession("clip.webm", "video/webm", logging.NewNop())

	if err := session.Start(stream, 50*time.Millisecond); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	out := receiveOutcome(t, session)
	if out.Err != nil {
		t.Fatalf("unexpected outcome error: %v", out.Err)
	}
	if out.Artifact.SizeBytes() != int64(len("capped")) {
		t.Fatalf("unexpected artifact size %d", out.Artifact.SizeBytes())
	}
	if session.Recording() {
		t.Fatal("expected session to stop recording at cap")
	}
}

func TestCancelDiscardsSegments(t *testing.T) {
	stream := newFakeStream([]byte("discard me"))
	session := NewSession("clip.webm", "video/webm", logging.NewNop())

	if err := session.Start(stream, time.Minute); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitServed(t, stream)

	session.Cancel()
	if !stream.isClosed() {
		t.Fatal("expected device stream to be released on cancel")
	}
	select {
	case out := <-session.Finalized():
		t.Fatalf("expected no outcome after cancel, got %+v", out)
	default:
	}
	if err := session.Stop(); err != nil {
		t.Fatalf("Stop after Cancel should no-op, got %v", err)
	}
}

func TestStartRequiresStream(t *testing.T) {
	session := NewSession("clip.webm", "video/webm", logging.NewNop())
	err := session.Start(nil, time.Minute)
	if !errors.Is(err, services.ErrDeviceUnavailable) {
		t.Fatalf("expected ErrDeviceUnavailable, got %v", err)
	}
}

func TestSessionsAreSingleUse(t *testing.T) {
	stream := newFakeStream([]byte("one"))
	session := NewSession("clip.webm", "video/webm", logging.NewNop())

	if err := session.Start(stream, time.Minute); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitServed(t, stream)
	if err := session.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}

	if err := session.Start(newFakeStream(), time.Minute); !errors.Is(err, services.ErrDeviceUnavailable) {
		t.Fatalf("expected restart to fail, got %v", err)
	}
}
