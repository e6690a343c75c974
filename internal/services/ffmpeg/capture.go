package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"presence/internal/services"
	"presence/internal/textutil"
)

const chunkSize = 64 * 1024

// CaptureOptions configures a device capture invocation.
type CaptureOptions struct {
	VideoDevice string
	AudioDevice string
	// MaxDuration bounds the capture process itself. The recorder session
	// enforces the same cap client-side; this keeps the process bounded even
	// if the session is abandoned.
	MaxDuration time.Duration
}

// Starter launches the capture process and returns its stdout along with a
// wait function. Abstracted for tests.
type Starter func(ctx context.Context, binary string, args []string) (io.ReadCloser, func() error, error)

// Option configures the capture client.
type Option func(*Client)

// WithStarter injects a custom process starter (primarily for tests).
func WithStarter(start Starter) Option {
	return func(c *Client) {
		if start != nil {
			c.start = start
		}
	}
}

// Client opens capture device streams backed by an ffmpeg process writing
// WebM to stdout.
type Client struct {
	binary  string
	lockDir string
	start   Starter
}

// NewClient constructs a capture client. lockDir holds per-device lock files
// that guarantee a device is owned by at most one session at a time.
func NewClient(binary, lockDir string, opts ...Option) (*Client, error) {
	if binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	if lockDir == "" {
		return nil, errors.New("lock directory required")
	}
	client := &Client{binary: binary, lockDir: lockDir, start: startCommand}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Open acquires the capture device and starts streaming encoded chunks. The
// returned stream owns the device lock and the capture process; Close
// releases both.
func (c *Client) Open(opts CaptureOptions) (*Stream, error) {
	if opts.VideoDevice == "" {
		return nil, services.Wrap(services.ErrDeviceUnavailable, "ffmpeg", "open", "no video device configured", nil)
	}

	lockPath := filepath.Join(c.lockDir, textutil.SanitizeToken(opts.VideoDevice)+".lock")
	deviceLock := flock.New(lockPath)
	locked, err := deviceLock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrDeviceUnavailable, "ffmpeg", "open", "acquire device lock", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrDeviceUnavailable, "ffmpeg", "open",
			fmt.Sprintf("device %s is in use by another session", opts.VideoDevice), nil)
	}

	procCtx, cancel := context.WithCancel(context.Background())
	stdout, wait, err := c.start(procCtx, c.binary, buildArgs(opts))
	if err != nil {
		cancel()
		_ = deviceLock.Unlock()
		return nil, services.Wrap(services.ErrDeviceUnavailable, "ffmpeg", "open", "start capture process", err)
	}

	stream := &Stream{
		stdout: stdout,
		wait:   wait,
		cancel: cancel,
		lock:   deviceLock,
		chunks: make(chan []byte, 4),
		done:   make(chan struct{}),
	}
	go stream.readLoop()
	return stream, nil
}

func buildArgs(opts CaptureOptions) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-f", "v4l2", "-i", opts.VideoDevice}
	if opts.AudioDevice != "" {
		args = append(args, "-f", "alsa", "-i", opts.AudioDevice)
	}
	if opts.MaxDuration > 0 {
		seconds := int(opts.MaxDuration.Round(time.Second) / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		args = append(args, "-t", strconv.Itoa(seconds))
	}
	args = append(args, "-c:v", "libvpx-vp9", "-c:a", "libopus", "-f", "webm", "pipe:1")
	return args
}

// Stream delivers encoded chunks from the capture process. It satisfies the
// recorder's DeviceStream contract.
type Stream struct {
	stdout io.ReadCloser
	wait   func() error
	cancel context.CancelFunc
	lock   *flock.Flock

	chunks    chan []byte
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func (s *Stream) readLoop() {
	defer close(s.chunks)
	buf := make([]byte, chunkSize)
	for {
		n, err := s.stdout.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case s.chunks <- chunk:
			case <-s.done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// Next returns the next encoded chunk, io.EOF once the process ends, or the
// context error when the caller gives up waiting.
func (s *Stream) Next(ctx context.Context) ([]byte, error) {
	select {
	case chunk, ok := <-s.chunks:
		if !ok {
			return nil, io.EOF
		}
		return chunk, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the capture process and releases the device lock. Idempotent.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.cancel()
		_ = s.stdout.Close()
		if s.wait != nil {
			_ = s.wait()
		}
		s.closeErr = s.lock.Unlock()
	})
	return s.closeErr
}

func startCommand(ctx context.Context, binary string, args []string) (io.ReadCloser, func() error, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("start %s: %w", binary, err)
	}
	wait := func() error {
		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
				return fmt.Errorf("%s: %s: %w", binary, msg, err)
			}
			return fmt.Errorf("%s: %w", binary, err)
		}
		return nil
	}
	return stdout, wait, nil
}
