package ffmpeg

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"presence/internal/services"
)

func fakeStarter(payload []string) Starter {
	return func(ctx context.Context, binary string, args []string) (io.ReadCloser, func() error, error) {
		pr, pw := io.Pipe()
		go func() {
			for _, part := range payload {
				if _, err := pw.Write([]byte(part)); err != nil {
					return
				}
			}
			pw.Close()
		}()
		return pr, func() error { return nil }, nil
	}
}

func TestOpenStreamsChunks(t *testing.T) {
	client, err := NewClient("ffmpeg", t.TempDir(), WithStarter(fakeStarter([]string{"abc", "def"})))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	stream, err := client.Open(CaptureOptions{VideoDevice: "/dev/video0"})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer stream.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var collected []byte
	for {
		chunk, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next returned error: %v", err)
		}
		collected = append(collected, chunk...)
	}
	if string(collected) != "abcdef" {
		t.Fatalf("unexpected stream contents %q", collected)
	}
}

func TestOpenEnforcesDeviceExclusivity(t *testing.T) {
	lockDir := t.TempDir()
	starter := func(ctx context.Context, binary string, args []string) (io.ReadCloser, func() error, error) {
		pr, _ := io.Pipe()
		return pr, func() error { return nil }, nil
	}

	client, err := NewClient("ffmpeg", lockDir, WithStarter(starter))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	first, err := client.Open(CaptureOptions{VideoDevice: "/dev/video0"})
	if err != nil {
		t.Fatalf("first Open returned error: %v", err)
	}

	if _, err := client.Open(CaptureOptions{VideoDevice: "/dev/video0"}); !errors.Is(err, services.ErrDeviceUnavailable) {
		t.Fatalf("expected ErrDeviceUnavailable for second open, got %v", err)
	}

	if err := first.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	second, err := client.Open(CaptureOptions{VideoDevice: "/dev/video0"})
	if err != nil {
		t.Fatalf("expected reopen after release, got %v", err)
	}
	_ = second.Close()
}

func TestNextHonorsContext(t *testing.T) {
	starter := func(ctx context.Context, binary string, args []string) (io.ReadCloser, func() error, error) {
		pr, _ := io.Pipe()
		return pr, func() error { return nil }, nil
	}
	client, err := NewClient("ffmpeg", t.TempDir(), WithStarter(starter))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	stream, err := client.Open(CaptureOptions{VideoDevice: "/dev/video0"})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer stream.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := stream.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBuildArgs(t *testing.T) {
	cases := []struct {
		name string
		opts CaptureOptions
		want []string
	}{
		{
			name: "video only",
			opts: CaptureOptions{VideoDevice: "/dev/video0"},
			want: []string{"-hide_banner", "-loglevel", "error", "-f", "v4l2", "-i", "/dev/video0", "-c:v", "libvpx-vp9", "-c:a", "libopus", "-f", "webm", "pipe:1"},
		},
		{
			name: "with audio and cap",
			opts: CaptureOptions{VideoDevice: "/dev/video1", AudioDevice: "hw:1", MaxDuration: 3 * time.Minute},
			want: []string{"-hide_banner", "-loglevel", "error", "-f", "v4l2", "-i", "/dev/video1", "-f", "alsa", "-i", "hw:1", "-t", "180", "-c:v", "libvpx-vp9", "-c:a", "libopus", "-f", "webm", "pipe:1"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := buildArgs(tc.opts)
			if len(got) != len(tc.want) {
				t.Fatalf("args mismatch:\n got %v\nwant %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("arg %d: got %q, want %q (full: %v)", i, got[i], tc.want[i], got)
				}
			}
		})
	}
}
