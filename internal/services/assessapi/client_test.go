package assessapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"presence/internal/auth"
	"presence/internal/config"
	"presence/internal/logging"
	"presence/internal/media"
	"presence/internal/services"
)

func testClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	cfg := config.Default()
	cfg.API.BaseURL = serverURL
	return NewClient(&cfg, auth.StaticToken("token-123"), logging.NewNop())
}

func TestUploadStreamsMultipartAndReportsProgress(t *testing.T) {
	var gotFilename, gotToken string
	var gotBytes []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/videos/upload" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		gotToken = r.Header.Get("Authorization")
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("read form file: %v", err)
		}
		defer file.Close()
		gotFilename = header.Filename
		gotBytes, _ = io.ReadAll(file)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"video_id": "vid-1"}`)
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	artifact := media.New("recorded-video.webm", "video/webm", []byte(strings.Repeat("x", 1000)))

	var updates []int
	videoID, err := client.Upload(context.Background(), artifact, func(percent int) {
		updates = append(updates, percent)
	})
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if videoID != "vid-1" {
		t.Fatalf("unexpected video id %q", videoID)
	}
	if gotFilename != "recorded-video.webm" {
		t.Fatalf("unexpected filename %q", gotFilename)
	}
	if gotToken != "Bearer token-123" {
		t.Fatalf("unexpected auth header %q", gotToken)
	}
	if len(gotBytes) != 1000 {
		t.Fatalf("server received %d bytes", len(gotBytes))
	}

	if len(updates) == 0 {
		t.Fatal("expected progress updates")
	}
	for i := 1; i < len(updates); i++ {
		if updates[i] < updates[i-1] {
			t.Fatalf("progress regressed: %v", updates)
		}
	}
	if updates[len(updates)-1] != 100 {
		t.Fatalf("final progress update must be 100, got %v", updates)
	}
}

func TestUploadRejectsOversizedArtifactBeforeSending(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	// Sparse file just past the ceiling.
	path := filepath.Join(t.TempDir(), "huge.webm")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	if err := file.Truncate(media.MaxUploadBytes + 1); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	file.Close()

	artifact, err := media.FromFile(path)
	if err != nil {
		t.Fatalf("FromFile returned error: %v", err)
	}

	client := testClient(t, server.URL)
	_, err = client.Upload(context.Background(), artifact, nil)
	if !errors.Is(err, services.ErrArtifactTooLarge) {
		t.Fatalf("expected ErrArtifactTooLarge, got %v", err)
	}
	if requests != 0 {
		t.Fatalf("expected no network calls, server saw %d", requests)
	}
}

func TestUploadPropagatesServerDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"detail": "Video size exceeds 200MB limit"}`)
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	_, err := client.Upload(context.Background(), media.New("a.webm", "", []byte("x")), nil)
	if !errors.Is(err, services.ErrServerRejected) {
		t.Fatalf("expected ErrServerRejected, got %v", err)
	}
	if !strings.Contains(err.Error(), "Video size exceeds 200MB limit") {
		t.Fatalf("expected server detail in error, got %v", err)
	}
}

func TestUploadTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := testClient(t, server.URL)
	_, err := client.Upload(context.Background(), media.New("a.webm", "", []byte("x")), nil)
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestStartProcessing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/videos/vid-1/process" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"job_id": "job-9"}`)
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	jobID, err := client.StartProcessing(context.Background(), "vid-1")
	if err != nil {
		t.Fatalf("StartProcessing returned error: %v", err)
	}
	if jobID != "job-9" {
		t.Fatalf("unexpected job id %q", jobID)
	}
}

func TestStartProcessingRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"detail": "Video not found"}`)
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	_, err := client.StartProcessing(context.Background(), "missing")
	if !errors.Is(err, services.ErrAnalysisStartFailed) {
		t.Fatalf("expected ErrAnalysisStartFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "Video not found") {
		t.Fatalf("expected server detail, got %v", err)
	}
}

func TestJobStatusParsesSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/jobs/job-9/status" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"status": "processing", "progress": 55.5, "current_step": "Scoring delivery", "report_id": ""}`)
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	snapshot, err := client.JobStatus(context.Background(), "job-9")
	if err != nil {
		t.Fatalf("JobStatus returned error: %v", err)
	}
	if snapshot.State != JobRunning {
		t.Fatalf("expected running state, got %q", snapshot.State)
	}
	if snapshot.Progress != 55.5 {
		t.Fatalf("unexpected progress %v", snapshot.Progress)
	}
	if snapshot.CurrentStep != "Scoring delivery" {
		t.Fatalf("unexpected step %q", snapshot.CurrentStep)
	}
	if snapshot.JobID != "job-9" {
		t.Fatalf("unexpected job id %q", snapshot.JobID)
	}
}

func TestNormalizeState(t *testing.T) {
	cases := map[string]JobState{
		"pending":    JobQueued,
		"queued":     JobQueued,
		"processing": JobRunning,
		"running":    JobRunning,
		"completed":  JobCompleted,
		"failed":     JobFailed,
		"mystery":    JobRunning,
	}
	for input, want := range cases {
		if got := normalizeState(input); got != want {
			t.Fatalf("normalizeState(%q) = %q, want %q", input, got, want)
		}
	}
}
