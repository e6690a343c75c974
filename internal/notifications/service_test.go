package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"presence/internal/config"
	"presence/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyAssessmentCompleted(context.Background(), "r1"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	var gotTitle, gotTags, gotPriority, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("Title")
		gotTags = r.Header.Get("Tags")
		gotPriority = r.Header.Get("Priority")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)

	if err := svc.NotifyAssessmentCompleted(context.Background(), "r1"); err != nil {
		t.Fatalf("notify completed: %v", err)
	}
	if gotTitle != "Presence - Assessment Complete" {
		t.Fatalf("unexpected title %q", gotTitle)
	}
	if gotBody != "Report ready: r1" {
		t.Fatalf("unexpected body %q", gotBody)
	}
	if gotTags != "presence,assessment,completed" {
		t.Fatalf("unexpected tags %q", gotTags)
	}
	if gotPriority != "high" {
		t.Fatalf("unexpected priority %q", gotPriority)
	}

	if err := svc.NotifyAssessmentFailed(context.Background(), errors.New("decode error"), "processing"); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if gotTitle != "Presence - Error" {
		t.Fatalf("unexpected title %q", gotTitle)
	}
	if gotBody != "Assessment failed during processing: decode error" {
		t.Fatalf("unexpected body %q", gotBody)
	}
}

func TestNtfyServiceHonorsToggles(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Completion = false
	cfg.Notifications.Errors = false
	svc := notifications.NewService(&cfg)

	if err := svc.NotifyAssessmentCompleted(context.Background(), "r1"); err != nil {
		t.Fatalf("notify completed: %v", err)
	}
	if err := svc.NotifyAssessmentFailed(context.Background(), errors.New("boom"), ""); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if requests != 0 {
		t.Fatalf("disabled notifications must not send, saw %d requests", requests)
	}
}

func TestNtfyServiceSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)

	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
