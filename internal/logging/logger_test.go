package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"presence/internal/services"
)

func TestNewJSONWritesToFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "presence.log")

	logger, err := New(Options{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("upload started", String("video_id", "v1"), Int("percent", 42))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := strings.TrimSpace(string(data))
	var decoded map[string]any
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, line)
	}
	if decoded["msg"] != "upload started" {
		t.Fatalf("unexpected msg: %v", decoded["msg"])
	}
	if decoded["video_id"] != "v1" {
		t.Fatalf("unexpected video_id: %v", decoded["video_id"])
	}
	if decoded["level"] != "info" {
		t.Fatalf("unexpected level: %v", decoded["level"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"unknown": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestWithContextAddsRunFields(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "out.log")
	logger, err := New(Options{Format: "json", OutputPaths: []string{logPath}, ErrorOutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithRunID(context.Background(), "run-1")
	ctx = services.WithPhase(ctx, "uploading")
	WithContext(ctx, logger).Info("progress")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded[FieldRunID] != "run-1" {
		t.Fatalf("missing run id field: %v", decoded)
	}
	if decoded[FieldPhase] != "uploading" {
		t.Fatalf("missing phase field: %v", decoded)
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := NewNop()
	logger.Error("should not panic", Error(nil))
}
