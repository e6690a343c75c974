package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("PRESENCE_API_URL", "https://api.example.com")

	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %q, got %q", path, resolved)
	}
	if cfg.Capture.AssessmentMaxSeconds != 240 {
		t.Fatalf("expected assessment cap default 240, got %d", cfg.Capture.AssessmentMaxSeconds)
	}
	if cfg.Capture.ScenarioMaxSeconds != 180 {
		t.Fatalf("expected scenario cap default 180, got %d", cfg.Capture.ScenarioMaxSeconds)
	}
	if cfg.Workflow.JobPollIntervalMS != 2000 {
		t.Fatalf("expected poll interval default 2000, got %d", cfg.Workflow.JobPollIntervalMS)
	}
	if cfg.API.BaseURL != "https://api.example.com" {
		t.Fatalf("expected base URL from env, got %q", cfg.API.BaseURL)
	}
}

func TestLoadParsesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[api]
base_url = "https://app.example.com/"

[capture]
video_device = "/dev/video2"
assessment_max_seconds = 60

[workflow]
job_poll_interval_ms = 500
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.API.BaseURL != "https://app.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.API.BaseURL)
	}
	if cfg.Capture.VideoDevice != "/dev/video2" {
		t.Fatalf("unexpected video device %q", cfg.Capture.VideoDevice)
	}
	if cfg.Capture.AssessmentMaxSeconds != 60 {
		t.Fatalf("unexpected assessment cap %d", cfg.Capture.AssessmentMaxSeconds)
	}
	if cfg.Workflow.JobPollIntervalMS != 500 {
		t.Fatalf("unexpected poll interval %d", cfg.Workflow.JobPollIntervalMS)
	}
	if cfg.Capture.ScenarioMaxSeconds != 180 {
		t.Fatalf("expected scenario cap default preserved, got %d", cfg.Capture.ScenarioMaxSeconds)
	}
}

func TestLoadRequiresBaseURL(t *testing.T) {
	t.Setenv("PRESENCE_API_URL", "")

	path := filepath.Join(t.TempDir(), "config.toml")
	if _, _, _, err := Load(path); err == nil {
		t.Fatal("expected error for missing api.base_url")
	} else if !strings.Contains(err.Error(), "api.base_url") {
		t.Fatalf("expected base_url error, got %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"relative url", func(c *Config) { c.API.BaseURL = "app.example.com" }, "api.base_url"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"zero poll", func(c *Config) { c.Workflow.JobPollIntervalMS = 0 }, "job_poll_interval_ms"},
		{"no device", func(c *Config) { c.Capture.VideoDevice = "" }, "video_device"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.API.BaseURL = "https://app.example.com"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in error, got %v", tc.want, err)
			}
		})
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteSample(path); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := WriteSample(path); err == nil {
		t.Fatal("expected error overwriting existing config")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[workflow]") {
		t.Fatal("sample config missing workflow section")
	}
}
