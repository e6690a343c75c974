package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.BaseURL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/presence/config.toml"
		}
		return fmt.Errorf("api.base_url is required. Set PRESENCE_API_URL env var or edit %s (create with 'presence config init')", defaultPath)
	}
	parsed, err := url.Parse(c.API.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL, got %q", c.API.BaseURL)
	}
	return nil
}

func (c *Config) validateCapture() error {
	if strings.TrimSpace(c.Capture.VideoDevice) == "" {
		return errors.New("capture.video_device must be set")
	}
	if c.Capture.AssessmentMaxSeconds <= 0 {
		return errors.New("capture.assessment_max_seconds must be positive")
	}
	if c.Capture.ScenarioMaxSeconds <= 0 {
		return errors.New("capture.scenario_max_seconds must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.JobPollIntervalMS <= 0 {
		return errors.New("workflow.job_poll_interval_ms must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
