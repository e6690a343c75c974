package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeCapture()
	c.normalizeWorkflow()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TokenPath) == "" {
		c.Paths.TokenPath = defaultTokenPath
	}
	if c.Paths.TokenPath, err = expandPath(c.Paths.TokenPath); err != nil {
		return fmt.Errorf("paths.token_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI() {
	if c.API.BaseURL == "" {
		if value, ok := os.LookupEnv("PRESENCE_API_URL"); ok {
			c.API.BaseURL = value
		}
	}
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.RequestTimeout <= 0 {
		c.API.RequestTimeout = defaultAPIRequestTimeout
	}
}

func (c *Config) normalizeCapture() {
	c.Capture.VideoDevice = strings.TrimSpace(c.Capture.VideoDevice)
	if c.Capture.VideoDevice == "" {
		c.Capture.VideoDevice = defaultVideoDevice
	}
	c.Capture.AudioDevice = strings.TrimSpace(c.Capture.AudioDevice)
	if c.Capture.AssessmentMaxSeconds <= 0 {
		c.Capture.AssessmentMaxSeconds = defaultAssessmentMaxSeconds
	}
	if c.Capture.ScenarioMaxSeconds <= 0 {
		c.Capture.ScenarioMaxSeconds = defaultScenarioMaxSeconds
	}
	if c.Capture.MinFreeGiB < 0 {
		c.Capture.MinFreeGiB = 0
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.JobPollIntervalMS <= 0 {
		c.Workflow.JobPollIntervalMS = defaultJobPollIntervalMS
	}
	if c.Workflow.JobPollTimeoutSeconds < 0 {
		c.Workflow.JobPollTimeoutSeconds = 0
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
