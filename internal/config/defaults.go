package config

const (
	defaultStagingDir           = "~/.local/share/presence/staging"
	defaultStateDir             = "~/.local/share/presence/state"
	defaultLogDir               = "~/.local/share/presence/logs"
	defaultTokenPath            = "~/.config/presence/session_token"
	defaultAPIRequestTimeout    = 30
	defaultVideoDevice          = "/dev/video0"
	defaultAssessmentMaxSeconds = 240
	defaultScenarioMaxSeconds   = 180
	defaultCaptureMinFreeGiB    = 1
	defaultJobPollIntervalMS    = 2000
	defaultNtfyRequestTimeout   = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			StateDir:   defaultStateDir,
			LogDir:     defaultLogDir,
			TokenPath:  defaultTokenPath,
		},
		API: API{
			RequestTimeout: defaultAPIRequestTimeout,
		},
		Capture: Capture{
			VideoDevice:          defaultVideoDevice,
			AssessmentMaxSeconds: defaultAssessmentMaxSeconds,
			ScenarioMaxSeconds:   defaultScenarioMaxSeconds,
			MinFreeGiB:           defaultCaptureMinFreeGiB,
		},
		Workflow: Workflow{
			JobPollIntervalMS: defaultJobPollIntervalMS,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
			Completion:     true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
