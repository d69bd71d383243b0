package config

const (
	defaultRecordsDir           = "~/.local/share/reelay/records"
	defaultLogDir               = "~/.local/share/reelay/logs"
	defaultGraphBaseURL         = "https://graph.instagram.com/v21.0"
	defaultProcessingTimeout    = 300
	defaultPollInterval         = 10
	defaultTimezone             = "Europe/Paris"
	defaultLeadHours            = 24
	defaultCleanupRetentionDays = 30
	defaultNotifyRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			RecordsDir: defaultRecordsDir,
			LogDir:     defaultLogDir,
		},
		Instagram: Instagram{
			BaseURL:           defaultGraphBaseURL,
			ProcessingTimeout: defaultProcessingTimeout,
			PollInterval:      defaultPollInterval,
		},
		Scheduling: Scheduling{
			Timezone:             defaultTimezone,
			DefaultLeadHours:     defaultLeadHours,
			CleanupRetentionDays: defaultCleanupRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Posts:          true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
