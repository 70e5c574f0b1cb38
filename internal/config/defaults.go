package config

const (
	defaultConfigPath                = "~/.config/dbsyncctl/config.toml"
	projectConfigName                = "dbsyncctl.toml"
	defaultAPIBaseURL                = "http://127.0.0.1:5000"
	defaultRequestTimeoutSeconds     = 30
	defaultStatusPollIntervalSeconds = 5
	defaultReconnectDelayMillis      = 3000
	defaultBufferLines               = 1000
	defaultRecentLines               = 100
	defaultMerginURL                 = "https://app.merginmaps.com"
	defaultDaemonSleepTime           = 10
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
	defaultLogFile                   = "~/.local/state/dbsyncctl/dbsyncctl.log"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		API: API{
			BaseURL:               defaultAPIBaseURL,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
		},
		Console: Console{
			StatusPollIntervalSeconds: defaultStatusPollIntervalSeconds,
			ReconnectDelayMillis:      defaultReconnectDelayMillis,
			BufferLines:               defaultBufferLines,
			RecentLines:               defaultRecentLines,
		},
		Wizard: Wizard{
			DefaultMerginURL: defaultMerginURL,
			DaemonSleepTime:  defaultDaemonSleepTime,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
			File:   defaultLogFile,
		},
	}
}
