package config

const (
	defaultInputDir           = "~/.local/share/jsonpress/input"
	defaultOutputDir          = "~/.local/share/jsonpress/output"
	defaultDataDir            = "~/.local/share/jsonpress"
	defaultLogDir             = "~/.local/share/jsonpress/logs"
	defaultOutputFormat       = "csv"
	defaultEmptyLists         = "drop"
	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10
	defaultWorkers            = 1
	defaultIOTimeout          = 30
	defaultRetryMaxAttempts   = 3
	defaultRetryInitialMillis = 500
	defaultRetryMaxMillis     = 10000
	defaultWatchSettleMillis  = 250
	defaultAPIBind            = "127.0.0.1:7343"
	defaultNotifyTimeout      = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InputDir:  defaultInputDir,
			OutputDir: defaultOutputDir,
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
		},
		Flatten: Flatten{
			OutputFormat: defaultOutputFormat,
			EmptyLists:   defaultEmptyLists,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			Workers:            defaultWorkers,
			IOTimeout:          defaultIOTimeout,
			RetryMaxAttempts:   defaultRetryMaxAttempts,
			RetryInitialMillis: defaultRetryInitialMillis,
			RetryMaxMillis:     defaultRetryMaxMillis,
		},
		Watch: Watch{
			Enabled:      true,
			SettleMillis: defaultWatchSettleMillis,
		},
		API: API{
			Enabled: true,
			Bind:    defaultAPIBind,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			JobQueued:      true,
			JobCompleted:   true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
