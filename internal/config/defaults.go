package config

const (
	defaultStagingDir           = "~/.local/share/airtrack/staging"
	defaultLogDir               = "~/.local/share/airtrack/logs"
	defaultPrefsPath            = "~/.config/airtrack/prefs.json"
	defaultAPIBind              = "127.0.0.1:7512"
	defaultTrafficTimeout       = 30
	defaultCaptureBinary        = "arecord"
	defaultSampleRate           = 48000
	defaultChannels             = 1
	defaultChunkMillis          = 250
	defaultMinFreeBytes         = int64(256) << 20
	defaultPingInterval         = 25
	defaultReconnectBaseSeconds = 1
	defaultReconnectMaxSeconds  = 30
	defaultReconnectAttempts    = 10
	defaultUploadPollInterval   = 5
	defaultUploadRetryInterval  = 30
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
			PrefsPath:  defaultPrefsPath,
			APIBind:    defaultAPIBind,
		},
		Traffic: Traffic{
			RequestTimeout: defaultTrafficTimeout,
		},
		Collaboration: Collaboration{
			PingInterval:         defaultPingInterval,
			ReconnectBaseSeconds: defaultReconnectBaseSeconds,
			ReconnectMaxSeconds:  defaultReconnectMaxSeconds,
			ReconnectAttempts:    defaultReconnectAttempts,
		},
		Capture: Capture{
			Binary:       defaultCaptureBinary,
			SampleRate:   defaultSampleRate,
			Channels:     defaultChannels,
			ChunkMillis:  defaultChunkMillis,
			MinFreeBytes: defaultMinFreeBytes,
		},
		Workflow: Workflow{
			UploadPollInterval:  defaultUploadPollInterval,
			UploadRetryInterval: defaultUploadRetryInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
