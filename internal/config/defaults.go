package config

const (
	defaultDataDir             = "~/.local/share/voiceforge"
	defaultGeneratedDir        = "~/.local/share/voiceforge/generated"
	defaultTranscriptsDir      = "~/.local/share/voiceforge/transcripts"
	defaultLogDir              = "~/.local/share/voiceforge/logs"
	defaultAPIBind             = "127.0.0.1:7519"
	defaultMixSampleRate       = 44100
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultProviderTimeout     = 30.0
	defaultProviderInterval    = 2.0
	defaultProviderPollTimeout = 180.0
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:        defaultDataDir,
			GeneratedDir:   defaultGeneratedDir,
			TranscriptsDir: defaultTranscriptsDir,
			LogDir:         defaultLogDir,
			APIBind:        defaultAPIBind,
		},
		Media: Media{
			MixSampleRate: defaultMixSampleRate,
		},
		Providers: Providers{
			TimeoutSeconds:      defaultProviderTimeout,
			PollIntervalSeconds: defaultProviderInterval,
			PollTimeoutSeconds:  defaultProviderPollTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
