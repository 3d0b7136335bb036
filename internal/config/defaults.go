package config

const (
	defaultOutputDir           = "~/Downloads"
	defaultLogDir              = "~/.local/share/vget/logs"
	defaultHistoryDB           = "~/.local/share/vget/history.db"
	defaultMergeFormat         = "mp4"
	defaultRetries             = 10
	defaultFragmentRetries     = 10
	defaultConcurrentFragments = 4
	defaultFetchTimeoutSeconds = 120
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			HistoryDB: defaultHistoryDB,
		},
		Download: Download{
			MergeFormat:         defaultMergeFormat,
			Retries:             defaultRetries,
			FragmentRetries:     defaultFragmentRetries,
			ConcurrentFragments: defaultConcurrentFragments,
		},
		Tools: Tools{
			FetchTimeoutSeconds: defaultFetchTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
