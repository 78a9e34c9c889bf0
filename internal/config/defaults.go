package config

const (
	defaultSettingsDir   = "~/.lamin"
	defaultCacheDir      = "~/.cache/lamindb"
	defaultLogFormat     = "console"
	defaultLogLevel      = "warn"
	defaultHubURL        = "https://lamin.ai"
	defaultS3Region      = "us-east-1"
	defaultStorageRetry  = 3
	defaultConfigRelPath = "~/.config/lamin/config.toml"
	projectConfigName    = "lamin.toml"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			SettingsDir: defaultSettingsDir,
			CacheDir:    defaultCacheDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Storage: Storage{
			S3Region:   defaultS3Region,
			MaxRetries: defaultStorageRetry,
		},
		Hub: Hub{
			URL: defaultHubURL,
		},
	}
}
