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
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeHub()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("LAMIN_SETTINGS_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.SettingsDir = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("LAMIN_CACHE_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.CacheDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.SettingsDir) == "" {
		c.Paths.SettingsDir = defaultSettingsDir
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}

	var err error
	if c.Paths.SettingsDir, err = expandPath(c.Paths.SettingsDir); err != nil {
		return fmt.Errorf("paths.settings_dir: %w", err)
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStorage() error {
	c.Storage.S3Region = strings.TrimSpace(c.Storage.S3Region)
	if c.Storage.S3Region == "" {
		if value, ok := os.LookupEnv("AWS_REGION"); ok && strings.TrimSpace(value) != "" {
			c.Storage.S3Region = strings.TrimSpace(value)
		} else {
			c.Storage.S3Region = defaultS3Region
		}
	}
	c.Storage.S3Endpoint = strings.TrimSpace(c.Storage.S3Endpoint)
	c.Storage.GCSCredentialsFile = strings.TrimSpace(c.Storage.GCSCredentialsFile)
	c.Storage.GCSEndpoint = strings.TrimSpace(c.Storage.GCSEndpoint)
	if c.Storage.GCSCredentialsFile != "" {
		expanded, err := expandPath(c.Storage.GCSCredentialsFile)
		if err != nil {
			return fmt.Errorf("storage.gcs_credentials_file: %w", err)
		}
		c.Storage.GCSCredentialsFile = expanded
	}
	if c.Storage.MaxRetries <= 0 {
		c.Storage.MaxRetries = defaultStorageRetry
	}
	return nil
}

func (c *Config) normalizeHub() {
	c.Hub.URL = strings.TrimRight(strings.TrimSpace(c.Hub.URL), "/")
	if c.Hub.URL == "" {
		c.Hub.URL = defaultHubURL
	}
}

func (c *Config) normalizeLogging() {
	if value, ok := os.LookupEnv("LAMIN_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
