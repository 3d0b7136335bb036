package config

import (
	"errors"
	"fmt"
	"os"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDownload(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateDownload() error {
	if c.Download.Retries < 0 {
		return errors.New("download.retries must not be negative")
	}
	if c.Download.FragmentRetries < 0 {
		return errors.New("download.fragment_retries must not be negative")
	}
	if c.Download.ConcurrentFragments < 1 {
		return errors.New("download.concurrent_fragments must be at least 1")
	}
	if c.Download.CookiesPath != "" {
		info, err := os.Stat(c.Download.CookiesPath)
		if err != nil {
			return fmt.Errorf("download.cookies_path: %w", err)
		}
		if info.IsDir() {
			return fmt.Errorf("download.cookies_path %q is a directory", c.Download.CookiesPath)
		}
	}
	return nil
}

func (c *Config) validateTools() error {
	if c.Tools.FetchTimeoutSeconds < 0 {
		return errors.New("tools.fetch_timeout_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
