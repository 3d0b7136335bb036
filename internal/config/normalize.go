package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeDownload(); err != nil {
		return err
	}
	if err := c.normalizeTools(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.HistoryDB) == "" {
		c.Paths.HistoryDB = defaultHistoryDB
	}
	if c.Paths.HistoryDB, err = expandPath(c.Paths.HistoryDB); err != nil {
		return fmt.Errorf("paths.history_db: %w", err)
	}
	return nil
}

func (c *Config) normalizeDownload() error {
	c.Download.MergeFormat = strings.ToLower(strings.TrimSpace(c.Download.MergeFormat))
	if c.Download.MergeFormat == "" {
		c.Download.MergeFormat = defaultMergeFormat
	}
	if c.Download.Retries == 0 {
		c.Download.Retries = defaultRetries
	}
	if c.Download.FragmentRetries == 0 {
		c.Download.FragmentRetries = defaultFragmentRetries
	}
	if c.Download.ConcurrentFragments == 0 {
		c.Download.ConcurrentFragments = defaultConcurrentFragments
	}
	if strings.TrimSpace(c.Download.CookiesPath) != "" {
		expanded, err := expandPath(c.Download.CookiesPath)
		if err != nil {
			return fmt.Errorf("download.cookies_path: %w", err)
		}
		c.Download.CookiesPath = expanded
	} else {
		c.Download.CookiesPath = ""
	}
	return nil
}

func (c *Config) normalizeTools() error {
	if strings.TrimSpace(c.Tools.CacheDir) != "" {
		expanded, err := expandPath(c.Tools.CacheDir)
		if err != nil {
			return fmt.Errorf("tools.cache_dir: %w", err)
		}
		c.Tools.CacheDir = expanded
	} else {
		c.Tools.CacheDir = ""
	}
	c.Tools.YtdlpURL = strings.TrimSpace(c.Tools.YtdlpURL)
	c.Tools.FFmpegURL = strings.TrimSpace(c.Tools.FFmpegURL)
	if c.Tools.FetchTimeoutSeconds == 0 {
		c.Tools.FetchTimeoutSeconds = defaultFetchTimeoutSeconds
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
