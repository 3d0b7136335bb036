package main

import (
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"vget/internal/config"
	"vget/internal/history"
	"vget/internal/tools"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// provisioner builds a tool provisioner from the loaded configuration,
// applying overrides only when the user set them.
func (c *commandContext) provisioner() (*tools.Provisioner, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	var opts []tools.Option
	if cfg.Tools.CacheDir != "" {
		opts = append(opts, tools.WithCacheDir(cfg.Tools.CacheDir))
	}
	if cfg.Tools.YtdlpURL != "" {
		opts = append(opts, tools.WithEngineURL(cfg.Tools.YtdlpURL))
	}
	if cfg.Tools.FFmpegURL != "" {
		opts = append(opts, tools.WithMuxerURL(cfg.Tools.FFmpegURL))
	}
	if cfg.Tools.FetchTimeoutSeconds > 0 {
		opts = append(opts, tools.WithFetchTimeout(time.Duration(cfg.Tools.FetchTimeoutSeconds)*time.Second))
	}
	return tools.New(opts...), nil
}

func (c *commandContext) openHistory() (*history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return history.Open(cfg.Paths.HistoryDB)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
