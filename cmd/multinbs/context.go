package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/kenliou45/multinbs/internal/config"
	"github.com/kenliou45/multinbs/internal/logging"
	"github.com/kenliou45/multinbs/internal/runstore"
)

// commandContext lazily loads configuration and the logger so that every
// subcommand shares one resolved view of both.
type commandContext struct {
	configFlag    *string
	logLevelFlag  *string
	logFormatFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag, logFormatFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		logLevelFlag:  logLevelFlag,
		logFormatFlag: logFormatFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, _, _, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

// ensureLogger builds the shared logger, letting --log-level and
// --log-format override the configuration file.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		opts := logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			File:   cfg.Logging.File,
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			opts.Level = *c.logLevelFlag
		}
		if c.logFormatFlag != nil && strings.TrimSpace(*c.logFormatFlag) != "" {
			opts.Format = *c.logFormatFlag
		}
		c.logger, c.loggerErr = logging.New(opts)
	})
	return c.logger, c.loggerErr
}

// withStore opens the run ledger under the configured data directory for the
// duration of fn.
func (c *commandContext) withStore(fn func(*runstore.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := runstore.Open(cfg.Paths.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// delimiter returns the configured input field separator, defaulting to tab.
func (c *commandContext) delimiter() string {
	cfg, err := c.ensureConfig()
	if err != nil || cfg.Paths.Delimiter == "" {
		return "\t"
	}
	return cfg.Paths.Delimiter
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for cur := cmd; cur != nil; cur = cur.Parent() {
		if cur.Annotations != nil && cur.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
