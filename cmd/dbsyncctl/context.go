package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"dbsyncctl/internal/apiclient"
	"dbsyncctl/internal/config"
	"dbsyncctl/internal/logging"
)

type commandContext struct {
	apiFlag    *string
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(apiFlag, configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		apiFlag:    apiFlag,
		configFlag: configFlag,
		verbose:    verbose,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.apiFlag != nil {
			if override := strings.TrimSpace(*c.apiFlag); override != "" {
				cfg.API.BaseURL = strings.TrimRight(override, "/")
			}
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// diagnostics returns the command logger. Logs go to the configured file
// unless --verbose routes them to stderr at debug level.
func (c *commandContext) diagnostics() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg := c.configValue()
		var (
			logger *slog.Logger
			err    error
		)
		if c.verbose != nil && *c.verbose {
			format := "console"
			if cfg != nil {
				format = cfg.Logging.Format
			}
			logger, err = logging.New(logging.Options{Level: "debug", Format: format, OutputPaths: []string{"stderr"}})
		} else {
			logger, err = logging.NewFromConfig(cfg, logging.TargetFile)
		}
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

// screenLogger returns a file-only logger for full-screen programs, which
// must not write to the terminal they draw on.
func (c *commandContext) screenLogger() *slog.Logger {
	cfg := c.configValue()
	if cfg == nil {
		return logging.NewNop()
	}
	level := cfg.Logging.Level
	if c.verbose != nil && *c.verbose {
		level = "debug"
	}
	if strings.TrimSpace(cfg.Logging.File) == "" {
		return logging.NewNop()
	}
	logger, err := logging.New(logging.Options{Level: level, Format: cfg.Logging.Format, OutputPaths: []string{cfg.Logging.File}})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

func (c *commandContext) newClient() (*apiclient.Client, error) {
	return c.newClientWithLogger(c.diagnostics())
}

func (c *commandContext) newClientWithLogger(logger *slog.Logger) (*apiclient.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	client, err := apiclient.New(cfg.API.BaseURL, apiclient.Options{
		Timeout: cfg.RequestTimeout(),
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("api client: %w", err)
	}
	return client, nil
}

// commandScope returns the command's context tagged with its name.
func commandScope(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return logging.WithCommand(ctx, cmd.CommandPath())
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
