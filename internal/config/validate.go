package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"dbsyncctl/internal/logbuffer"
)

const (
	// minReconnectDelayMillis keeps a dead stream from being redialed in a
	// tight loop while the daemon still reports running.
	minReconnectDelayMillis      = 500
	maxStatusPollIntervalSeconds = 60
	maxBufferLines               = logbuffer.DefaultCapacity
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"api.request_timeout_seconds":          c.API.RequestTimeoutSeconds,
		"console.status_poll_interval_seconds": c.Console.StatusPollIntervalSeconds,
		"console.reconnect_delay_ms":           c.Console.ReconnectDelayMillis,
		"console.buffer_lines":                 c.Console.BufferLines,
		"wizard.daemon_sleep_time":             c.Wizard.DaemonSleepTime,
	}); err != nil {
		return err
	}
	if c.Console.BufferLines > maxBufferLines {
		return fmt.Errorf("console.buffer_lines must not exceed %d", maxBufferLines)
	}
	if c.Console.ReconnectDelayMillis < minReconnectDelayMillis {
		return fmt.Errorf("console.reconnect_delay_ms must be at least %d", minReconnectDelayMillis)
	}
	if c.Console.StatusPollIntervalSeconds > maxStatusPollIntervalSeconds {
		return fmt.Errorf("console.status_poll_interval_seconds must not exceed %d", maxStatusPollIntervalSeconds)
	}
	if c.Console.RecentLines < 0 {
		return errors.New("console.recent_lines must be >= 0")
	}
	if c.Console.RecentLines > c.Console.BufferLines {
		return errors.New("console.recent_lines must not exceed console.buffer_lines")
	}
	return c.validateLogging()
}

func (c *Config) validateAPI() error {
	parsed, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("api.base_url must use http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("api.base_url must include a host")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	if strings.TrimSpace(c.Logging.File) == "" {
		return errors.New("logging.file must be set")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
