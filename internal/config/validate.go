package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTraffic(); err != nil {
		return err
	}
	if err := c.validateCollaboration(); err != nil {
		return err
	}
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTraffic() error {
	if c.Traffic.BaseURL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/airtrack/config.toml"
		}
		return fmt.Errorf("traffic.base_url is required. Edit %s (create with 'airtrack config init')", defaultPath)
	}
	parsed, err := url.Parse(c.Traffic.BaseURL)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("traffic.base_url %q is not a valid URL", c.Traffic.BaseURL)
	}
	switch parsed.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("traffic.base_url must use http or https, got %q", parsed.Scheme)
	}
	return nil
}

func (c *Config) validateCollaboration() error {
	if c.Collaboration.URL == "" {
		return nil
	}
	parsed, err := url.Parse(c.Collaboration.URL)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("collaboration.url %q is not a valid URL", c.Collaboration.URL)
	}
	switch parsed.Scheme {
	case "ws", "wss":
	default:
		return fmt.Errorf("collaboration.url must use ws or wss, got %q", parsed.Scheme)
	}
	if c.Collaboration.ReconnectMaxSeconds < c.Collaboration.ReconnectBaseSeconds {
		return errors.New("collaboration.reconnect_max_seconds must be >= reconnect_base_seconds")
	}
	return nil
}

func (c *Config) validateCapture() error {
	if strings.ContainsAny(c.Capture.Binary, " \t") {
		return fmt.Errorf("capture.binary %q must be a bare executable name or path", c.Capture.Binary)
	}
	if c.Capture.Channels > 2 {
		return fmt.Errorf("capture.channels must be 1 or 2, got %d", c.Capture.Channels)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
