package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate checks configuration invariants that normalize cannot repair.
func (c *Config) Validate() error {
	if c.Paths.DataDir == "" {
		return fmt.Errorf("paths.data_dir is required")
	}
	if c.Paths.LogDir == "" {
		return fmt.Errorf("paths.log_dir is required")
	}
	if bind := c.Paths.APIBind; bind != "" {
		if _, _, err := net.SplitHostPort(bind); err != nil {
			return fmt.Errorf("paths.api_bind %q: %w", bind, err)
		}
	}

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

	if c.Relay.Enabled {
		if _, _, err := net.SplitHostPort(c.Relay.Addr); err != nil {
			return fmt.Errorf("relay.addr %q: %w", c.Relay.Addr, err)
		}
		if c.Relay.ChannelPrefix == "" {
			return fmt.Errorf("relay.channel_prefix is required when the relay is enabled")
		}
	}

	if raw := c.Notifications.WebhookURL; raw != "" {
		parsed, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("notifications.webhook_url: %w", err)
		}
		if !strings.HasPrefix(parsed.Scheme, "http") {
			return fmt.Errorf("notifications.webhook_url: unsupported scheme %q", parsed.Scheme)
		}
	}
	return nil
}
