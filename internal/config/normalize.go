package config

import "strings"

// normalize expands path fields and fills omitted values back to defaults so
// validation only ever sees complete configuration.
func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(valueOr(c.Paths.DataDir, defaultDataDir)); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(valueOr(c.Paths.LogDir, defaultLogDir)); err != nil {
		return err
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)

	if c.Collab.HeartbeatInterval <= 0 {
		c.Collab.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Collab.ChannelGracePeriod <= 0 {
		c.Collab.ChannelGracePeriod = defaultChannelGracePeriod
	}
	if c.Collab.SubscriberBuffer <= 0 {
		c.Collab.SubscriberBuffer = defaultSubscriberBuffer
	}
	if c.Collab.DeliveryRetries <= 0 {
		c.Collab.DeliveryRetries = defaultDeliveryRetries
	}
	if c.Collab.DeliveryRetryDelay <= 0 {
		c.Collab.DeliveryRetryDelay = defaultDeliveryRetryDelay
	}

	c.Relay.Addr = strings.TrimSpace(valueOr(c.Relay.Addr, defaultRelayAddr))
	c.Relay.ChannelPrefix = strings.TrimSpace(valueOr(c.Relay.ChannelPrefix, defaultRelayPrefix))

	c.Notifications.WebhookURL = strings.TrimSpace(c.Notifications.WebhookURL)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(valueOr(c.Logging.Format, defaultLogFormat)))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(valueOr(c.Logging.Level, defaultLogLevel)))
	return nil
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
