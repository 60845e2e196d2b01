package config

const (
	defaultDataDir            = "~/.local/share/quill"
	defaultLogDir             = "~/.local/share/quill/logs"
	defaultAPIBind            = "127.0.0.1:7719"
	defaultHeartbeatInterval  = 5
	defaultChannelGracePeriod = 300
	defaultSubscriberBuffer   = 64
	defaultDeliveryRetries    = 3
	defaultDeliveryRetryDelay = 25
	defaultRelayAddr          = "localhost:6379"
	defaultRelayPrefix        = "quill"
	defaultNotifyTimeout      = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Collab: Collab{
			HeartbeatInterval:  defaultHeartbeatInterval,
			ChannelGracePeriod: defaultChannelGracePeriod,
			SubscriberBuffer:   defaultSubscriberBuffer,
			DeliveryRetries:    defaultDeliveryRetries,
			DeliveryRetryDelay: defaultDeliveryRetryDelay,
		},
		Relay: Relay{
			Enabled:       false,
			Addr:          defaultRelayAddr,
			ChannelPrefix: defaultRelayPrefix,
		},
		Notifications: Notifications{
			RequestTimeout:   defaultNotifyTimeout,
			ChannelLifecycle: true,
			Evictions:        true,
			DeliveryFailures: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
