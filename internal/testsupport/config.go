package testsupport

import (
	"path/filepath"
	"testing"

	"quill/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t   testing.TB
	cfg *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"

	builder := &configBuilder{
		t:   t,
		cfg: &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithHeartbeatInterval overrides the heartbeat cadence in seconds.
func WithHeartbeatInterval(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Collab.HeartbeatInterval = seconds
	}
}

// WithChannelGracePeriod overrides the empty-channel grace period in seconds.
func WithChannelGracePeriod(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Collab.ChannelGracePeriod = seconds
	}
}

// WithSubscriberBuffer overrides the per-subscriber event buffer size.
func WithSubscriberBuffer(size int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Collab.SubscriberBuffer = size
	}
}

// WithWebhook points notifications at the provided URL.
func WithWebhook(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.WebhookURL = url
	}
}
