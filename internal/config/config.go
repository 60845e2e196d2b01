package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind"`
}

// Collab contains timing and delivery settings for the collaboration engine.
type Collab struct {
	// HeartbeatInterval is the expected client heartbeat cadence in seconds.
	// A presence is evicted after missing three consecutive beats.
	HeartbeatInterval int `toml:"heartbeat_interval"`
	// ChannelGracePeriod is how long an empty channel is kept warm, in seconds.
	ChannelGracePeriod int `toml:"channel_grace_period"`
	// SubscriberBuffer is the per-subscriber outbound event buffer size.
	SubscriberBuffer int `toml:"subscriber_buffer"`
	// DeliveryRetries bounds enqueue attempts to a backed-up subscriber.
	DeliveryRetries int `toml:"delivery_retries"`
	// DeliveryRetryDelay is the pause between enqueue attempts in milliseconds.
	DeliveryRetryDelay int `toml:"delivery_retry_delay"`
}

// Relay contains configuration for the optional Redis cross-node relay.
type Relay struct {
	Enabled       bool   `toml:"enabled"`
	Addr          string `toml:"addr"`
	Password      string `toml:"password"`
	DB            int    `toml:"db"`
	ChannelPrefix string `toml:"channel_prefix"`
}

// Notifications contains configuration for webhook notifications.
type Notifications struct {
	WebhookURL        string `toml:"webhook_url"`
	RequestTimeout    int    `toml:"request_timeout"`
	ChannelLifecycle  bool   `toml:"channel_lifecycle"`
	Evictions         bool   `toml:"evictions"`
	DeliveryFailures  bool   `toml:"delivery_failures"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for quill.
//
// Sections by subsystem:
//   - Paths: data/log directories and HTTP API bind address
//   - Collab: heartbeat cadence, channel grace period, delivery budgets
//   - Relay: optional Redis pub/sub bridge for multi-node fan-out
//   - Notifications: webhook settings for operational events
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Collab        Collab        `toml:"collab"`
	Relay         Relay         `toml:"relay"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/quill/config.toml")
}

// SampleConfig returns the embedded sample configuration document.
func SampleConfig() string {
	return sampleConfig
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The second return value
// is the resolved path and the third reports whether a file existed there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("quill.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories when missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DataDir returns the expanded data directory.
func (c *Config) DataDir() string { return c.Paths.DataDir }

// LogDir returns the expanded log directory.
func (c *Config) LogDir() string { return c.Paths.LogDir }

// APIBind returns the HTTP API bind address.
func (c *Config) APIBind() string { return c.Paths.APIBind }

// JournalPath returns the location of the sqlite event journal.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.DataDir, "journal.db")
}

// SocketPath returns the location of the daemon control socket.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.DataDir, "quilld.sock")
}

// LockPath returns the location of the single-instance daemon lock.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "quilld.lock")
}

// HeartbeatInterval returns the expected heartbeat cadence as a duration.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Collab.HeartbeatInterval) * time.Second
}

// EvictionThreshold is the heartbeat age past which a presence is considered
// stale: three missed beats, tolerating two before eviction.
func (c *Config) EvictionThreshold() time.Duration {
	return 3 * c.HeartbeatInterval()
}

// ChannelGracePeriod returns how long an empty channel is kept warm.
func (c *Config) ChannelGracePeriod() time.Duration {
	return time.Duration(c.Collab.ChannelGracePeriod) * time.Second
}

// DeliveryRetryDelay returns the pause between delivery attempts.
func (c *Config) DeliveryRetryDelay() time.Duration {
	return time.Duration(c.Collab.DeliveryRetryDelay) * time.Millisecond
}

func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" || len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if path == "~" {
			return home, nil
		}
		return filepath.Join(home, path[2:]), nil
	}
	return filepath.Abs(path)
}
