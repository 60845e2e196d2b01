// Package config loads, normalizes, and validates quill configuration.
//
// Configuration is TOML with one section per subsystem: paths and bind
// addresses, collaboration timing (heartbeat interval, channel grace period,
// delivery budgets), the optional Redis relay, webhook notifications, and log
// output. Load resolves the user config at ~/.config/quill/config.toml,
// falling back to ./quill.toml, and always starts from Default so a missing
// file yields a fully usable single-node setup.
//
// Keep derived values (durations, expanded paths) behind accessor methods so
// callers never re-interpret raw TOML fields.
package config
