// Package notifications delivers operational events via pluggable notifiers.
//
// The default implementation posts JSON payloads to the webhook URL configured
// in config.toml and gracefully degrades to a no-op when notifications are
// disabled. Enumerated event types cover channel lifecycle, evictions, and
// delivery failures so engine code can emit consistent messages without
// duplicating HTTP glue.
//
// Extend this package if you need alternative transports; engine code depends
// only on the simple Service interface.
package notifications
