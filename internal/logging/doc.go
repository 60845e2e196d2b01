// Package logging assembles structured slog loggers and formatting helpers
// used across quill components.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and defines the standardized field keys (channel, participant,
// session_id, event_type) so the engine, transport, and control plane emit
// uniformly shaped records. The package also provides a no-op logger for tests
// and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup.
package logging
