// Package daemon coordinates the long-running quilld process and its
// integration points.
//
// It wires configuration, the session engine, the liveness monitor, the
// optional Redis relay, and the HTTP/WebSocket server into a single lifecycle
// with flock-based locking to prevent multiple instances. The daemon exposes
// channel inspection helpers for the IPC layer and owns the notifications
// emitted on start and stop.
//
// Keep orchestration logic here: collaboration semantics live in the session
// engine while the daemon focuses on startup, shutdown, and high level
// coordination.
package daemon
