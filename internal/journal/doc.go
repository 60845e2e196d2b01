// Package journal persists the engine's operational event history.
//
// Joins, leaves, evictions, channel prunes, and delivery failures are
// appended to a SQLite database so the CLI and HTTP API can answer "what
// happened" after the fact. The journal never stores document content:
// update payloads pass through the engine opaquely and are counted, not
// recorded.
package journal
