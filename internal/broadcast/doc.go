// Package broadcast fans presence diffs, cursor moves, and ordered update
// events out to every other subscriber of a document channel.
//
// Delivery is at-least-once and origin-excluded: a sender never receives its
// own event back. Ordered events (presence and updates) flow through a bounded
// per-subscriber queue with a fixed retry budget; when a subscriber stays
// backed up past the budget the event is dropped and a delivery_failed event
// is pushed to the origin's own stream, never to other recipients. Cursor
// positions use a replace-latest slot per sender, so a lagging subscriber only
// ever sees the newest position and stale cursors cannot pile up.
//
// The hub is transport-agnostic; the daemon bridges subscriptions onto
// WebSocket connections, and the relay package mirrors events across nodes.
package broadcast
