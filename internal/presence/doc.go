// Package presence holds the authoritative in-memory record of who is
// connected to each document channel.
//
// The registry maps channel ID to a set of presences keyed by participant ID,
// guaranteeing at most one live presence per (channel, participant): a rejoin
// replaces the previous record. Each channel carries its own lock so traffic
// on one document never blocks another. Any traffic from a participant (join,
// heartbeat, cursor, update) counts as liveness evidence and refreshes the
// heartbeat timestamp; the liveness monitor evicts what goes quiet.
//
// Display colors are assigned by hashing the participant ID into a fixed
// palette, so the same participant always renders in the same color.
package presence
