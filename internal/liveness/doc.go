// Package liveness evicts participants who disconnected without leaving.
//
// The monitor is the one long-lived background loop in the engine: it sweeps
// the presence registry on the heartbeat cadence, evicting presences whose
// last heartbeat is older than three intervals and pruning channels that have
// sat empty past the grace period. Evictions are reported to a sink so the
// engine can publish the same "participant left" diff an explicit leave
// produces; other participants cannot tell the difference.
package liveness
