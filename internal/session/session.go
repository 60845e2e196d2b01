package session

import (
	"encoding/json"
	"errors"
	"sync/atomic"

	"quill/internal/broadcast"
	"quill/internal/presence"
	"quill/internal/sequence"
)

// ErrSessionNotActive is returned for operations on a handle that has left or
// been evicted. The caller must rejoin to obtain a fresh session.
var ErrSessionNotActive = errors.New("session not active")

// State tracks a session handle through its lifecycle. Left and Evicted are
// terminal and absorbing.
type State int32

const (
	StateJoining State = iota
	StateActive
	StateLeft
	StateEvicted
)

func (s State) String() string {
	switch s {
	case StateJoining:
		return "joining"
	case StateActive:
		return "active"
	case StateLeft:
		return "left"
	case StateEvicted:
		return "evicted"
	default:
		return "unknown"
	}
}

// Session is the handle an attached client drives. One per successful Join;
// a rejoin by the same participant produces a fresh handle and retires the
// old one.
type Session struct {
	id            string
	channelID     string
	participantID string

	engine *Engine
	sub    *broadcast.Subscription
	self   presence.Presence
	roster []presence.Presence

	state atomic.Int32
}

// ID returns the unique session identifier.
func (s *Session) ID() string { return s.id }

// ChannelID returns the channel this session is attached to.
func (s *Session) ChannelID() string { return s.channelID }

// ParticipantID returns the owning participant.
func (s *Session) ParticipantID() string { return s.participantID }

// Self returns the presence created for this session at join time.
func (s *Session) Self() presence.Presence { return s.self }

// Roster returns the channel snapshot captured at join time, joiner included,
// ordered by join time.
func (s *Session) Roster() []presence.Presence {
	out := make([]presence.Presence, len(s.roster))
	copy(out, s.roster)
	return out
}

// State reports the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Events exposes the inbound stream of channel events. The stream is closed
// once the session leaves or is evicted; no events are delivered after that.
func (s *Session) Events() <-chan broadcast.Event { return s.sub.Events() }

// Heartbeat refreshes liveness. Clients call it on a fixed cadence; missing
// three consecutive beats triggers eviction.
func (s *Session) Heartbeat() error { return s.engine.heartbeat(s) }

// UpdateCursor replaces this participant's cursor locator and fans the move
// out to other participants. A nil cursor clears the locator.
func (s *Session) UpdateCursor(cursor *presence.Cursor) error {
	return s.engine.updateCursor(s, cursor)
}

// SubmitUpdate sequences a content update for one element and broadcasts it
// to all other participants. Last submission wins per element.
func (s *Session) SubmitUpdate(elementID string, payload json.RawMessage) (sequence.UpdateEvent, error) {
	return s.engine.submitUpdate(s, elementID, payload)
}

// Leave detaches the session. Idempotent and safe from teardown paths;
// calling it on an already-terminal handle is a no-op.
func (s *Session) Leave() { s.engine.leave(s) }

// terminate moves the session into a terminal state. It reports false when
// the session was already terminal.
func (s *Session) terminate(to State) bool {
	for {
		cur := State(s.state.Load())
		if cur == StateLeft || cur == StateEvicted {
			return false
		}
		if s.state.CompareAndSwap(int32(cur), int32(to)) {
			return true
		}
	}
}

// expire retires a handle superseded by a rejoin: the stream closes but no
// left diff is published, since the presence was replaced rather than removed.
func (s *Session) expire() {
	if s.terminate(StateLeft) {
		s.sub.Close()
	}
}
