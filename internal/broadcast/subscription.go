package broadcast

import (
	"sort"
	"sync"
)

// Subscription is one participant's outbound event stream for one channel.
type Subscription struct {
	hub           *Hub
	channelID     string
	participantID string

	queue chan Event

	cursorMu  sync.Mutex
	cursors   map[string]CursorEvent
	cursorSig chan struct{}

	out       chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// ChannelID returns the document channel this subscription watches.
func (s *Subscription) ChannelID() string { return s.channelID }

// ParticipantID returns the owning participant.
func (s *Subscription) ParticipantID() string { return s.participantID }

// Events is the stream consumed by the transport. It is closed after Close;
// no event is delivered once Close returns.
func (s *Subscription) Events() <-chan Event { return s.out }

// Close cancels delivery immediately and detaches from the hub. Idempotent
// and safe from teardown paths.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.hub.remove(s)
		close(s.done)
	})
}

func (s *Subscription) setCursor(evt CursorEvent) {
	s.cursorMu.Lock()
	s.cursors[evt.ParticipantID] = evt
	s.cursorMu.Unlock()

	select {
	case s.cursorSig <- struct{}{}:
	default:
	}
}

// takeCursors drains the replace-latest slots, ordered by participant for
// deterministic delivery.
func (s *Subscription) takeCursors() []CursorEvent {
	s.cursorMu.Lock()
	defer s.cursorMu.Unlock()
	if len(s.cursors) == 0 {
		return nil
	}
	out := make([]CursorEvent, 0, len(s.cursors))
	for _, evt := range s.cursors {
		out = append(out, evt)
	}
	s.cursors = make(map[string]CursorEvent)
	sort.Slice(out, func(i, j int) bool { return out[i].ParticipantID < out[j].ParticipantID })
	return out
}

// pump moves queued events and coalesced cursors onto the public stream until
// the subscription closes.
func (s *Subscription) pump() {
	defer close(s.out)
	for {
		select {
		case <-s.done:
			return
		case evt := <-s.queue:
			select {
			case s.out <- evt:
			case <-s.done:
				return
			}
		case <-s.cursorSig:
			for _, cur := range s.takeCursors() {
				select {
				case s.out <- CursorMoved(cur):
				case <-s.done:
					return
				}
			}
		}
	}
}
