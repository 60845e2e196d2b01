package sequence

import (
	"encoding/json"
	"sync"
	"time"
)

// UpdateEvent is the immutable record produced for every accepted submission.
// The payload passes through opaquely; the engine never inspects content.
type UpdateEvent struct {
	ChannelID     string          `json:"channel_id"`
	ElementID     string          `json:"element_id"`
	ParticipantID string          `json:"participant_id"`
	Seq           uint64          `json:"seq"`
	Payload       json.RawMessage `json:"payload"`
	Timestamp     time.Time       `json:"ts"`
}

// Sequencer orders submissions per (channel, element). Not retained beyond
// delivery: it holds counters, never payload history.
type Sequencer struct {
	mu       sync.Mutex
	channels map[string]*channelSeq

	now func() time.Time
}

type channelSeq struct {
	mu       sync.Mutex
	elements map[string]uint64
}

// NewSequencer returns an empty sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{
		channels: make(map[string]*channelSeq),
		now:      time.Now,
	}
}

func (s *Sequencer) channelFor(channelID string) *channelSeq {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs := s.channels[channelID]
	if cs == nil {
		cs = &channelSeq{elements: make(map[string]uint64)}
		s.channels[channelID] = cs
	}
	return cs
}

// Submit assigns the next sequence number for the element and returns the
// resulting event. A submission from a participant who already left is still
// accepted; suppressing the echo is the broadcaster's job.
func (s *Sequencer) Submit(channelID, elementID, participantID string, payload json.RawMessage) UpdateEvent {
	cs := s.channelFor(channelID)

	cs.mu.Lock()
	cs.elements[elementID]++
	seq := cs.elements[elementID]
	cs.mu.Unlock()

	return UpdateEvent{
		ChannelID:     channelID,
		ElementID:     elementID,
		ParticipantID: participantID,
		Seq:           seq,
		Payload:       payload,
		Timestamp:     s.now(),
	}
}

// Head returns the last assigned sequence number for an element, zero when
// the element has never been written.
func (s *Sequencer) Head(channelID, elementID string) uint64 {
	s.mu.Lock()
	cs := s.channels[channelID]
	s.mu.Unlock()
	if cs == nil {
		return 0
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.elements[elementID]
}

// Heads returns a copy of every element counter in the channel.
func (s *Sequencer) Heads(channelID string) map[string]uint64 {
	s.mu.Lock()
	cs := s.channels[channelID]
	s.mu.Unlock()
	if cs == nil {
		return nil
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make(map[string]uint64, len(cs.elements))
	for k, v := range cs.elements {
		out[k] = v
	}
	return out
}

// Release drops all counters for a channel. Called when the presence registry
// prunes an empty channel so sequence state cannot leak.
func (s *Sequencer) Release(channelID string) {
	s.mu.Lock()
	delete(s.channels, channelID)
	s.mu.Unlock()
}
