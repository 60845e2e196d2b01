package broadcast

import (
	"errors"

	"quill/internal/presence"
	"quill/internal/sequence"
)

// ErrDeliveryFailed marks an event dropped after the retry budget. It is
// logged and signalled to the sender; it never fails the sender's call.
var ErrDeliveryFailed = errors.New("delivery failed")

// Kind discriminates the event types carried by a subscription stream.
type Kind string

const (
	KindPresenceJoined Kind = "presence_joined"
	KindPresenceLeft   Kind = "presence_left"
	KindCursorMoved    Kind = "cursor_moved"
	KindUpdateApplied  Kind = "update_applied"
	KindDeliveryFailed Kind = "delivery_failed"
)

// CursorEvent is ephemeral: superseded by the next cursor move from the same
// participant and never queued. A nil Cursor means the caret was cleared.
type CursorEvent struct {
	ChannelID     string           `json:"channel_id"`
	ParticipantID string           `json:"participant_id"`
	Cursor        *presence.Cursor `json:"cursor"`
}

// DeliveryFailure describes an event dropped for one recipient.
type DeliveryFailure struct {
	ChannelID   string `json:"channel_id"`
	RecipientID string `json:"recipient_id"`
	Dropped     Kind   `json:"dropped"`
	ElementID   string `json:"element_id,omitempty"`
	Seq         uint64 `json:"seq,omitempty"`
}

// Event is one record on a subscription stream. Exactly one payload field is
// set, matching Kind.
type Event struct {
	Kind      Kind   `json:"kind"`
	ChannelID string `json:"channel_id"`
	// Origin is the participant the event came from. Deliveries skip every
	// subscription owned by the origin.
	Origin string `json:"origin,omitempty"`
	// Remote marks events injected by the cross-node relay so they are not
	// mirrored back out.
	Remote bool `json:"-"`

	Presence *presence.Presence    `json:"presence,omitempty"`
	Cursor   *CursorEvent          `json:"cursor,omitempty"`
	Update   *sequence.UpdateEvent `json:"update,omitempty"`
	Failure  *DeliveryFailure      `json:"failure,omitempty"`
}

// PresenceJoined builds a join diff.
func PresenceJoined(channelID string, p presence.Presence) Event {
	return Event{Kind: KindPresenceJoined, ChannelID: channelID, Origin: p.ParticipantID, Presence: &p}
}

// PresenceLeft builds a leave/eviction diff. Graceful leave and eviction are
// indistinguishable to recipients.
func PresenceLeft(channelID string, p presence.Presence) Event {
	return Event{Kind: KindPresenceLeft, ChannelID: channelID, Origin: p.ParticipantID, Presence: &p}
}

// CursorMoved builds a cursor diff.
func CursorMoved(evt CursorEvent) Event {
	return Event{Kind: KindCursorMoved, ChannelID: evt.ChannelID, Origin: evt.ParticipantID, Cursor: &evt}
}

// UpdateApplied wraps a sequenced content update.
func UpdateApplied(evt sequence.UpdateEvent) Event {
	return Event{Kind: KindUpdateApplied, ChannelID: evt.ChannelID, Origin: evt.ParticipantID, Update: &evt}
}
