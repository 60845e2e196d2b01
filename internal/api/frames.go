package api

import "encoding/json"

// Client frame types accepted on the WebSocket.
const (
	FrameHeartbeat = "heartbeat"
	FrameCursor    = "cursor"
	FrameUpdate    = "update"
	FrameLeave     = "leave"
)

// Server frame types pushed to the WebSocket.
const (
	FrameSnapshot       = "snapshot"
	FramePresenceJoined = "presence_joined"
	FramePresenceLeft   = "presence_left"
	FrameCursorMoved    = "cursor_moved"
	FrameUpdateApplied  = "update_applied"
	FrameDeliveryFailed = "delivery_failed"
	FrameError          = "error"
)

// ClientFrame is one message from an editor client. Type selects which fields
// are meaningful.
type ClientFrame struct {
	Type      string          `json:"type"`
	ElementID string          `json:"elementId,omitempty"`
	Offset    int             `json:"offset,omitempty"`
	// Clear drops the cursor locator instead of moving it.
	Clear   bool            `json:"clear,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerFrame is one message pushed to an editor client. Exactly one payload
// field is set, matching Type; Snapshot frames carry Self and Presences.
type ServerFrame struct {
	Type      string `json:"type"`
	ChannelID string `json:"channelId,omitempty"`

	Self      *PresenceInfo  `json:"self,omitempty"`
	Presences []PresenceInfo `json:"presences,omitempty"`

	Presence *PresenceInfo        `json:"presence,omitempty"`
	Cursor   *CursorMovedInfo     `json:"cursor,omitempty"`
	Update   *UpdateInfo          `json:"update,omitempty"`
	Failure  *DeliveryFailureInfo `json:"failure,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// CursorMovedInfo carries a cursor move on the wire. A nil Cursor means the
// participant cleared its locator.
type CursorMovedInfo struct {
	ParticipantID string      `json:"participantId"`
	Cursor        *CursorInfo `json:"cursor"`
}
