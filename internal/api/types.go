package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// CursorInfo locates a participant's caret inside a document element.
type CursorInfo struct {
	ElementID string `json:"elementId"`
	Offset    int    `json:"offset"`
}

// PresenceInfo describes one connected participant in transport-friendly form.
type PresenceInfo struct {
	ParticipantID string      `json:"participantId"`
	DisplayName   string      `json:"displayName"`
	AvatarURL     string      `json:"avatarUrl,omitempty"`
	Color         string      `json:"color"`
	Cursor        *CursorInfo `json:"cursor,omitempty"`
	JoinedAt      string      `json:"joinedAt,omitempty"`
	LastHeartbeat string      `json:"lastHeartbeat,omitempty"`
}

// ChannelSummary describes one channel for list views.
type ChannelSummary struct {
	ID           string `json:"id"`
	Participants int    `json:"participants"`
	Subscribers  int    `json:"subscribers"`
	EmptySince   string `json:"emptySince,omitempty"`
}

// ChannelDetail combines the roster with per-element sequence heads.
type ChannelDetail struct {
	ID            string            `json:"id"`
	Presences     []PresenceInfo    `json:"presences"`
	SequenceHeads map[string]uint64 `json:"sequenceHeads,omitempty"`
}

// UpdateInfo describes a sequenced content update.
type UpdateInfo struct {
	ChannelID     string          `json:"channelId"`
	ElementID     string          `json:"elementId"`
	ParticipantID string          `json:"participantId"`
	Seq           uint64          `json:"seq"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Timestamp     string          `json:"timestamp,omitempty"`
}

// DeliveryFailureInfo reports an event dropped for one recipient.
type DeliveryFailureInfo struct {
	ChannelID   string `json:"channelId"`
	RecipientID string `json:"recipientId"`
	Dropped     string `json:"dropped"`
	ElementID   string `json:"elementId,omitempty"`
	Seq         uint64 `json:"seq,omitempty"`
}

// EngineStatus summarizes live engine state.
type EngineStatus struct {
	Channels     int `json:"channels"`
	Participants int `json:"participants"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool         `json:"running"`
	PID          int          `json:"pid"`
	JournalPath  string       `json:"journalPath"`
	LockFilePath string       `json:"lockFilePath"`
	SocketPath   string       `json:"socketPath"`
	Engine       EngineStatus `json:"engine"`
}

// EventEntry is one journal record in transport form.
type EventEntry struct {
	ID            int64  `json:"id"`
	CreatedAt     string `json:"createdAt,omitempty"`
	ChannelID     string `json:"channelId"`
	ParticipantID string `json:"participantId,omitempty"`
	Kind          string `json:"kind"`
	Detail        string `json:"detail,omitempty"`
}

// ChannelListResponse wraps channel summaries for API responses.
type ChannelListResponse struct {
	Channels []ChannelSummary `json:"channels"`
}

// ChannelResponse wraps a single channel detail.
type ChannelResponse struct {
	Channel ChannelDetail `json:"channel"`
}

// EventListResponse wraps journal entries.
type EventListResponse struct {
	Events []EventEntry `json:"events"`
}
