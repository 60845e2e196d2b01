package ipc

import "quill/internal/api"

// ChannelSummary mirrors the HTTP API channel DTO for internal IPC callers.
type ChannelSummary = api.ChannelSummary

// ChannelDetail mirrors the HTTP API channel detail DTO.
type ChannelDetail = api.ChannelDetail

// EventEntry mirrors the HTTP API journal DTO.
type EventEntry = api.EventEntry

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon/engine status information.
type StatusResponse struct {
	Running      bool   `json:"running"`
	PID          int    `json:"pid"`
	Channels     int    `json:"channels"`
	Participants int    `json:"participants"`
	JournalPath  string `json:"journal_path"`
	LockPath     string `json:"lock_path"`
	SocketPath   string `json:"socket_path"`
}

// ChannelListRequest lists live channels.
type ChannelListRequest struct{}

// ChannelListResponse contains channel summaries.
type ChannelListResponse struct {
	Channels []ChannelSummary `json:"channels"`
}

// ChannelDescribeRequest fetches a single channel by id.
type ChannelDescribeRequest struct {
	ID string `json:"id"`
}

// ChannelDescribeResponse contains the roster and sequence heads.
type ChannelDescribeResponse struct {
	Channel ChannelDetail `json:"channel"`
}

// EvictParticipantRequest kicks a participant from a channel.
type EvictParticipantRequest struct {
	ChannelID     string `json:"channel_id"`
	ParticipantID string `json:"participant_id"`
}

// EvictParticipantResponse reports the eviction outcome.
type EvictParticipantResponse struct {
	Evicted bool `json:"evicted"`
}

// RecentEventsRequest fetches journal entries, newest first. An empty
// ChannelID returns entries across all channels.
type RecentEventsRequest struct {
	ChannelID string `json:"channel_id"`
	Limit     int    `json:"limit"`
}

// RecentEventsResponse contains journal entries.
type RecentEventsResponse struct {
	Events []EventEntry `json:"events"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
