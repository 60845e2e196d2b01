// Package api defines wire-format types and converters for the IPC, HTTP,
// and WebSocket surfaces. It translates internal presence and sequencing
// models into transport-friendly DTOs so consumers never couple to internal
// types.
//
// # Key Types
//
// PresenceInfo: transport representation of a participant's presence,
// cursor included.
//
// ChannelSummary/ChannelDetail: roster and per-element sequence heads for
// one document channel.
//
// DaemonStatus: aggregated runtime information for status surfaces.
//
// ClientFrame/ServerFrame: the WebSocket protocol spoken by editor clients.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers.
// Timestamps use RFC3339 with milliseconds. Update payloads are passed
// through as json.RawMessage to avoid double-encoding.
package api
