package api

import (
	"quill/internal/broadcast"
	"quill/internal/journal"
	"quill/internal/presence"
	"quill/internal/sequence"
)

// FromPresence converts a presence record to its API representation.
func FromPresence(p presence.Presence) PresenceInfo {
	dto := PresenceInfo{
		ParticipantID: p.ParticipantID,
		DisplayName:   p.DisplayName,
		AvatarURL:     p.AvatarURL,
		Color:         p.Color,
	}
	if p.Cursor != nil {
		dto.Cursor = &CursorInfo{ElementID: p.Cursor.ElementID, Offset: p.Cursor.Offset}
	}
	if !p.JoinedAt.IsZero() {
		dto.JoinedAt = p.JoinedAt.UTC().Format(dateTimeFormat)
	}
	if !p.LastHeartbeat.IsZero() {
		dto.LastHeartbeat = p.LastHeartbeat.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromPresences converts a roster snapshot, preserving join order.
func FromPresences(roster []presence.Presence) []PresenceInfo {
	if len(roster) == 0 {
		return nil
	}
	out := make([]PresenceInfo, 0, len(roster))
	for _, p := range roster {
		out = append(out, FromPresence(p))
	}
	return out
}

// FromChannelInfo converts a registry channel summary. The subscriber count
// comes from the broadcast hub and is supplied by the caller.
func FromChannelInfo(info presence.ChannelInfo, subscribers int) ChannelSummary {
	dto := ChannelSummary{
		ID:           info.ID,
		Participants: info.Participants,
		Subscribers:  subscribers,
	}
	if !info.EmptySince.IsZero() {
		dto.EmptySince = info.EmptySince.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromUpdate converts a sequenced update event.
func FromUpdate(evt sequence.UpdateEvent) UpdateInfo {
	dto := UpdateInfo{
		ChannelID:     evt.ChannelID,
		ElementID:     evt.ElementID,
		ParticipantID: evt.ParticipantID,
		Seq:           evt.Seq,
		Payload:       evt.Payload,
	}
	if !evt.Timestamp.IsZero() {
		dto.Timestamp = evt.Timestamp.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromJournalEntry converts a journal record.
func FromJournalEntry(e journal.Entry) EventEntry {
	dto := EventEntry{
		ID:            e.ID,
		ChannelID:     e.ChannelID,
		ParticipantID: e.ParticipantID,
		Kind:          string(e.Kind),
		Detail:        e.Detail,
	}
	if !e.CreatedAt.IsZero() {
		dto.CreatedAt = e.CreatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromJournalEntries converts journal records, preserving order.
func FromJournalEntries(entries []journal.Entry) []EventEntry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]EventEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, FromJournalEntry(e))
	}
	return out
}

// FrameFromEvent converts a broadcast event into the WebSocket frame pushed
// to clients. Unknown kinds yield a zero frame with an empty type.
func FrameFromEvent(evt broadcast.Event) ServerFrame {
	frame := ServerFrame{ChannelID: evt.ChannelID}
	switch evt.Kind {
	case broadcast.KindPresenceJoined, broadcast.KindPresenceLeft:
		frame.Type = string(evt.Kind)
		if evt.Presence != nil {
			p := FromPresence(*evt.Presence)
			frame.Presence = &p
		}
	case broadcast.KindCursorMoved:
		frame.Type = FrameCursorMoved
		if evt.Cursor != nil {
			moved := CursorMovedInfo{ParticipantID: evt.Cursor.ParticipantID}
			if evt.Cursor.Cursor != nil {
				moved.Cursor = &CursorInfo{
					ElementID: evt.Cursor.Cursor.ElementID,
					Offset:    evt.Cursor.Cursor.Offset,
				}
			}
			frame.Cursor = &moved
		}
	case broadcast.KindUpdateApplied:
		frame.Type = FrameUpdateApplied
		if evt.Update != nil {
			update := FromUpdate(*evt.Update)
			frame.Update = &update
		}
	case broadcast.KindDeliveryFailed:
		frame.Type = FrameDeliveryFailed
		if evt.Failure != nil {
			frame.Failure = &DeliveryFailureInfo{
				ChannelID:   evt.Failure.ChannelID,
				RecipientID: evt.Failure.RecipientID,
				Dropped:     string(evt.Failure.Dropped),
				ElementID:   evt.Failure.ElementID,
				Seq:         evt.Failure.Seq,
			}
		}
	}
	return frame
}
