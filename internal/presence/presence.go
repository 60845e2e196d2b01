package presence

import (
	"errors"
	"hash/fnv"
	"time"
)

// ErrChannelNotFound reports a lookup against a channel the registry does not
// hold. Join never returns it; channels are created implicitly.
var ErrChannelNotFound = errors.New("channel not found")

// Cursor locates a participant's caret inside a document element.
type Cursor struct {
	ElementID string `json:"element_id"`
	Offset    int    `json:"offset"`
}

// Presence is a connected participant's observable state within a channel.
type Presence struct {
	ParticipantID string    `json:"participant_id"`
	DisplayName   string    `json:"display_name"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	Color         string    `json:"color"`
	Cursor        *Cursor   `json:"cursor,omitempty"`
	JoinedAt      time.Time `json:"joined_at"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

// The palette is intentionally small: collaboration UIs want a handful of strongly
// distinguishable hues, and collisions between participants are acceptable.
var palette = []string{
	"#e6194b", // red
	"#3cb44b", // green
	"#4363d8", // blue
	"#f58231", // orange
	"#911eb4", // purple
	"#42d4f4", // cyan
	"#f032e6", // magenta
	"#9a6324", // brown
}

// ColorFor deterministically maps a participant ID into the display palette.
// The same participant gets the same color across sessions and channels.
func ColorFor(participantID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(participantID))
	return palette[h.Sum32()%uint32(len(palette))]
}
