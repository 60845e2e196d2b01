package presence

import (
	"sort"
	"sync"
	"time"
)

// Registry is the process-wide presence store. It is an injected dependency,
// not a package-level singleton, so tests can run independent registries side
// by side.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]*channel

	now func() time.Time
}

type channel struct {
	mu         sync.Mutex
	members    map[string]*Presence
	emptySince time.Time
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]*channel),
		now:      time.Now,
	}
}

// ChannelInfo summarizes one channel for inspection surfaces.
type ChannelInfo struct {
	ID           string
	Participants int
	EmptySince   time.Time
}

// Eviction records a presence removed by a staleness sweep.
type Eviction struct {
	ChannelID string
	Presence  Presence
}

func (r *Registry) channelFor(channelID string, create bool) *channel {
	r.mu.RLock()
	ch := r.channels[channelID]
	r.mu.RUnlock()
	if ch != nil || !create {
		return ch
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ch = r.channels[channelID]; ch == nil {
		ch = &channel{members: make(map[string]*Presence)}
		r.channels[channelID] = ch
	}
	return ch
}

// Join creates or replaces the presence for a participant and returns the new
// presence together with a snapshot of everyone currently in the channel
// (including the joiner). The second return reports whether an earlier
// presence was replaced. The channel is created on first join.
func (r *Registry) Join(channelID, participantID, displayName, avatarURL string) (Presence, []Presence, bool) {
	ch := r.channelFor(channelID, true)
	now := r.now()

	ch.mu.Lock()
	defer ch.mu.Unlock()

	_, replaced := ch.members[participantID]
	p := &Presence{
		ParticipantID: participantID,
		DisplayName:   displayName,
		AvatarURL:     avatarURL,
		Color:         ColorFor(participantID),
		JoinedAt:      now,
		LastHeartbeat: now,
	}
	ch.members[participantID] = p
	ch.emptySince = time.Time{}

	return *p, snapshotLocked(ch), replaced
}

// Leave removes the presence. Leaving twice, or leaving a channel that was
// never joined, is a no-op. The removed presence is returned when one existed.
func (r *Registry) Leave(channelID, participantID string) (Presence, bool) {
	ch := r.channelFor(channelID, false)
	if ch == nil {
		return Presence{}, false
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()

	p, ok := ch.members[participantID]
	if !ok {
		return Presence{}, false
	}
	delete(ch.members, participantID)
	if len(ch.members) == 0 {
		ch.emptySince = r.now()
	}
	return *p, true
}

// Heartbeat refreshes the liveness timestamp. It reports false when the
// participant has no live presence in the channel.
func (r *Registry) Heartbeat(channelID, participantID string) bool {
	return r.touch(channelID, participantID, nil, false)
}

// UpdateCursor replaces the cursor locator in place. A nil cursor clears it.
// Cursor traffic also counts as liveness evidence.
func (r *Registry) UpdateCursor(channelID, participantID string, cursor *Cursor) bool {
	return r.touch(channelID, participantID, cursor, true)
}

// Touch refreshes liveness on behalf of non-heartbeat traffic (updates).
func (r *Registry) Touch(channelID, participantID string) bool {
	return r.touch(channelID, participantID, nil, false)
}

func (r *Registry) touch(channelID, participantID string, cursor *Cursor, setCursor bool) bool {
	ch := r.channelFor(channelID, false)
	if ch == nil {
		return false
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()

	p, ok := ch.members[participantID]
	if !ok {
		return false
	}
	p.LastHeartbeat = r.now()
	if setCursor {
		if cursor == nil {
			p.Cursor = nil
		} else {
			c := *cursor
			p.Cursor = &c
		}
	}
	return true
}

// Snapshot returns every presence in the channel, ordered by join time.
func (r *Registry) Snapshot(channelID string) ([]Presence, error) {
	ch := r.channelFor(channelID, false)
	if ch == nil {
		return nil, ErrChannelNotFound
	}
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return snapshotLocked(ch), nil
}

// Channels lists all channels the registry currently holds.
func (r *Registry) Channels() []ChannelInfo {
	r.mu.RLock()
	ids := make([]string, 0, len(r.channels))
	for id := range r.channels {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)

	infos := make([]ChannelInfo, 0, len(ids))
	for _, id := range ids {
		ch := r.channelFor(id, false)
		if ch == nil {
			continue
		}
		ch.mu.Lock()
		infos = append(infos, ChannelInfo{
			ID:           id,
			Participants: len(ch.members),
			EmptySince:   ch.emptySince,
		})
		ch.mu.Unlock()
	}
	return infos
}

// EvictStale removes every presence whose heartbeat is older than threshold
// and returns the evictions. The timestamp is re-checked under the channel
// lock, so a heartbeat racing the sweep always wins.
func (r *Registry) EvictStale(threshold time.Duration) []Eviction {
	now := r.now()
	cutoff := now.Add(-threshold)

	var evicted []Eviction
	for _, info := range r.Channels() {
		ch := r.channelFor(info.ID, false)
		if ch == nil {
			continue
		}
		ch.mu.Lock()
		for id, p := range ch.members {
			if p.LastHeartbeat.After(cutoff) {
				continue
			}
			delete(ch.members, id)
			evicted = append(evicted, Eviction{ChannelID: info.ID, Presence: *p})
		}
		if len(ch.members) == 0 && ch.emptySince.IsZero() {
			ch.emptySince = now
		}
		ch.mu.Unlock()
	}
	return evicted
}

// PruneEmpty drops channels that have been empty for longer than grace and
// returns their IDs. Sequencer state for pruned channels is released by the
// caller.
func (r *Registry) PruneEmpty(grace time.Duration) []string {
	cutoff := r.now().Add(-grace)

	r.mu.Lock()
	defer r.mu.Unlock()

	var pruned []string
	for id, ch := range r.channels {
		ch.mu.Lock()
		empty := len(ch.members) == 0 && !ch.emptySince.IsZero() && !ch.emptySince.After(cutoff)
		ch.mu.Unlock()
		if empty {
			delete(r.channels, id)
			pruned = append(pruned, id)
		}
	}
	sort.Strings(pruned)
	return pruned
}

func snapshotLocked(ch *channel) []Presence {
	out := make([]Presence, 0, len(ch.members))
	for _, p := range ch.members {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].ParticipantID < out[j].ParticipantID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}
