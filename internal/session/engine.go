package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"quill/internal/broadcast"
	"quill/internal/config"
	"quill/internal/identity"
	"quill/internal/journal"
	"quill/internal/logging"
	"quill/internal/notifications"
	"quill/internal/presence"
	"quill/internal/sequence"
)

// Relay mirrors locally published events to peer nodes. Implementations must
// tolerate being called from publishing goroutines.
type Relay interface {
	Mirror(ctx context.Context, evt broadcast.Event) error
}

// Engine composes the presence registry, update sequencer, and broadcast hub
// into the join/heartbeat/cursor/update/leave surface clients attach to. One
// engine per process; injected into the daemon, never a package singleton.
type Engine struct {
	registry  *presence.Registry
	sequencer *sequence.Sequencer
	hub       *broadcast.Hub
	store     *journal.Store
	notifier  notifications.Service
	logger    *slog.Logger

	mu       sync.Mutex
	channels map[string]*channelState
	relay    Relay
}

// channelState serializes presence diffs and update publishes for one
// channel. Operations on different channels never contend on it.
type channelState struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewEngine builds an engine from configuration. A nil journal store disables
// journaling; a nil notifier falls back to the configured service.
func NewEngine(cfg *config.Config, store *journal.Store, notifier notifications.Service, logger *slog.Logger) *Engine {
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	e := &Engine{
		registry:  presence.NewRegistry(),
		sequencer: sequence.NewSequencer(),
		store:     store,
		notifier:  notifier,
		logger:    logging.NewComponentLogger(logger, "session"),
		channels:  make(map[string]*channelState),
	}
	e.hub = broadcast.NewHub(broadcast.Options{
		SubscriberBuffer: cfg.Collab.SubscriberBuffer,
		DeliveryRetries:  cfg.Collab.DeliveryRetries,
		RetryDelay:       cfg.DeliveryRetryDelay(),
		Logger:           logger,
		OnDrop:           e.handleDrop,
	})
	return e
}

// Registry exposes the presence registry for the liveness monitor and the
// read-only API surfaces.
func (e *Engine) Registry() *presence.Registry { return e.registry }

// Heads returns the per-element sequence heads for a channel.
func (e *Engine) Heads(channelID string) map[string]uint64 {
	return e.sequencer.Heads(channelID)
}

// SubscriberCount reports live subscriptions on a channel.
func (e *Engine) SubscriberCount(channelID string) int {
	return e.hub.SubscriberCount(channelID)
}

// Journal exposes the operational event store, which may be nil.
func (e *Engine) Journal() *journal.Store { return e.store }

// Notifier exposes the notification service.
func (e *Engine) Notifier() notifications.Service { return e.notifier }

// SetRelay attaches a cross-node relay. Pass nil to detach.
func (e *Engine) SetRelay(r Relay) {
	e.mu.Lock()
	e.relay = r
	e.mu.Unlock()
}

func (e *Engine) currentRelay() Relay {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.relay
}

func (e *Engine) channelFor(channelID string) *channelState {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch := e.channels[channelID]
	if ch == nil {
		ch = &channelState{sessions: make(map[string]*Session)}
		e.channels[channelID] = ch
	}
	return ch
}

// Join registers a presence, subscribes to the channel's event stream, and
// returns a fresh session handle. It always succeeds for valid identities and
// creates the channel implicitly on first join. A rejoin by the same
// participant replaces the earlier presence and retires its handle.
func (e *Engine) Join(ctx context.Context, channelID string, p identity.Participant) (*Session, error) {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return nil, errors.New("channel id required")
	}
	if strings.TrimSpace(p.ID) == "" {
		return nil, errors.New("participant id required")
	}

	ch := e.channelFor(channelID)
	ch.mu.Lock()
	self, roster, replaced := e.registry.Join(channelID, p.ID, p.DisplayName, p.AvatarURL)
	opened := !replaced && len(roster) == 1
	if prev := ch.sessions[p.ID]; prev != nil {
		prev.expire()
	}
	sess := &Session{
		id:            uuid.NewString(),
		channelID:     channelID,
		participantID: p.ID,
		engine:        e,
		self:          self,
		roster:        roster,
	}
	sess.state.Store(int32(StateActive))
	sess.sub = e.hub.Subscribe(channelID, p.ID)
	ch.sessions[p.ID] = sess
	evt := broadcast.PresenceJoined(channelID, self)
	e.hub.Publish(evt)
	ch.mu.Unlock()

	e.mirror(evt)
	e.record(ctx, journal.Entry{ChannelID: channelID, ParticipantID: p.ID, Kind: journal.KindJoined})
	if opened {
		if err := e.notifier.NotifyChannelOpened(ctx, channelID, p.ID); err != nil {
			e.logger.Warn("channel-opened notification failed", logging.Error(err))
		}
	}
	e.logger.Info("participant joined",
		logging.String(logging.FieldChannel, channelID),
		logging.String(logging.FieldParticipant, p.ID),
		logging.String(logging.FieldSessionID, sess.id),
		logging.Bool("rejoin", replaced),
	)
	return sess, nil
}

func (e *Engine) heartbeat(s *Session) error {
	if s.State() != StateActive {
		return ErrSessionNotActive
	}
	if !e.registry.Heartbeat(s.channelID, s.participantID) {
		// Presence already gone: the sweep won the race. The handle follows.
		s.terminate(StateEvicted)
		s.sub.Close()
		return ErrSessionNotActive
	}
	return nil
}

func (e *Engine) updateCursor(s *Session, cursor *presence.Cursor) error {
	if s.State() != StateActive {
		return ErrSessionNotActive
	}
	if !e.registry.UpdateCursor(s.channelID, s.participantID, cursor) {
		s.terminate(StateEvicted)
		s.sub.Close()
		return ErrSessionNotActive
	}
	evt := broadcast.CursorEvent{ChannelID: s.channelID, ParticipantID: s.participantID, Cursor: cursor}
	e.hub.PublishCursor(evt)
	e.mirror(broadcast.CursorMoved(evt))
	return nil
}

func (e *Engine) submitUpdate(s *Session, elementID string, payload json.RawMessage) (sequence.UpdateEvent, error) {
	if s.State() != StateActive {
		return sequence.UpdateEvent{}, ErrSessionNotActive
	}
	if strings.TrimSpace(elementID) == "" {
		return sequence.UpdateEvent{}, errors.New("element id required")
	}

	// Sequencing and publish happen under the channel lock so concurrent
	// submits cannot reach subscribers out of sequence order.
	ch := e.channelFor(s.channelID)
	ch.mu.Lock()
	update := e.sequencer.Submit(s.channelID, elementID, s.participantID, payload)
	e.registry.Touch(s.channelID, s.participantID)
	evt := broadcast.UpdateApplied(update)
	e.hub.Publish(evt)
	ch.mu.Unlock()

	e.mirror(evt)
	return update, nil
}

func (e *Engine) leave(s *Session) {
	if !s.terminate(StateLeft) {
		return
	}

	ch := e.channelFor(s.channelID)
	ch.mu.Lock()
	if ch.sessions[s.participantID] == s {
		delete(ch.sessions, s.participantID)
	}
	p, removed := e.registry.Leave(s.channelID, s.participantID)
	var evt broadcast.Event
	if removed {
		evt = broadcast.PresenceLeft(s.channelID, p)
		e.hub.Publish(evt)
	}
	ch.mu.Unlock()
	s.sub.Close()

	if removed {
		e.mirror(evt)
		e.record(context.Background(), journal.Entry{
			ChannelID:     s.channelID,
			ParticipantID: s.participantID,
			Kind:          journal.KindLeft,
		})
		e.logger.Info("participant left",
			logging.String(logging.FieldChannel, s.channelID),
			logging.String(logging.FieldParticipant, s.participantID),
			logging.String(logging.FieldSessionID, s.id),
		)
	}
}

// EvictParticipant removes a participant on operator request. Behaves exactly
// like a staleness eviction from the perspective of other participants.
func (e *Engine) EvictParticipant(ctx context.Context, channelID, participantID string) error {
	ch := e.channelFor(channelID)
	ch.mu.Lock()
	p, removed := e.registry.Leave(channelID, participantID)
	if !removed {
		ch.mu.Unlock()
		return fmt.Errorf("participant %s not present in channel %s", participantID, channelID)
	}
	if sess := ch.sessions[participantID]; sess != nil {
		if sess.terminate(StateEvicted) {
			sess.sub.Close()
		}
		delete(ch.sessions, participantID)
	}
	evt := broadcast.PresenceLeft(channelID, p)
	e.hub.Publish(evt)
	ch.mu.Unlock()

	e.mirror(evt)
	e.record(ctx, journal.Entry{
		ChannelID:     channelID,
		ParticipantID: participantID,
		Kind:          journal.KindOperatorEvicted,
		Detail:        "operator kick",
	})
	if err := e.notifier.NotifyParticipantEvicted(ctx, channelID, participantID, "operator kick"); err != nil {
		e.logger.Warn("eviction notification failed", logging.Error(err))
	}
	e.logger.Info("participant evicted by operator",
		logging.String(logging.FieldChannel, channelID),
		logging.String(logging.FieldParticipant, participantID),
	)
	return nil
}

// PresenceEvicted reacts to a staleness sweep removal: the handle becomes
// terminal, its stream closes, and other participants observe an ordinary
// left diff. Implements liveness.Sink.
func (e *Engine) PresenceEvicted(ev presence.Eviction) {
	participantID := ev.Presence.ParticipantID
	ch := e.channelFor(ev.ChannelID)
	ch.mu.Lock()
	if sess := ch.sessions[participantID]; sess != nil {
		if sess.terminate(StateEvicted) {
			sess.sub.Close()
		}
		delete(ch.sessions, participantID)
	}
	evt := broadcast.PresenceLeft(ev.ChannelID, ev.Presence)
	e.hub.Publish(evt)
	ch.mu.Unlock()

	e.mirror(evt)
	ctx := context.Background()
	e.record(ctx, journal.Entry{
		ChannelID:     ev.ChannelID,
		ParticipantID: participantID,
		Kind:          journal.KindEvicted,
		Detail:        "missed heartbeats",
	})
	if err := e.notifier.NotifyParticipantEvicted(ctx, ev.ChannelID, participantID, "missed heartbeats"); err != nil {
		e.logger.Warn("eviction notification failed", logging.Error(err))
	}
}

// ChannelPruned releases per-channel sequence state after the sweep drops an
// empty channel. Implements liveness.Sink.
func (e *Engine) ChannelPruned(channelID string) {
	e.sequencer.Release(channelID)

	e.mu.Lock()
	if ch := e.channels[channelID]; ch != nil {
		ch.mu.Lock()
		empty := len(ch.sessions) == 0
		ch.mu.Unlock()
		if empty {
			delete(e.channels, channelID)
		}
	}
	e.mu.Unlock()

	ctx := context.Background()
	e.record(ctx, journal.Entry{ChannelID: channelID, Kind: journal.KindChannelPruned})
	if err := e.notifier.NotifyChannelClosed(ctx, channelID); err != nil {
		e.logger.Warn("channel-closed notification failed", logging.Error(err))
	}
}

// ApplyRemote injects an event received from a peer node into local fan-out.
// Remote events never re-enter the relay.
func (e *Engine) ApplyRemote(evt broadcast.Event) {
	evt.Remote = true
	if evt.Kind == broadcast.KindCursorMoved && evt.Cursor != nil {
		e.hub.PublishCursor(*evt.Cursor)
		return
	}
	ch := e.channelFor(evt.ChannelID)
	ch.mu.Lock()
	e.hub.Publish(evt)
	ch.mu.Unlock()
}

// Close retires every live session without publishing left diffs; the process
// is going away with them.
func (e *Engine) Close() {
	e.mu.Lock()
	channels := make([]*channelState, 0, len(e.channels))
	for _, ch := range e.channels {
		channels = append(channels, ch)
	}
	e.mu.Unlock()

	for _, ch := range channels {
		ch.mu.Lock()
		for id, sess := range ch.sessions {
			sess.expire()
			delete(ch.sessions, id)
		}
		ch.mu.Unlock()
	}
}

func (e *Engine) mirror(evt broadcast.Event) {
	r := e.currentRelay()
	if r == nil || evt.Remote {
		return
	}
	go func() {
		if err := r.Mirror(context.Background(), evt); err != nil {
			e.logger.Warn("relay mirror failed",
				logging.String(logging.FieldChannel, evt.ChannelID),
				logging.Error(err),
			)
		}
	}()
}

func (e *Engine) handleDrop(f broadcast.DeliveryFailure) {
	go func() {
		ctx := context.Background()
		e.record(ctx, journal.Entry{
			ChannelID:     f.ChannelID,
			ParticipantID: f.RecipientID,
			Kind:          journal.KindDeliveryFailed,
			Detail:        string(f.Dropped),
		})
		if err := e.notifier.NotifyDeliveryFailure(ctx, f.ChannelID, f.RecipientID); err != nil {
			e.logger.Warn("delivery-failure notification failed", logging.Error(err))
		}
	}()
}

func (e *Engine) record(ctx context.Context, entry journal.Entry) {
	if e.store == nil {
		return
	}
	if err := e.store.Append(ctx, entry); err != nil {
		e.logger.Warn("journal append failed", logging.Error(err))
	}
}
