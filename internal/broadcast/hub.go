package broadcast

import (
	"log/slog"
	"sync"
	"time"

	"quill/internal/logging"
)

// Options tunes hub delivery behavior. Zero values fall back to defaults
// matching the sample configuration.
type Options struct {
	SubscriberBuffer int
	DeliveryRetries  int
	RetryDelay       time.Duration
	Logger           *slog.Logger
	// OnDrop observes events dropped after the retry budget. Called from the
	// publishing goroutine; implementations must not block.
	OnDrop func(DeliveryFailure)
}

// Hub is the process-wide fan-out. One instance per engine; injected, never
// a package singleton.
type Hub struct {
	mu       sync.Mutex
	channels map[string]map[*Subscription]struct{}

	bufSize    int
	retries    int
	retryDelay time.Duration
	logger     *slog.Logger
	onDrop     func(DeliveryFailure)
}

// NewHub constructs a hub with the given delivery options.
func NewHub(opts Options) *Hub {
	if opts.SubscriberBuffer <= 0 {
		opts.SubscriberBuffer = 64
	}
	if opts.DeliveryRetries <= 0 {
		opts.DeliveryRetries = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 25 * time.Millisecond
	}
	return &Hub{
		channels:   make(map[string]map[*Subscription]struct{}),
		bufSize:    opts.SubscriberBuffer,
		retries:    opts.DeliveryRetries,
		retryDelay: opts.RetryDelay,
		logger:     logging.NewComponentLogger(opts.Logger, "broadcast"),
		onDrop:     opts.OnDrop,
	}
}

// Subscribe registers a participant's outbound stream on a channel. The
// subscription delivers events until Close.
func (h *Hub) Subscribe(channelID, participantID string) *Subscription {
	s := &Subscription{
		hub:           h,
		channelID:     channelID,
		participantID: participantID,
		queue:         make(chan Event, h.bufSize),
		cursors:       make(map[string]CursorEvent),
		cursorSig:     make(chan struct{}, 1),
		out:           make(chan Event),
		done:          make(chan struct{}),
	}

	h.mu.Lock()
	subs := h.channels[channelID]
	if subs == nil {
		subs = make(map[*Subscription]struct{})
		h.channels[channelID] = subs
	}
	subs[s] = struct{}{}
	h.mu.Unlock()

	go s.pump()
	return s
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	if subs := h.channels[s.channelID]; subs != nil {
		delete(subs, s)
		if len(subs) == 0 {
			delete(h.channels, s.channelID)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) subscribers(channelID string) []*Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.channels[channelID]
	out := make([]*Subscription, 0, len(subs))
	for s := range subs {
		out = append(out, s)
	}
	return out
}

// SubscriberCount reports how many live subscriptions a channel has.
func (h *Hub) SubscriberCount(channelID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.channels[channelID])
}

// Publish fans an ordered event (presence diff or update) out to every
// subscriber of the channel except those owned by the origin. Callers that
// need cross-event ordering (the sequencer path) must serialize their
// Publish calls; the hub preserves enqueue order per subscriber.
func (h *Hub) Publish(evt Event) {
	for _, s := range h.subscribers(evt.ChannelID) {
		if s.participantID == evt.Origin {
			continue
		}
		if h.enqueue(s, evt) {
			continue
		}
		failure := &DeliveryFailure{
			ChannelID:   evt.ChannelID,
			RecipientID: s.participantID,
			Dropped:     evt.Kind,
		}
		if evt.Update != nil {
			failure.ElementID = evt.Update.ElementID
			failure.Seq = evt.Update.Seq
		}
		h.logger.Warn("event dropped after retry budget",
			logging.String(logging.FieldChannel, evt.ChannelID),
			logging.String(logging.FieldParticipant, s.participantID),
			logging.String(logging.FieldEventType, "delivery_failed"),
			logging.String("dropped_kind", string(evt.Kind)),
			logging.String(logging.FieldErrorHint, "recipient transport is backed up; it will resync on rejoin"),
		)
		h.signalFailure(evt, failure)
		if h.onDrop != nil {
			h.onDrop(*failure)
		}
	}
}

// PublishCursor records the newest cursor position per sender on every other
// subscriber. Positions are coalesced, never queued.
func (h *Hub) PublishCursor(evt CursorEvent) {
	for _, s := range h.subscribers(evt.ChannelID) {
		if s.participantID == evt.ParticipantID {
			continue
		}
		s.setCursor(evt)
	}
}

// enqueue attempts delivery within the retry budget. It reports false when
// the subscriber's queue stayed full for the whole budget.
func (h *Hub) enqueue(s *Subscription, evt Event) bool {
	for attempt := 0; attempt <= h.retries; attempt++ {
		if attempt > 0 {
			time.Sleep(h.retryDelay)
		}
		select {
		case <-s.done:
			// Closed subscriptions absorb events silently; the participant
			// already left and must not generate failure noise.
			return true
		case s.queue <- evt:
			return true
		default:
		}
	}
	return false
}

// signalFailure notifies the origin's own subscriptions, and only those, that
// a recipient was skipped. Best effort: if the origin is itself backed up the
// signal is dropped.
func (h *Hub) signalFailure(evt Event, failure *DeliveryFailure) {
	if evt.Origin == "" || evt.Remote {
		return
	}
	notice := Event{
		Kind:      KindDeliveryFailed,
		ChannelID: evt.ChannelID,
		Failure:   failure,
	}
	for _, s := range h.subscribers(evt.ChannelID) {
		if s.participantID != evt.Origin {
			continue
		}
		select {
		case s.queue <- notice:
		case <-s.done:
		default:
		}
	}
}
