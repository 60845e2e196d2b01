// Package relay mirrors broadcast events between quilld nodes through Redis
// pub/sub so participants attached to different processes observe the same
// channel traffic. Each node tags its envelopes with a node ID and discards
// its own messages on the way back in.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"quill/internal/broadcast"
	"quill/internal/config"
	"quill/internal/logging"
)

// Sink receives events published by peer nodes. Implemented by the session
// engine.
type Sink interface {
	ApplyRemote(evt broadcast.Event)
}

type envelope struct {
	Node  string          `json:"node"`
	Event broadcast.Event `json:"event"`
}

// Relay bridges the local broadcast hub and the shared Redis bus.
type Relay struct {
	client *redis.Client
	sink   Sink
	logger *slog.Logger
	prefix string
	nodeID string

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	pubsub  *redis.PubSub
	wg      sync.WaitGroup
}

// New builds a relay from configuration. The connection is not dialed until
// Start.
func New(cfg *config.Config, sink Sink, logger *slog.Logger) *Relay {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Relay.Addr,
		Password: cfg.Relay.Password,
		DB:       cfg.Relay.DB,
	})
	return &Relay{
		client: client,
		sink:   sink,
		logger: logging.NewComponentLogger(logger, "relay"),
		prefix: cfg.Relay.ChannelPrefix,
		nodeID: uuid.NewString(),
	}
}

// NodeID returns the identifier stamped on outgoing envelopes.
func (r *Relay) NodeID() string { return r.nodeID }

func (r *Relay) topicPattern() string { return r.prefix + ":*" }

func (r *Relay) topic(channelID string) string { return r.prefix + ":" + channelID }

// Start connects to Redis and begins applying peer events to the sink.
func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("relay already running")
	}

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.pubsub = r.client.PSubscribe(runCtx, r.topicPattern())
	r.running = true

	r.wg.Add(1)
	go r.loop(runCtx, r.pubsub.Channel())

	r.logger.Info("relay started",
		logging.String("node", r.nodeID),
		logging.String("pattern", r.topicPattern()),
	)
	return nil
}

func (r *Relay) loop(ctx context.Context, messages <-chan *redis.Message) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			r.handlePayload([]byte(msg.Payload))
		}
	}
}

// handlePayload decodes one envelope and forwards foreign events to the sink.
func (r *Relay) handlePayload(payload []byte) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		r.logger.Warn("discarding malformed relay payload", logging.Error(err))
		return
	}
	if env.Node == r.nodeID {
		return
	}
	r.sink.ApplyRemote(env.Event)
}

// Mirror publishes a locally originated event to peer nodes. Implements
// session.Relay.
func (r *Relay) Mirror(ctx context.Context, evt broadcast.Event) error {
	payload, err := json.Marshal(envelope{Node: r.nodeID, Event: evt})
	if err != nil {
		return fmt.Errorf("encode relay envelope: %w", err)
	}
	if err := r.client.Publish(ctx, r.topic(evt.ChannelID), payload).Err(); err != nil {
		return fmt.Errorf("publish relay envelope: %w", err)
	}
	return nil
}

// Stop tears the subscription down and waits for the apply loop to exit.
// Idempotent.
func (r *Relay) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	cancel := r.cancel
	pubsub := r.pubsub
	r.cancel = nil
	r.pubsub = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if pubsub != nil {
		_ = pubsub.Close()
	}
	r.wg.Wait()
	r.logger.Info("relay stopped", logging.String("node", r.nodeID))
}

// Close stops the relay and releases the client connection.
func (r *Relay) Close() error {
	r.Stop()
	return r.client.Close()
}
