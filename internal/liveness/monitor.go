package liveness

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"quill/internal/logging"
	"quill/internal/presence"
)

// Sink receives the effects of a sweep. Implemented by the session engine.
type Sink interface {
	// PresenceEvicted is called once per evicted presence. The engine reacts
	// exactly as it does to an explicit leave.
	PresenceEvicted(ev presence.Eviction)
	// ChannelPruned is called after an empty channel is dropped so dependent
	// state (sequence counters) can be released.
	ChannelPruned(channelID string)
}

// Monitor periodically sweeps the registry for stale presences and cold
// channels. One instance runs for the lifetime of the daemon.
type Monitor struct {
	registry  *presence.Registry
	sink      Sink
	logger    *slog.Logger
	interval  time.Duration
	threshold time.Duration
	grace     time.Duration

	mu      sync.Mutex
	running bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitor builds a monitor sweeping on interval. threshold is the
// heartbeat age that makes a presence stale; grace is how long empty channels
// are kept warm.
func NewMonitor(registry *presence.Registry, sink Sink, logger *slog.Logger, interval, threshold, grace time.Duration) *Monitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if threshold <= 0 {
		threshold = 3 * interval
	}
	if grace <= 0 {
		grace = 5 * time.Minute
	}
	return &Monitor{
		registry:  registry,
		sink:      sink,
		logger:    logging.NewComponentLogger(logger, "liveness"),
		interval:  interval,
		threshold: threshold,
		grace:     grace,
	}
}

// Start launches the sweep loop. It fails when the monitor is already running.
func (m *Monitor) Start(ctx context.Context) error {
	if m == nil || m.registry == nil {
		return errors.New("liveness monitor unavailable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return errors.New("liveness monitor already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.ctx = runCtx
	m.cancel = cancel
	m.running = true

	m.wg.Add(1)
	go m.loop()
	return nil
}

// Stop halts the loop and waits for the in-flight sweep to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

func (m *Monitor) loop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Sweep performs one eviction and prune pass. Exported so control surfaces
// (operator kicks, tests) can force a pass without waiting for the ticker.
func (m *Monitor) Sweep() {
	evicted := m.registry.EvictStale(m.threshold)
	for _, ev := range evicted {
		m.logger.Info("evicted stale participant",
			logging.String(logging.FieldChannel, ev.ChannelID),
			logging.String(logging.FieldParticipant, ev.Presence.ParticipantID),
			logging.String(logging.FieldEventType, "presence_evicted"),
			logging.Duration("threshold", m.threshold),
		)
		if m.sink != nil {
			m.sink.PresenceEvicted(ev)
		}
	}

	for _, channelID := range m.registry.PruneEmpty(m.grace) {
		m.logger.Info("pruned empty channel",
			logging.String(logging.FieldChannel, channelID),
			logging.String(logging.FieldEventType, "channel_pruned"),
		)
		if m.sink != nil {
			m.sink.ChannelPruned(channelID)
		}
	}
}
