package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"quill/internal/api"
	"quill/internal/config"
	"quill/internal/journal"
	"quill/internal/liveness"
	"quill/internal/logging"
	"quill/internal/presence"
	"quill/internal/relay"
	"quill/internal/session"
)

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	engine  *session.Engine
	store   *journal.Store
	monitor *liveness.Monitor
	api     *apiServer

	lockPath string
	lock     *flock.Flock

	relay   *relay.Relay
	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	JournalPath  string
	LockFilePath string
	SocketPath   string
	Channels     int
	Participants int
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, engine *session.Engine, store *journal.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || engine == nil || logger == nil {
		return nil, errors.New("daemon requires config, engine, and logger")
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		engine:   engine,
		store:    store,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.monitor = liveness.NewMonitor(engine.Registry(), engine, logger,
		cfg.HeartbeatInterval(), cfg.EvictionThreshold(), cfg.ChannelGracePeriod())
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock and launches the liveness monitor, the
// optional relay, and the HTTP server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another quilld instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.monitor.Start(d.ctx); err != nil {
		d.teardown()
		return fmt.Errorf("start liveness monitor: %w", err)
	}

	if d.cfg.Relay.Enabled {
		r := relay.New(d.cfg, d.engine, d.logger)
		if err := r.Start(d.ctx); err != nil {
			d.monitor.Stop()
			d.teardown()
			return fmt.Errorf("start relay: %w", err)
		}
		d.relay = r
		d.engine.SetRelay(r)
	}

	if err := d.api.start(d.ctx); err != nil {
		d.stopRelay()
		d.monitor.Stop()
		d.teardown()
		return err
	}

	d.running.Store(true)
	if err := d.engine.Notifier().NotifyDaemonStarted(d.ctx); err != nil {
		d.logger.Warn("start notification failed", logging.Error(err))
	}
	d.logger.Info("quilld started", logging.String("lock", d.lockPath))
	return nil
}

func (d *Daemon) teardown() {
	_ = d.lock.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
	d.ctx = nil
	d.cancel = nil
}

func (d *Daemon) stopRelay() {
	if d.relay == nil {
		return
	}
	d.engine.SetRelay(nil)
	if err := d.relay.Close(); err != nil {
		d.logger.Warn("relay close failed", logging.Error(err))
	}
	d.relay = nil
}

// Stop halts background services and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if err := d.engine.Notifier().NotifyDaemonStopped(context.Background()); err != nil {
		d.logger.Warn("stop notification failed", logging.Error(err))
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.stopRelay()
	d.monitor.Stop()
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("quilld stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	d.engine.Close()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Engine exposes the session engine for transport layers.
func (d *Daemon) Engine() *session.Engine { return d.engine }

// APIAddr returns the bound HTTP address, empty until Start.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	channels := d.engine.Registry().Channels()
	participants := 0
	for _, ch := range channels {
		participants += ch.Participants
	}
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		JournalPath:  d.cfg.JournalPath(),
		LockFilePath: d.lockPath,
		SocketPath:   d.cfg.SocketPath(),
		Channels:     len(channels),
		Participants: participants,
	}
}

// Channels returns summaries for every live channel, sorted by id.
func (d *Daemon) Channels(ctx context.Context) []api.ChannelSummary {
	infos := d.engine.Registry().Channels()
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	out := make([]api.ChannelSummary, 0, len(infos))
	for _, info := range infos {
		out = append(out, api.FromChannelInfo(info, d.engine.SubscriberCount(info.ID)))
	}
	return out
}

// DescribeChannel returns the roster and sequence heads for one channel.
func (d *Daemon) DescribeChannel(ctx context.Context, channelID string) (api.ChannelDetail, error) {
	roster, err := d.engine.Registry().Snapshot(channelID)
	if err != nil {
		return api.ChannelDetail{}, err
	}
	return api.ChannelDetail{
		ID:            channelID,
		Presences:     api.FromPresences(roster),
		SequenceHeads: d.engine.Heads(channelID),
	}, nil
}

// RecentEvents returns the newest journal entries, most recent first.
func (d *Daemon) RecentEvents(ctx context.Context, channelID string, limit int) ([]journal.Entry, error) {
	if d.store == nil {
		return nil, errors.New("journal store unavailable")
	}
	return d.store.Recent(ctx, channelID, limit)
}

// EvictParticipant removes a participant on operator request.
func (d *Daemon) EvictParticipant(ctx context.Context, channelID, participantID string) error {
	return d.engine.EvictParticipant(ctx, channelID, participantID)
}

// TestNotification triggers a test notification using the current
// configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.WebhookURL) == "" {
		return false, "notification webhook not configured", nil
	}
	if err := d.engine.Notifier().TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// ChannelExists reports whether the registry currently holds the channel.
func (d *Daemon) ChannelExists(channelID string) bool {
	_, err := d.engine.Registry().Snapshot(channelID)
	return !errors.Is(err, presence.ErrChannelNotFound)
}
