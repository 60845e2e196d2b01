package daemon

import (
	"errors"
	"net/http"
	"sync"

	"log/slog"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"quill/internal/api"
	"quill/internal/logging"
	"quill/internal/presence"
	"quill/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Identity travels in headers or query parameters; origin checks belong
	// to the reverse proxy in front of quilld.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// maxFrameBytes bounds a single client frame. Update payloads are document
// elements, not whole documents.
const maxFrameBytes = 1 << 20

func (s *apiServer) handleSocket(w http.ResponseWriter, r *http.Request) {
	channelID := mux.Vars(r)["id"]
	participant, err := s.identity.Resolve(r)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}

	sess, err := s.daemon.Engine().Join(r.Context(), channelID, participant)
	if err != nil {
		_ = conn.WriteJSON(api.ServerFrame{Type: api.FrameError, Error: err.Error()})
		_ = conn.Close()
		return
	}

	bridge := &socketBridge{
		conn:   conn,
		sess:   sess,
		logger: s.log(),
	}
	bridge.run()
}

// socketBridge pumps events from a session onto a websocket and client frames
// back into it. One per connection.
type socketBridge struct {
	conn   *websocket.Conn
	sess   *session.Session
	logger *slog.Logger

	writeMu sync.Mutex
}

func (b *socketBridge) run() {
	defer func() { _ = b.conn.Close() }()

	snapshot := api.ServerFrame{
		Type:      api.FrameSnapshot,
		ChannelID: b.sess.ChannelID(),
		Presences: api.FromPresences(b.sess.Roster()),
	}
	self := api.FromPresence(b.sess.Self())
	snapshot.Self = &self
	if err := b.writeFrame(snapshot); err != nil {
		return
	}

	done := make(chan struct{})
	go b.writeLoop(done)
	b.readLoop()
	<-done
}

// writeLoop forwards session events until the stream closes. After a write
// error it keeps draining so the hub never sees this subscriber as backed up
// for the wrong reason.
func (b *socketBridge) writeLoop(done chan<- struct{}) {
	defer close(done)
	dead := false
	for evt := range b.sess.Events() {
		if dead {
			continue
		}
		if err := b.writeFrame(api.FrameFromEvent(evt)); err != nil {
			dead = true
		}
	}
	_ = b.conn.Close()
}

// readLoop applies client frames until the socket closes or the session goes
// terminal. A vanished socket sends no leave; the liveness monitor evicts the
// silent presence on schedule.
func (b *socketBridge) readLoop() {
	b.conn.SetReadLimit(maxFrameBytes)
	for {
		var frame api.ClientFrame
		if err := b.conn.ReadJSON(&frame); err != nil {
			return
		}
		if err := b.apply(frame); err != nil {
			if errors.Is(err, session.ErrSessionNotActive) {
				_ = b.writeFrame(api.ServerFrame{Type: api.FrameError, Error: err.Error()})
				return
			}
			_ = b.writeFrame(api.ServerFrame{Type: api.FrameError, Error: err.Error()})
		}
	}
}

func (b *socketBridge) apply(frame api.ClientFrame) error {
	switch frame.Type {
	case api.FrameHeartbeat:
		return b.sess.Heartbeat()
	case api.FrameCursor:
		if frame.Clear {
			return b.sess.UpdateCursor(nil)
		}
		return b.sess.UpdateCursor(&presence.Cursor{ElementID: frame.ElementID, Offset: frame.Offset})
	case api.FrameUpdate:
		_, err := b.sess.SubmitUpdate(frame.ElementID, frame.Payload)
		return err
	case api.FrameLeave:
		b.sess.Leave()
		return nil
	default:
		b.logger.Debug("ignoring unknown client frame",
			logging.String(logging.FieldChannel, b.sess.ChannelID()),
			logging.String(logging.FieldParticipant, b.sess.ParticipantID()),
			logging.String("frame_type", frame.Type),
		)
		return nil
	}
}

func (b *socketBridge) writeFrame(frame api.ServerFrame) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return b.conn.WriteJSON(frame)
}
