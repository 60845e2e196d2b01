package daemon_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quill/internal/api"
	"quill/internal/daemon"
)

func dialSocket(t *testing.T, d *daemon.Daemon, channelID, participantID string) *websocket.Conn {
	t.Helper()
	url := fmt.Sprintf("ws://%s/ws/channels/%s?participant=%s", d.APIAddr(), channelID, participantID)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn, wantType string) api.ServerFrame {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if err := conn.SetReadDeadline(deadline); err != nil {
			t.Fatalf("set deadline: %v", err)
		}
		var frame api.ServerFrame
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("waiting for %s frame: %v", wantType, err)
		}
		if frame.Type == wantType {
			return frame
		}
	}
}

func TestSocketSessionLifecycle(t *testing.T) {
	d, _, _ := newTestDaemon(t)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)

	alice := dialSocket(t, d, "doc-1", "alice")
	snapshot := readFrame(t, alice, api.FrameSnapshot)
	if snapshot.Self == nil || snapshot.Self.ParticipantID != "alice" {
		t.Fatalf("unexpected snapshot self %#v", snapshot.Self)
	}
	if len(snapshot.Presences) != 1 {
		t.Fatalf("expected only alice in first snapshot, got %#v", snapshot.Presences)
	}

	bob := dialSocket(t, d, "doc-1", "bob")
	bobSnapshot := readFrame(t, bob, api.FrameSnapshot)
	if len(bobSnapshot.Presences) != 2 {
		t.Fatalf("expected two presences in bob's snapshot, got %#v", bobSnapshot.Presences)
	}

	joined := readFrame(t, alice, api.FramePresenceJoined)
	if joined.Presence == nil || joined.Presence.ParticipantID != "bob" {
		t.Fatalf("unexpected joined frame %#v", joined)
	}

	// Alice edits; bob observes, alice hears no echo of her own update.
	if err := alice.WriteJSON(api.ClientFrame{
		Type:      api.FrameUpdate,
		ElementID: "scene-3",
		Payload:   json.RawMessage(`"text-v2"`),
	}); err != nil {
		t.Fatalf("write update: %v", err)
	}
	update := readFrame(t, bob, api.FrameUpdateApplied)
	if update.Update == nil || update.Update.Seq != 1 || string(update.Update.Payload) != `"text-v2"` {
		t.Fatalf("unexpected update frame %#v", update.Update)
	}

	// Cursor move from bob shows up for alice.
	if err := bob.WriteJSON(api.ClientFrame{
		Type:      api.FrameCursor,
		ElementID: "scene-3",
		Offset:    12,
	}); err != nil {
		t.Fatalf("write cursor: %v", err)
	}
	cursor := readFrame(t, alice, api.FrameCursorMoved)
	if cursor.Cursor == nil || cursor.Cursor.ParticipantID != "bob" {
		t.Fatalf("unexpected cursor frame %#v", cursor)
	}

	// Bob leaves; alice observes the left diff and bob's socket closes.
	if err := bob.WriteJSON(api.ClientFrame{Type: api.FrameLeave}); err != nil {
		t.Fatalf("write leave: %v", err)
	}
	left := readFrame(t, alice, api.FramePresenceLeft)
	if left.Presence == nil || left.Presence.ParticipantID != "bob" {
		t.Fatalf("unexpected left frame %#v", left)
	}

	_ = bob.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var frame api.ServerFrame
		if err := bob.ReadJSON(&frame); err != nil {
			break
		}
	}
}

func TestSocketRejectsAnonymousClients(t *testing.T) {
	d, _, _ := newTestDaemon(t)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)

	url := fmt.Sprintf("ws://%s/ws/channels/doc-1", d.APIAddr())
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		conn.Close()
		t.Fatal("expected dial without identity to fail")
	}
	if resp == nil || resp.StatusCode != 401 {
		t.Fatalf("expected 401 response, got %#v", resp)
	}
}
