package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"quill/internal/broadcast"
	"quill/internal/identity"
	"quill/internal/journal"
	"quill/internal/liveness"
	"quill/internal/logging"
	"quill/internal/presence"
	"quill/internal/session"
	"quill/internal/testsupport"
)

func newEngine(t *testing.T) *session.Engine {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return session.NewEngine(cfg, nil, nil, logging.NewNop())
}

func alice() identity.Participant {
	return identity.Participant{ID: "alice", DisplayName: "Alice"}
}

func bob() identity.Participant {
	return identity.Participant{ID: "bob", DisplayName: "Bob"}
}

// recvKind waits for the next event of the wanted kind, skipping others.
func recvKind(t *testing.T, events <-chan broadcast.Event, kind broadcast.Kind) broadcast.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case evt, ok := <-events:
			if !ok {
				t.Fatalf("stream closed while waiting for %s", kind)
			}
			if evt.Kind == kind {
				return evt
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", kind)
		}
	}
}

func expectSilence(t *testing.T, events <-chan broadcast.Event, d time.Duration) {
	t.Helper()
	select {
	case evt, ok := <-events:
		if ok {
			t.Fatalf("unexpected event %s from %s", evt.Kind, evt.Origin)
		}
	case <-time.After(d):
	}
}

func TestJoinReturnsRosterAndBroadcastsDiff(t *testing.T) {
	engine := newEngine(t)
	ctx := context.Background()

	a, err := engine.Join(ctx, "doc-1", alice())
	if err != nil {
		t.Fatalf("Join alice: %v", err)
	}
	if len(a.Roster()) != 1 || a.Roster()[0].ParticipantID != "alice" {
		t.Fatalf("unexpected roster for first joiner: %#v", a.Roster())
	}

	b, err := engine.Join(ctx, "doc-1", bob())
	if err != nil {
		t.Fatalf("Join bob: %v", err)
	}
	roster := b.Roster()
	if len(roster) != 2 || roster[0].ParticipantID != "alice" || roster[1].ParticipantID != "bob" {
		t.Fatalf("expected join-ordered roster [alice bob], got %#v", roster)
	}

	evt := recvKind(t, a.Events(), broadcast.KindPresenceJoined)
	if evt.Presence == nil || evt.Presence.ParticipantID != "bob" {
		t.Fatalf("expected joined diff for bob, got %#v", evt)
	}
}

func TestColorStableAcrossSessions(t *testing.T) {
	engine := newEngine(t)
	ctx := context.Background()

	first, err := engine.Join(ctx, "doc-1", alice())
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	color := first.Self().Color
	first.Leave()

	second, err := engine.Join(ctx, "doc-2", alice())
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if second.Self().Color != color {
		t.Fatalf("color changed across sessions: %s vs %s", color, second.Self().Color)
	}
}

func TestUpdatesObservedInSequenceOrder(t *testing.T) {
	engine := newEngine(t)
	ctx := context.Background()

	a, err := engine.Join(ctx, "doc-1", alice())
	if err != nil {
		t.Fatalf("Join alice: %v", err)
	}
	b, err := engine.Join(ctx, "doc-1", bob())
	if err != nil {
		t.Fatalf("Join bob: %v", err)
	}

	first, err := a.SubmitUpdate("scene-3", json.RawMessage(`"text-v2"`))
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second, err := a.SubmitUpdate("scene-3", json.RawMessage(`"text-v3"`))
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if first.Seq != 1 || second.Seq != 2 {
		t.Fatalf("expected seqs 1,2 got %d,%d", first.Seq, second.Seq)
	}

	got1 := recvKind(t, b.Events(), broadcast.KindUpdateApplied)
	got2 := recvKind(t, b.Events(), broadcast.KindUpdateApplied)
	if string(got1.Update.Payload) != `"text-v2"` || string(got2.Update.Payload) != `"text-v3"` {
		t.Fatalf("observed payloads out of order: %s then %s", got1.Update.Payload, got2.Update.Payload)
	}
	if got1.Update.Seq >= got2.Update.Seq {
		t.Fatalf("sequence order inverted: %d then %d", got1.Update.Seq, got2.Update.Seq)
	}
}

func TestNoEchoToOrigin(t *testing.T) {
	engine := newEngine(t)
	ctx := context.Background()

	a, err := engine.Join(ctx, "doc-1", alice())
	if err != nil {
		t.Fatalf("Join alice: %v", err)
	}
	if _, err := engine.Join(ctx, "doc-1", bob()); err != nil {
		t.Fatalf("Join bob: %v", err)
	}
	// Drain bob's join diff so the stream is quiet.
	recvKind(t, a.Events(), broadcast.KindPresenceJoined)

	if _, err := a.SubmitUpdate("scene-1", json.RawMessage(`"v1"`)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := a.UpdateCursor(&presence.Cursor{ElementID: "scene-1", Offset: 4}); err != nil {
		t.Fatalf("cursor: %v", err)
	}

	expectSilence(t, a.Events(), 150*time.Millisecond)
}

func TestTerminalHandleRejectsOperations(t *testing.T) {
	engine := newEngine(t)
	ctx := context.Background()

	a, err := engine.Join(ctx, "doc-1", alice())
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	a.Leave()
	a.Leave() // idempotent

	if a.State() != session.StateLeft {
		t.Fatalf("expected left state, got %s", a.State())
	}
	if err := a.Heartbeat(); !errors.Is(err, session.ErrSessionNotActive) {
		t.Fatalf("Heartbeat after leave: %v", err)
	}
	if err := a.UpdateCursor(nil); !errors.Is(err, session.ErrSessionNotActive) {
		t.Fatalf("UpdateCursor after leave: %v", err)
	}
	if _, err := a.SubmitUpdate("scene-1", nil); !errors.Is(err, session.ErrSessionNotActive) {
		t.Fatalf("SubmitUpdate after leave: %v", err)
	}
	if _, ok := <-a.Events(); ok {
		t.Fatal("expected closed stream after leave")
	}
}

func TestRejoinReplacesPresenceAndRetiresOldHandle(t *testing.T) {
	engine := newEngine(t)
	ctx := context.Background()

	old, err := engine.Join(ctx, "doc-1", alice())
	if err != nil {
		t.Fatalf("first join: %v", err)
	}
	fresh, err := engine.Join(ctx, "doc-1", alice())
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}

	if err := old.Heartbeat(); !errors.Is(err, session.ErrSessionNotActive) {
		t.Fatalf("expected retired handle to reject heartbeat, got %v", err)
	}
	if err := fresh.Heartbeat(); err != nil {
		t.Fatalf("fresh handle heartbeat: %v", err)
	}

	roster, err := engine.Registry().Snapshot("doc-1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(roster) != 1 {
		t.Fatalf("expected single presence after rejoin, got %d", len(roster))
	}
	// The retired handle must not remove the replacement presence.
	old.Leave()
	roster, err = engine.Registry().Snapshot("doc-1")
	if err != nil {
		t.Fatalf("Snapshot after retired leave: %v", err)
	}
	if len(roster) != 1 {
		t.Fatalf("retired handle removed the live presence, roster %#v", roster)
	}
}

func TestSilentParticipantEvictedAndObserved(t *testing.T) {
	engine := newEngine(t)
	ctx := context.Background()

	a, err := engine.Join(ctx, "doc-1", alice())
	if err != nil {
		t.Fatalf("Join alice: %v", err)
	}
	b, err := engine.Join(ctx, "doc-1", bob())
	if err != nil {
		t.Fatalf("Join bob: %v", err)
	}
	recvKind(t, a.Events(), broadcast.KindPresenceJoined)

	monitor := liveness.NewMonitor(engine.Registry(), engine, logging.NewNop(),
		10*time.Millisecond, 30*time.Millisecond, time.Hour)

	// Bob stays alive; alice goes silent.
	deadline := time.Now().Add(60 * time.Millisecond)
	for time.Now().Before(deadline) {
		if err := b.Heartbeat(); err != nil {
			t.Fatalf("bob heartbeat: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	monitor.Sweep()

	evt := recvKind(t, b.Events(), broadcast.KindPresenceLeft)
	if evt.Presence == nil || evt.Presence.ParticipantID != "alice" {
		t.Fatalf("expected left diff for alice, got %#v", evt)
	}
	if err := a.Heartbeat(); !errors.Is(err, session.ErrSessionNotActive) {
		t.Fatalf("expected evicted handle to reject heartbeat, got %v", err)
	}
	if a.State() != session.StateEvicted {
		t.Fatalf("expected evicted state, got %s", a.State())
	}
}

func TestOperatorEvictionRecordedInJournal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	engine := session.NewEngine(cfg, store, nil, logging.NewNop())
	ctx := context.Background()

	if _, err := engine.Join(ctx, "doc-1", alice()); err != nil {
		t.Fatalf("Join alice: %v", err)
	}
	b, err := engine.Join(ctx, "doc-1", bob())
	if err != nil {
		t.Fatalf("Join bob: %v", err)
	}

	if err := engine.EvictParticipant(ctx, "doc-1", "alice"); err != nil {
		t.Fatalf("EvictParticipant: %v", err)
	}
	if err := engine.EvictParticipant(ctx, "doc-1", "alice"); err == nil {
		t.Fatal("expected error evicting an absent participant")
	}

	evt := recvKind(t, b.Events(), broadcast.KindPresenceLeft)
	if evt.Presence.ParticipantID != "alice" {
		t.Fatalf("expected left diff for alice, got %#v", evt)
	}

	entries, err := store.Recent(ctx, "doc-1", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) == 0 || entries[0].Kind != journal.KindOperatorEvicted {
		t.Fatalf("expected operator eviction as newest entry, got %#v", entries)
	}
}

func TestChannelPruneReleasesSequenceState(t *testing.T) {
	engine := newEngine(t)
	ctx := context.Background()

	a, err := engine.Join(ctx, "doc-1", alice())
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, err := a.SubmitUpdate("scene-1", json.RawMessage(`"v1"`)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := a.SubmitUpdate("scene-1", json.RawMessage(`"v2"`)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	a.Leave()

	monitor := liveness.NewMonitor(engine.Registry(), engine, logging.NewNop(),
		10*time.Millisecond, time.Hour, 0)
	monitor.Sweep()

	fresh, err := engine.Join(ctx, "doc-1", alice())
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	update, err := fresh.SubmitUpdate("scene-1", json.RawMessage(`"v3"`))
	if err != nil {
		t.Fatalf("submit after prune: %v", err)
	}
	if update.Seq != 1 {
		t.Fatalf("expected sequence reset after prune, got %d", update.Seq)
	}
}

func TestCursorMovesReachOtherParticipants(t *testing.T) {
	engine := newEngine(t)
	ctx := context.Background()

	a, err := engine.Join(ctx, "doc-1", alice())
	if err != nil {
		t.Fatalf("Join alice: %v", err)
	}
	b, err := engine.Join(ctx, "doc-1", bob())
	if err != nil {
		t.Fatalf("Join bob: %v", err)
	}
	if err := b.UpdateCursor(&presence.Cursor{ElementID: "scene-2", Offset: 17}); err != nil {
		t.Fatalf("cursor: %v", err)
	}

	evt := recvKind(t, a.Events(), broadcast.KindCursorMoved)
	if evt.Cursor == nil || evt.Cursor.ParticipantID != "bob" {
		t.Fatalf("expected cursor event from bob, got %#v", evt)
	}
	if evt.Cursor.Cursor == nil || evt.Cursor.Cursor.ElementID != "scene-2" || evt.Cursor.Cursor.Offset != 17 {
		t.Fatalf("unexpected cursor locator %#v", evt.Cursor.Cursor)
	}
}
