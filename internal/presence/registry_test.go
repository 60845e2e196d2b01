package presence_test

import (
	"testing"
	"time"

	"quill/internal/presence"
)

func TestJoinCreatesChannelAndReturnsSnapshot(t *testing.T) {
	reg := presence.NewRegistry()

	p, snapshot, replaced := reg.Join("doc-1", "alice", "Alice", "")
	if replaced {
		t.Fatal("first join must not report replacement")
	}
	if p.Color == "" {
		t.Fatal("expected assigned color")
	}
	if len(snapshot) != 1 || snapshot[0].ParticipantID != "alice" {
		t.Fatalf("unexpected snapshot: %#v", snapshot)
	}

	_, snapshot, _ = reg.Join("doc-1", "bob", "Bob", "")
	if len(snapshot) != 2 {
		t.Fatalf("expected two presences, got %d", len(snapshot))
	}
	if snapshot[0].ParticipantID != "alice" {
		t.Fatalf("snapshot should be ordered by join time, got %#v", snapshot)
	}
}

func TestRejoinReplacesInsteadOfDuplicating(t *testing.T) {
	reg := presence.NewRegistry()
	reg.Join("doc-1", "alice", "Alice", "")
	_, snapshot, replaced := reg.Join("doc-1", "alice", "Alice Again", "")
	if !replaced {
		t.Fatal("rejoin must report replacement")
	}
	if len(snapshot) != 1 {
		t.Fatalf("expected exactly one presence after rejoin, got %d", len(snapshot))
	}
	if snapshot[0].DisplayName != "Alice Again" {
		t.Fatalf("rejoin should carry fresh identity, got %q", snapshot[0].DisplayName)
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	reg := presence.NewRegistry()
	reg.Join("doc-1", "alice", "Alice", "")

	if _, removed := reg.Leave("doc-1", "alice"); !removed {
		t.Fatal("expected first leave to remove presence")
	}
	if _, removed := reg.Leave("doc-1", "alice"); removed {
		t.Fatal("second leave must be a no-op")
	}
	if _, removed := reg.Leave("doc-9", "alice"); removed {
		t.Fatal("leave on unknown channel must be a no-op")
	}
}

func TestColorIsDeterministicPerParticipant(t *testing.T) {
	reg := presence.NewRegistry()
	first, _, _ := reg.Join("doc-1", "carol", "Carol", "")
	reg.Leave("doc-1", "carol")
	second, _, _ := reg.Join("doc-2", "carol", "Carol", "")
	if first.Color != second.Color {
		t.Fatalf("expected stable color, got %s then %s", first.Color, second.Color)
	}
	if presence.ColorFor("carol") != first.Color {
		t.Fatal("ColorFor must agree with Join")
	}
}

func TestCursorUpdateRefreshesLiveness(t *testing.T) {
	reg := presence.NewRegistry()
	reg.Join("doc-1", "alice", "Alice", "")

	before, _ := reg.Snapshot("doc-1")
	time.Sleep(5 * time.Millisecond)
	if !reg.UpdateCursor("doc-1", "alice", &presence.Cursor{ElementID: "scene-3", Offset: 12}) {
		t.Fatal("cursor update for live presence should succeed")
	}

	after, _ := reg.Snapshot("doc-1")
	if !after[0].LastHeartbeat.After(before[0].LastHeartbeat) {
		t.Fatal("cursor traffic must refresh the heartbeat timestamp")
	}
	if after[0].Cursor == nil || after[0].Cursor.ElementID != "scene-3" || after[0].Cursor.Offset != 12 {
		t.Fatalf("unexpected cursor: %#v", after[0].Cursor)
	}

	if !reg.UpdateCursor("doc-1", "alice", nil) {
		t.Fatal("clearing cursor should succeed")
	}
	cleared, _ := reg.Snapshot("doc-1")
	if cleared[0].Cursor != nil {
		t.Fatal("nil cursor update must clear the locator")
	}
}

func TestHeartbeatOnDepartedParticipantFails(t *testing.T) {
	reg := presence.NewRegistry()
	reg.Join("doc-1", "alice", "Alice", "")
	reg.Leave("doc-1", "alice")
	if reg.Heartbeat("doc-1", "alice") {
		t.Fatal("heartbeat after leave must report false")
	}
}

func TestSnapshotUnknownChannel(t *testing.T) {
	reg := presence.NewRegistry()
	if _, err := reg.Snapshot("nope"); err != presence.ErrChannelNotFound {
		t.Fatalf("expected ErrChannelNotFound, got %v", err)
	}
}

func TestEvictStaleRespectsFreshHeartbeats(t *testing.T) {
	reg := presence.NewRegistry()
	reg.Join("doc-1", "alice", "Alice", "")
	reg.Join("doc-1", "bob", "Bob", "")

	time.Sleep(20 * time.Millisecond)
	// Bob heartbeats just before the sweep; Alice stays silent.
	reg.Heartbeat("doc-1", "bob")

	evicted := reg.EvictStale(15 * time.Millisecond)
	if len(evicted) != 1 || evicted[0].Presence.ParticipantID != "alice" {
		t.Fatalf("expected only alice evicted, got %#v", evicted)
	}

	snapshot, err := reg.Snapshot("doc-1")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(snapshot) != 1 || snapshot[0].ParticipantID != "bob" {
		t.Fatalf("expected bob to survive, got %#v", snapshot)
	}
}

func TestPruneEmptyHonorsGracePeriod(t *testing.T) {
	reg := presence.NewRegistry()
	reg.Join("doc-1", "alice", "Alice", "")
	reg.Leave("doc-1", "alice")

	if pruned := reg.PruneEmpty(time.Hour); len(pruned) != 0 {
		t.Fatalf("channel inside grace period must survive, got %v", pruned)
	}

	time.Sleep(10 * time.Millisecond)
	pruned := reg.PruneEmpty(5 * time.Millisecond)
	if len(pruned) != 1 || pruned[0] != "doc-1" {
		t.Fatalf("expected doc-1 pruned, got %v", pruned)
	}
	if infos := reg.Channels(); len(infos) != 0 {
		t.Fatalf("expected empty registry, got %#v", infos)
	}
}

func TestRejoinClearsEmptyMark(t *testing.T) {
	reg := presence.NewRegistry()
	reg.Join("doc-1", "alice", "Alice", "")
	reg.Leave("doc-1", "alice")
	reg.Join("doc-1", "bob", "Bob", "")

	time.Sleep(10 * time.Millisecond)
	if pruned := reg.PruneEmpty(time.Millisecond); len(pruned) != 0 {
		t.Fatalf("occupied channel must never be pruned, got %v", pruned)
	}
}
