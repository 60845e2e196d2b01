package journal_test

import (
	"context"
	"testing"
	"time"

	"quill/internal/journal"
	"quill/internal/testsupport"
)

func TestAppendAndRecent(t *testing.T) {
	store := testsupport.MustOpenJournal(t)
	ctx := context.Background()

	entries := []journal.Entry{
		{ChannelID: "doc-1", ParticipantID: "alice", Kind: journal.KindJoined},
		{ChannelID: "doc-1", ParticipantID: "bob", Kind: journal.KindJoined},
		{ChannelID: "doc-2", ParticipantID: "carol", Kind: journal.KindJoined},
		{ChannelID: "doc-1", ParticipantID: "alice", Kind: journal.KindEvicted, Detail: "3 missed beats"},
	}
	for _, e := range entries {
		if err := store.Append(ctx, e); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	recent, err := store.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(recent))
	}
	if recent[0].Kind != journal.KindEvicted || recent[0].Detail != "3 missed beats" {
		t.Fatalf("expected newest first, got %#v", recent[0])
	}
	if recent[0].CreatedAt.IsZero() {
		t.Fatal("expected timestamp to round-trip")
	}

	filtered, err := store.Recent(ctx, "doc-2", 10)
	if err != nil {
		t.Fatalf("Recent(doc-2) failed: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ParticipantID != "carol" {
		t.Fatalf("unexpected filtered entries %#v", filtered)
	}
}

func TestAppendValidates(t *testing.T) {
	store := testsupport.MustOpenJournal(t)
	ctx := context.Background()

	if err := store.Append(ctx, journal.Entry{Kind: journal.KindJoined}); err == nil {
		t.Fatal("expected error for missing channel")
	}
	if err := store.Append(ctx, journal.Entry{ChannelID: "doc-1"}); err == nil {
		t.Fatal("expected error for missing kind")
	}
}

func TestStatsAggregatesPerChannel(t *testing.T) {
	store := testsupport.MustOpenJournal(t)
	ctx := context.Background()

	seed := []journal.Entry{
		{ChannelID: "doc-1", ParticipantID: "alice", Kind: journal.KindJoined},
		{ChannelID: "doc-1", ParticipantID: "bob", Kind: journal.KindJoined},
		{ChannelID: "doc-1", ParticipantID: "bob", Kind: journal.KindLeft},
		{ChannelID: "doc-1", ParticipantID: "alice", Kind: journal.KindEvicted},
		{ChannelID: "doc-1", ParticipantID: "x", Kind: journal.KindOperatorEvicted},
		{ChannelID: "doc-2", ParticipantID: "carol", Kind: journal.KindDeliveryFailed},
	}
	for _, e := range seed {
		if err := store.Append(ctx, e); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected stats for two channels, got %d", len(stats))
	}
	doc1 := stats[0]
	if doc1.ChannelID != "doc-1" || doc1.Joins != 2 || doc1.Leaves != 1 || doc1.Evictions != 2 {
		t.Fatalf("unexpected doc-1 stats %#v", doc1)
	}
	if stats[1].DeliveryFailures != 1 {
		t.Fatalf("unexpected doc-2 stats %#v", stats[1])
	}
}

func TestPruneDropsOldEntries(t *testing.T) {
	store := testsupport.MustOpenJournal(t)
	ctx := context.Background()

	old := journal.Entry{
		ChannelID: "doc-1",
		Kind:      journal.KindJoined,
		CreatedAt: time.Now().UTC().Add(-48 * time.Hour),
	}
	if err := store.Append(ctx, old); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Append(ctx, journal.Entry{ChannelID: "doc-1", Kind: journal.KindLeft}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	removed, err := store.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 pruned entry, got %d", removed)
	}
	remaining, err := store.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Kind != journal.KindLeft {
		t.Fatalf("unexpected remaining entries %#v", remaining)
	}
}
