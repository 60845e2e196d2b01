package daemon_test

import (
	"context"
	"testing"

	"quill/internal/config"
	"quill/internal/daemon"
	"quill/internal/journal"
	"quill/internal/logging"
	"quill/internal/session"
	"quill/internal/testsupport"
)

func newTestDaemon(t *testing.T) (*daemon.Daemon, *config.Config, *journal.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenJournal(t, cfg)
	engine := session.NewEngine(cfg, store, nil, logging.NewNop())
	d, err := daemon.New(cfg, engine, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d, cfg, store
}

func TestStartStopLifecycle(t *testing.T) {
	d, _, _ := newTestDaemon(t)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second Start to fail while running")
	}
	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected running status")
	}
	if status.LockFilePath == "" || status.JournalPath == "" || status.SocketPath == "" {
		t.Fatalf("expected populated paths, got %#v", status)
	}
	if d.APIAddr() == "" {
		t.Fatal("expected bound api address")
	}

	d.Stop()
	d.Stop() // idempotent
	if d.Status(ctx).Running {
		t.Fatal("expected stopped status")
	}
}

func TestSecondInstanceRejectedByLock(t *testing.T) {
	first, cfg, store := newTestDaemon(t)
	ctx := context.Background()

	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start first: %v", err)
	}
	t.Cleanup(first.Stop)

	engine := session.NewEngine(cfg, store, nil, logging.NewNop())
	second, err := daemon.New(cfg, engine, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New second: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected lock contention to fail second instance")
	}
}

func TestChannelHelpers(t *testing.T) {
	d, _, _ := newTestDaemon(t)
	ctx := context.Background()

	if len(d.Channels(ctx)) != 0 {
		t.Fatal("expected no channels before any join")
	}
	if _, err := d.DescribeChannel(ctx, "missing"); err == nil {
		t.Fatal("expected error describing unknown channel")
	}

	sent, msg, err := d.TestNotification(ctx)
	if err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if sent || msg == "" {
		t.Fatalf("expected unsent result with reason, got sent=%v msg=%q", sent, msg)
	}
}
