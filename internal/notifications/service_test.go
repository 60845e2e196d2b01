package notifications_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"quill/internal/config"
	"quill/internal/notifications"
)

func TestNewServiceReturnsNoopWhenWebhookMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.WebhookURL = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyChannelOpened(context.Background(), "doc-1", "alice"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestWebhookServicePostsJSON(t *testing.T) {
	var got map[string]any
	var contentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode webhook body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.WebhookURL = server.URL
	svc := notifications.NewService(&cfg)

	if err := svc.NotifyParticipantEvicted(context.Background(), "doc-1", "alice", ""); err != nil {
		t.Fatalf("NotifyParticipantEvicted failed: %v", err)
	}
	if contentType != "application/json" {
		t.Fatalf("unexpected content type %q", contentType)
	}
	if got["event"] != "participant_evicted" {
		t.Fatalf("unexpected event %v", got["event"])
	}
	if got["channel_id"] != "doc-1" || got["participant_id"] != "alice" {
		t.Fatalf("unexpected payload %v", got)
	}
}

func TestWebhookServiceHonorsCategoryToggles(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.WebhookURL = server.URL
	cfg.Notifications.Evictions = false
	cfg.Notifications.ChannelLifecycle = false
	svc := notifications.NewService(&cfg)

	ctx := context.Background()
	if err := svc.NotifyParticipantEvicted(ctx, "doc-1", "alice", "operator kick"); err != nil {
		t.Fatalf("NotifyParticipantEvicted failed: %v", err)
	}
	if err := svc.NotifyChannelClosed(ctx, "doc-1"); err != nil {
		t.Fatalf("NotifyChannelClosed failed: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected suppressed categories to skip the webhook, got %d calls", calls)
	}

	if err := svc.TestNotification(ctx); err != nil {
		t.Fatalf("TestNotification failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected test notification to reach the webhook, got %d calls", calls)
	}
}

func TestWebhookServiceSurfacesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.WebhookURL = server.URL
	svc := notifications.NewService(&cfg)

	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
