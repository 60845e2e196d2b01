package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"quill/internal/config"
)

const userAgent = "Quill-Go/0.1.0"

// Service defines the notification surface exposed to engine components.
type Service interface {
	NotifyChannelOpened(ctx context.Context, channelID, participantID string) error
	NotifyChannelClosed(ctx context.Context, channelID string) error
	NotifyParticipantEvicted(ctx context.Context, channelID, participantID, reason string) error
	NotifyDeliveryFailure(ctx context.Context, channelID, recipientID string) error
	NotifyDaemonStarted(ctx context.Context) error
	NotifyDaemonStopped(ctx context.Context) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by the configured webhook.
// When no webhook URL is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	url := strings.TrimSpace(cfg.Notifications.WebhookURL)
	if url == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &webhookService{
		endpoint:         url,
		client:           client,
		channelLifecycle: cfg.Notifications.ChannelLifecycle,
		evictions:        cfg.Notifications.Evictions,
		deliveryFailures: cfg.Notifications.DeliveryFailures,
	}
}

type payload struct {
	Event       string `json:"event"`
	Message     string `json:"message"`
	ChannelID   string `json:"channel_id,omitempty"`
	Participant string `json:"participant_id,omitempty"`
	Priority    string `json:"priority,omitempty"`
}

type webhookService struct {
	endpoint string
	client   *http.Client

	channelLifecycle bool
	evictions        bool
	deliveryFailures bool
}

func (w *webhookService) NotifyChannelOpened(ctx context.Context, channelID, participantID string) error {
	if !w.channelLifecycle {
		return nil
	}
	data := payload{
		Event:       "channel_opened",
		Message:     fmt.Sprintf("Channel %s opened by %s", channelID, participantID),
		ChannelID:   channelID,
		Participant: participantID,
	}
	return w.send(ctx, data)
}

func (w *webhookService) NotifyChannelClosed(ctx context.Context, channelID string) error {
	if !w.channelLifecycle {
		return nil
	}
	data := payload{
		Event:     "channel_closed",
		Message:   fmt.Sprintf("Channel %s closed after grace period", channelID),
		ChannelID: channelID,
	}
	return w.send(ctx, data)
}

func (w *webhookService) NotifyParticipantEvicted(ctx context.Context, channelID, participantID, reason string) error {
	if !w.evictions {
		return nil
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "missed heartbeats"
	}
	data := payload{
		Event:       "participant_evicted",
		Message:     fmt.Sprintf("Evicted %s from %s (%s)", participantID, channelID, reason),
		ChannelID:   channelID,
		Participant: participantID,
	}
	return w.send(ctx, data)
}

func (w *webhookService) NotifyDeliveryFailure(ctx context.Context, channelID, recipientID string) error {
	if !w.deliveryFailures {
		return nil
	}
	data := payload{
		Event:       "delivery_failure",
		Message:     fmt.Sprintf("Dropped events for %s on %s after retry budget", recipientID, channelID),
		ChannelID:   channelID,
		Participant: recipientID,
		Priority:    "high",
	}
	return w.send(ctx, data)
}

func (w *webhookService) NotifyDaemonStarted(ctx context.Context) error {
	data := payload{
		Event:   "daemon_started",
		Message: "quilld is up and accepting sessions",
	}
	return w.send(ctx, data)
}

func (w *webhookService) NotifyDaemonStopped(ctx context.Context) error {
	data := payload{
		Event:   "daemon_stopped",
		Message: "quilld shut down",
	}
	return w.send(ctx, data)
}

func (w *webhookService) TestNotification(ctx context.Context) error {
	data := payload{
		Event:    "test",
		Message:  "Notification system test",
		Priority: "low",
	}
	return w.send(ctx, data)
}

func (w *webhookService) send(ctx context.Context, data payload) error {
	if w == nil || w.client == nil {
		return nil
	}

	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyChannelOpened(context.Context, string, string) error { return nil }
func (noopService) NotifyChannelClosed(context.Context, string) error         { return nil }
func (noopService) NotifyParticipantEvicted(context.Context, string, string, string) error {
	return nil
}
func (noopService) NotifyDeliveryFailure(context.Context, string, string) error { return nil }
func (noopService) NotifyDaemonStarted(context.Context) error                   { return nil }
func (noopService) NotifyDaemonStopped(context.Context) error                   { return nil }
func (noopService) TestNotification(context.Context) error                      { return nil }
