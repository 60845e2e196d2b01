package relay

import (
	"encoding/json"
	"testing"

	"quill/internal/broadcast"
	"quill/internal/config"
	"quill/internal/logging"
	"quill/internal/presence"
)

type recordingSink struct {
	applied []broadcast.Event
}

func (r *recordingSink) ApplyRemote(evt broadcast.Event) {
	r.applied = append(r.applied, evt)
}

func newTestRelay(t *testing.T, sink Sink) *Relay {
	t.Helper()
	cfg := config.Default()
	cfg.Relay.ChannelPrefix = "quill-test"
	return New(&cfg, sink, logging.NewNop())
}

func TestHandlePayloadSkipsOwnEnvelopes(t *testing.T) {
	sink := &recordingSink{}
	r := newTestRelay(t, sink)

	own, err := json.Marshal(envelope{
		Node:  r.NodeID(),
		Event: broadcast.PresenceJoined("doc-1", presence.Presence{ParticipantID: "alice"}),
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	r.handlePayload(own)
	if len(sink.applied) != 0 {
		t.Fatalf("expected own envelope to be discarded, got %d events", len(sink.applied))
	}

	foreign, err := json.Marshal(envelope{
		Node:  "peer-node",
		Event: broadcast.PresenceJoined("doc-1", presence.Presence{ParticipantID: "bob"}),
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	r.handlePayload(foreign)
	if len(sink.applied) != 1 {
		t.Fatalf("expected foreign envelope to apply, got %d events", len(sink.applied))
	}
	got := sink.applied[0]
	if got.Kind != broadcast.KindPresenceJoined || got.Presence == nil || got.Presence.ParticipantID != "bob" {
		t.Fatalf("unexpected applied event %#v", got)
	}
}

func TestHandlePayloadDiscardsMalformedInput(t *testing.T) {
	sink := &recordingSink{}
	r := newTestRelay(t, sink)

	r.handlePayload([]byte("not json"))
	if len(sink.applied) != 0 {
		t.Fatalf("expected malformed payload to be discarded, got %d events", len(sink.applied))
	}
}

func TestTopicNaming(t *testing.T) {
	r := newTestRelay(t, &recordingSink{})
	if got := r.topic("doc-1"); got != "quill-test:doc-1" {
		t.Fatalf("unexpected topic %q", got)
	}
	if got := r.topicPattern(); got != "quill-test:*" {
		t.Fatalf("unexpected pattern %q", got)
	}
}

func TestEnvelopeRoundTripPreservesUpdate(t *testing.T) {
	evt := broadcast.Event{
		Kind:      broadcast.KindUpdateApplied,
		ChannelID: "doc-1",
		Origin:    "alice",
	}
	payload, err := json.Marshal(envelope{Node: "n1", Event: evt})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded envelope
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Event.Kind != broadcast.KindUpdateApplied || decoded.Event.Origin != "alice" {
		t.Fatalf("round trip lost fields: %#v", decoded.Event)
	}
	if decoded.Event.Remote {
		t.Fatal("remote flag must not travel on the wire")
	}
}
