package notify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/redis/go-redis/v9"
)

type recordingClient struct {
	channel string
	payload []byte
}

func (r *recordingClient) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	r.channel = channel
	r.payload, _ = message.([]byte)
	return redis.NewIntResult(1, nil)
}

func TestPublish(t *testing.T) {
	client := &recordingClient{}
	p := NewPublisher(client)

	msg := ExportMessage{Type: TypeExport, WorkspaceID: "ws-1", Sink: "pdf", Status: "completed"}
	if err := p.Publish(context.Background(), "ws-1", msg); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if client.channel != "workspace_notify:ws-1" {
		t.Fatalf("unexpected channel %q", client.channel)
	}
	var got ExportMessage
	if err := json.Unmarshal(client.payload, &got); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if got != msg {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestNilPublisherIsNoop(t *testing.T) {
	var p *Publisher
	if err := p.Publish(context.Background(), "ws", PreviewMessage{}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
