package events

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogPublisherWritesStructuredEntry(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	pub := NewLogPublisher(zap.New(core).Sugar())
	event := createdEvent()

	if err := pub.Publish(context.Background(), event.EventType, event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["topic"] != "schema.ensure_collection.created" || fields["collection"] != "Users" {
		t.Fatalf("unexpected fields: %v", fields)
	}
}

func TestLogPublisherNilLogger(t *testing.T) {
	if err := NewLogPublisher(nil).Publish(context.Background(), "t", createdEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}
}
