package events

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/atvirokodosprendimai/mongoschema/internal/core/domain"
)

func createdEvent() domain.ChangeEvent {
	return domain.NewChangeEvent(domain.SchemaChange{
		ID:         7,
		EventID:    "evt-1",
		Collection: "Users",
		Operation:  domain.OpEnsureCollection,
		Outcome:    "created",
		Validator: domain.Doc(domain.E("$jsonSchema", domain.Doc(
			domain.E("required", domain.Strings("name")),
		))),
		OccurredAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	})
}

func TestWebhookPublisherSuccess(t *testing.T) {
	var gotBody []byte
	var gotHeaders http.Header

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	secret := "test-secret"
	pub := NewWebhookPublisher(srv.URL, secret, 5*time.Second)
	event := createdEvent()

	if err := pub.Publish(context.Background(), event.EventType, event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ct := gotHeaders.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if topic := gotHeaders.Get("X-Mongoschema-Topic"); topic != "schema.ensure_collection.created" {
		t.Errorf("X-Mongoschema-Topic = %q", topic)
	}
	if et := gotHeaders.Get("X-Mongoschema-Event-Type"); et != "schema.ensure_collection.created" {
		t.Errorf("X-Mongoschema-Event-Type = %q", et)
	}
	if coll := gotHeaders.Get("X-Mongoschema-Collection"); coll != "Users" {
		t.Errorf("X-Mongoschema-Collection = %q, want Users", coll)
	}

	sigHeader := gotHeaders.Get("X-Hub-Signature-256")
	if !strings.HasPrefix(sigHeader, "sha256=") {
		t.Fatalf("X-Hub-Signature-256 header missing or malformed: %q", sigHeader)
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(gotBody)
	if got, want := strings.TrimPrefix(sigHeader, "sha256="), hex.EncodeToString(mac.Sum(nil)); got != want {
		t.Errorf("signature mismatch: got %q, want %q", got, want)
	}

	var decoded domain.ChangeEvent
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded.EventID != event.EventID || decoded.Change.ID != 7 {
		t.Errorf("unexpected body: %+v", decoded)
	}
	if !decoded.Change.Validator.Equal(event.Change.Validator) {
		t.Errorf("validator = %s, want %s", decoded.Change.Validator, event.Change.Validator)
	}
}

func TestWebhookPublisherNon2xxReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	pub := NewWebhookPublisher(srv.URL, "secret", 5*time.Second)
	event := createdEvent()

	err := pub.Publish(context.Background(), event.EventType, event)
	if err == nil {
		t.Fatal("expected error for 500 response, got nil")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error should mention status code 500, got: %v", err)
	}
}

func TestWebhookPublisherContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	pub := NewWebhookPublisher(srv.URL, "secret", 5*time.Second)
	event := createdEvent()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pub.Publish(ctx, event.EventType, event)
	if err == nil {
		t.Fatal("expected error for cancelled context, got nil")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected error to wrap context.Canceled, got: %v", err)
	}
}

func TestWebhookPublisherZeroTimeoutUsesDefault(t *testing.T) {
	pub := NewWebhookPublisher("http://localhost:9", "s", 0)
	if pub.client.Timeout != defaultWebhookTimeout {
		t.Errorf("timeout = %v, want %v", pub.client.Timeout, defaultWebhookTimeout)
	}
}
