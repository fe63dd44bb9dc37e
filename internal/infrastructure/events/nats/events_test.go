package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/docqa-client/internal/core/domain"
)

func TestNewDocumentEvent(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	doc := &domain.DocumentDescriptor{ID: "d1", Name: "a.pdf", URL: "http://b/documents/d1", Type: "pdf"}

	event := NewDocumentEvent(doc, now)
	if event.Type != EventDocumentSelected || event.Document == nil || event.Document.ID != "d1" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.Document == doc {
		t.Fatalf("event must carry a copy of the descriptor")
	}
	if !event.OccurredAt.Equal(now) || event.OccurredAt.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp, got %v", event.OccurredAt)
	}

	cleared := NewDocumentEvent(nil, now)
	if cleared.Type != EventDocumentCleared || cleared.Document != nil {
		t.Fatalf("unexpected clear event: %+v", cleared)
	}
}

func TestDocumentEventJSONShape(t *testing.T) {
	raw, err := json.Marshal(NewDocumentEvent(nil, time.Unix(0, 0)))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["type"] != EventDocumentCleared {
		t.Fatalf("unexpected type %v", decoded["type"])
	}
	if _, ok := decoded["document"]; ok {
		t.Fatalf("cleared event must omit document")
	}
}

func TestClassifyNATSError(t *testing.T) {
	if classifyNATSError(context.Canceled).RecordFailure {
		t.Fatalf("canceled must not be recorded")
	}
	if !classifyNATSError(nats.ErrNoServers).RecordFailure {
		t.Fatalf("no servers must be recorded")
	}
	if !classifyNATSError(errors.New("other")).RecordFailure {
		t.Fatalf("unknown errors must be recorded")
	}
}

func TestWrapNetworkFailureIfNeeded(t *testing.T) {
	wrapped := wrapNetworkFailureIfNeeded(fmt.Errorf("nats publish: %w", nats.ErrConnectionClosed))
	if !domain.IsKind(wrapped, domain.ErrNetworkFailure) {
		t.Fatalf("expected network failure, got %v", wrapped)
	}
	open := wrapNetworkFailureIfNeeded(gobreaker.ErrOpenState)
	if !domain.IsKind(open, domain.ErrNetworkFailure) {
		t.Fatalf("expected network failure for open circuit, got %v", open)
	}
	plain := errors.New("bad subject")
	if got := wrapNetworkFailureIfNeeded(plain); got != plain {
		t.Fatalf("expected passthrough, got %v", got)
	}
}
