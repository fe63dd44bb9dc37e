package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/docqa-client/internal/core/domain"
	"github.com/kirillkom/docqa-client/internal/infrastructure/resilience"
)

const (
	EventDocumentSelected = "document.selected"
	EventDocumentCleared  = "document.cleared"
)

// DocumentEvent announces a change of the current document.
type DocumentEvent struct {
	Type       string                     `json:"type"`
	Document   *domain.DocumentDescriptor `json:"document,omitempty"`
	OccurredAt time.Time                  `json:"occurred_at"`
}

func NewDocumentEvent(doc *domain.DocumentDescriptor, now time.Time) DocumentEvent {
	event := DocumentEvent{Type: EventDocumentCleared, OccurredAt: now.UTC()}
	if doc != nil {
		copied := *doc
		event.Type = EventDocumentSelected
		event.Document = &copied
	}
	return event
}

// Bus publishes and follows current-document events on one subject.
type Bus struct {
	conn    *nats.Conn
	subject string
	breaker *resilience.Breaker
	now     func() time.Time
}

type Options struct {
	Name                 string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	Breaker              *resilience.Breaker
}

func New(url, subject string, options Options) (*Bus, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	name := options.Name
	if name == "" {
		name = "docqa-client"
	}

	conn, err := nats.Connect(
		url,
		nats.Name(name),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Bus{
		conn:    conn,
		subject: subject,
		breaker: options.Breaker,
		now:     time.Now,
	}, nil
}

func (b *Bus) Close() {
	if b.conn != nil {
		b.conn.Close()
	}
}

// PublishDocumentChanged announces doc as the current document, or a clear when doc is nil.
func (b *Bus) PublishDocumentChanged(ctx context.Context, doc *domain.DocumentDescriptor) error {
	payload, err := json.Marshal(NewDocumentEvent(doc, b.now()))
	if err != nil {
		return fmt.Errorf("marshal document event: %w", err)
	}

	call := func(_ context.Context) error {
		if err := b.conn.Publish(b.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}
	if err := b.breaker.Execute(ctx, "nats.publish", call, classifyNATSError); err != nil {
		return wrapNetworkFailureIfNeeded(err)
	}
	return nil
}

// SubscribeDocumentChanged delivers events to handler until ctx is done.
func (b *Bus) SubscribeDocumentChanged(ctx context.Context, handler func(context.Context, DocumentEvent) error) error {
	sub, err := b.conn.Subscribe(b.subject, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		var event DocumentEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			slog.Warn("document_event_decode_failed", "subject", msg.Subject, "error", err)
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, event); err != nil {
			slog.Error("document_event_handler_failed", "type", event.Type, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := b.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := b.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}
