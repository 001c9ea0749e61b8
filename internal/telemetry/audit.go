package telemetry

import (
	"context"
	"time"

	jww "github.com/spf13/jwalterweatherman"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// AuditEmitter records security-relevant channel actions on the audit exchange.
type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
	now         func() time.Time
}

type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	UserID        *string      `json:"user_id,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

type AuditPayload struct {
	Level     string `json:"level"`
	Action    string `json:"action"`
	ChannelID string `json:"channel_id,omitempty"`
	Text      string `json:"text"`
}

// AuditEvent is what callers hand to Emit.
type AuditEvent struct {
	Level     string
	Action    string
	ChannelID string
	Text      string
	RequestID string
	UserID    string
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
		now:         time.Now,
	}
}

// Emit publishes ev. Failures are logged, never returned.
func (e *AuditEmitter) Emit(ctx context.Context, ev AuditEvent) {
	if e == nil || e.publisher == nil {
		return
	}

	jww.DEBUG.Printf("audit emit: level=%s action=%s request_id=%s user_id=%s text=%q", ev.Level, ev.Action, ev.RequestID, ev.UserID, ev.Text)
	envelope := AuditEnvelope{
		SchemaVersion: 1,
		EventType:     "audit_log",
		OccurredAt:    e.now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     ev.RequestID,
		Payload: AuditPayload{
			Level:     ev.Level,
			Action:    ev.Action,
			ChannelID: ev.ChannelID,
			Text:      ev.Text,
		},
	}
	if ev.UserID != "" {
		userID := ev.UserID
		envelope.UserID = &userID
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope); err != nil {
		jww.WARN.Printf("audit publish failed: %v", err)
	}
}
