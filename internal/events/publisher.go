package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/clearway-ai/chat-gateway/internal/model"
)

const (
	// StreamName is the name of the session events stream.
	StreamName = "CHAT_EVENTS"

	// SubjectPrefix is the prefix for all event subjects.
	SubjectPrefix = "chat"
)

// Publisher writes session events to JetStream. A nil Publisher is valid and
// drops everything, so event publishing stays optional.
type Publisher struct {
	client *Client
}

// NewPublisher creates a new event publisher.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// EnsureStream ensures the events stream exists with proper configuration.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	if p == nil || p.client == nil {
		return nil
	}
	js := p.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		MaxBytes:    1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Session state-change events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// EventSubject returns the subject for an event.
func EventSubject(sessionID string, eventType model.EventType) string {
	if sessionID == "" {
		sessionID = "_global"
	}
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, sessionID, eventType)
}

// Publish publishes a session event. Nil receivers drop the event.
func (p *Publisher) Publish(ctx context.Context, event *model.SessionEvent) error {
	if p == nil || p.client == nil {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := EventSubject(event.SessionID, event.Type)
	if _, err := p.client.JetStream().Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
