// Package pubsub provides a generic publish/subscribe event system used to fan
// command state changes and log entries out to UI listeners.
package pubsub

import (
	"context"
	"time"
)

// EventType represents the type of event being published.
type EventType string

const (
	// CreatedEvent announces a new item (log entries, run records).
	CreatedEvent EventType = "created"
	// ChangedEvent announces that observable command state changed.
	ChangedEvent EventType = "changed"
	// ClosedEvent announces that the publisher was disposed.
	ClosedEvent EventType = "closed"
)

// Event represents a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
