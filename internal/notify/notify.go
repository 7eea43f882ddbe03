// Package notify delivers fire-and-forget pipeline notifications.
//
// Delivery is never allowed to fail a workflow step: every implementation
// swallows its own errors after logging them. Events are published to NATS
// and/or POSTed to a webhook, depending on configuration.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// EventType identifies what happened.
type EventType string

const (
	EventOutlineReady    EventType = "outline_ready"
	EventChapterReady    EventType = "chapter_ready"
	EventWaitingForNotes EventType = "waiting_for_notes"
	EventBookPaused      EventType = "book_paused"
	EventDraftReady      EventType = "draft_ready"
	EventError           EventType = "error"
)

// Event is one notification payload.
type Event struct {
	Type      EventType `json:"type"`
	BookID    string    `json:"book_id"`
	BookTitle string    `json:"book_title"`
	Detail    string    `json:"detail"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier sends events. Implementations log and swallow their own
// failures; Notify never returns an error by contract.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// Noop discards every event.
type Noop struct{}

// Notify implements Notifier.
func (Noop) Notify(ctx context.Context, event Event) {}

// Multi fans events out to several notifiers.
type Multi struct {
	notifiers []Notifier
}

// NewMulti builds a fan-out notifier. Nil entries are skipped.
func NewMulti(notifiers ...Notifier) *Multi {
	m := &Multi{}
	for _, n := range notifiers {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

// Notify implements Notifier.
func (m *Multi) Notify(ctx context.Context, event Event) {
	for _, n := range m.notifiers {
		n.Notify(ctx, event)
	}
}

func stamp(event Event) Event {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return event
}

func logDelivery(logger *zap.Logger, transport string, event Event, err error) {
	if err != nil {
		// Swallowed: notification failure must never fail a workflow step.
		logger.Warn("notification delivery failed",
			zap.String("transport", transport),
			zap.String("event", string(event.Type)),
			zap.String("book_title", event.BookTitle),
			zap.Error(err))
		return
	}
	logger.Debug("notification delivered",
		zap.String("transport", transport),
		zap.String("event", string(event.Type)))
}
