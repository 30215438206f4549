package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Publisher stamps and persists audit events. It is append-only and writes
// through the Store so sinks can be swapped without touching emitters.
type Publisher struct {
	store Store
}

// NewPublisher creates a Publisher over the given sink.
func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// Emit stamps missing ID/timestamp fields and appends the event.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return p.store.Append(ctx, event)
}
