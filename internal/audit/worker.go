package audit

import (
	"context"

	dErrors "knomee/pkg/domain-errors"
)

// ChannelStore is a Store that hands events to a Worker via a channel,
// decoupling emitters from slow sinks. Append never blocks; a full inbox
// drops the event with an error the emitter logs.
type ChannelStore chan Event

// Append enqueues the event for the draining Worker.
func (c ChannelStore) Append(ctx context.Context, event Event) error {
	select {
	case c <- event:
		return nil
	default:
		return dErrors.New(dErrors.CodeInternal, "audit inbox full, event dropped")
	}
}

// Worker drains audit events from a channel into a store, keeping emitters
// off the persistence path. It stops on context cancellation.
type Worker struct {
	store Store
	inbox <-chan Event
}

// NewWorker creates a Worker reading from inbox.
func NewWorker(store Store, inbox <-chan Event) *Worker {
	return &Worker{store: store, inbox: inbox}
}

// Run consumes until the context is cancelled or a store append fails.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				return err
			}
		}
	}
}
