package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knomee/pkg/domain"
	dErrors "knomee/pkg/domain-errors"
)

func TestPublisherStampsMissingFields(t *testing.T) {
	store := NewMemoryStore()
	p := NewPublisher(store)

	err := p.Emit(context.Background(), Event{
		Action:  ActionClaimCreated,
		ClaimID: 7,
		Actor:   domain.Address("alice"),
	})
	require.NoError(t, err)

	events := store.ByAction(ActionClaimCreated)
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].Timestamp.IsZero())
	assert.Equal(t, domain.ClaimID(7), events[0].ClaimID)
}

func TestPublisherKeepsProvidedStamps(t *testing.T) {
	store := NewMemoryStore()
	p := NewPublisher(store)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err := p.Emit(context.Background(), Event{
		ID:        "evt-1",
		Action:    ActionVouchCast,
		Timestamp: at,
	})
	require.NoError(t, err)

	events := store.ByAction(ActionVouchCast)
	require.Len(t, events, 1)
	assert.Equal(t, "evt-1", events[0].ID)
	assert.Equal(t, at, events[0].Timestamp)
}

func TestChannelStoreDropsWhenFull(t *testing.T) {
	inbox := make(ChannelStore, 1)

	require.NoError(t, inbox.Append(context.Background(), Event{Action: ActionVouchCast}))

	err := inbox.Append(context.Background(), Event{Action: ActionVouchCast})
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeInternal))
}

func TestWorkerDrainsInboxIntoStore(t *testing.T) {
	store := NewMemoryStore()
	inbox := make(ChannelStore, 8)
	w := NewWorker(store, inbox)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	p := NewPublisher(inbox)
	for i := 0; i < 3; i++ {
		require.NoError(t, p.Emit(ctx, Event{Action: ActionClaimResolved}))
	}

	require.Eventually(t, func() bool {
		return store.Len() == 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, store.ByAction(ActionClaimResolved), 3)
}
