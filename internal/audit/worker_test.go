package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelSinkDropsWhenFull(t *testing.T) {
	sink := NewChannelSink(2)
	ctx := context.Background()

	require.NoError(t, sink.Append(ctx, Event{ID: "e-0"}))
	require.NoError(t, sink.Append(ctx, Event{ID: "e-1"}))
	require.NoError(t, sink.Append(ctx, Event{ID: "e-2"}), "drop is not an error for the caller")

	assert.Equal(t, int64(1), sink.Dropped())
	assert.Len(t, sink.Events(), 2)
}

func TestChannelSinkMinimumBuffer(t *testing.T) {
	sink := NewChannelSink(0)
	ctx := context.Background()

	require.NoError(t, sink.Append(ctx, Event{ID: "e-0"}))
	require.NoError(t, sink.Append(ctx, Event{ID: "e-1"}))
	assert.Equal(t, int64(1), sink.Dropped())
}

func TestWorkerPersistsAndDrains(t *testing.T) {
	sink := NewChannelSink(8)
	store := &captureStore{}
	worker := NewWorker(store, sink.Events())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	for i := 0; i < 5; i++ {
		require.NoError(t, sink.Append(ctx, Event{ID: fmt.Sprintf("e-%d", i)}))
	}
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)

	events := store.list()
	require.Len(t, events, 5, "buffered events drain before shutdown")
	for i, event := range events {
		assert.Equal(t, fmt.Sprintf("e-%d", i), event.ID, "append order preserved")
	}
}

type flakyStore struct {
	mu       sync.Mutex
	events   []Event
	failID   string
	attempts int
}

func (s *flakyStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if event.ID == s.failID {
		return errors.New("sink down")
	}
	s.events = append(s.events, event)
	return nil
}

func TestWorkerContinuesAfterAppendError(t *testing.T) {
	sink := NewChannelSink(8)
	store := &flakyStore{failID: "bad"}
	worker := NewWorker(store, sink.Events())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	require.NoError(t, sink.Append(ctx, Event{ID: "bad"}))
	require.NoError(t, sink.Append(ctx, Event{ID: "good"}))
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, 2, store.attempts, "failed append does not stop the worker")
	require.Len(t, store.events, 1)
	assert.Equal(t, "good", store.events[0].ID)
}
