package vault

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRing_BoundedDropOldest(t *testing.T) {
	ring := newEventRing(3)

	for i := 0; i < 5; i++ {
		ring.record(SecurityEvent{
			Time:   time.Now(),
			Kind:   EventIntegrityMismatch,
			Detail: fmt.Sprintf("event-%d", i),
		})
	}

	assert.Equal(t, 3, ring.len())
	assert.Equal(t, int64(2), ring.droppedCount())

	events := ring.snapshot()
	require.Len(t, events, 3)
	assert.Equal(t, "event-2", events[0].Detail, "oldest surviving event first")
	assert.Equal(t, "event-4", events[2].Detail)
}

func TestEventRing_SnapshotDoesNotConsume(t *testing.T) {
	ring := newEventRing(4)
	ring.record(SecurityEvent{Kind: EventDecryptFailure, Detail: "one"})

	first := ring.snapshot()
	second := ring.snapshot()
	assert.Equal(t, first, second)
	assert.Equal(t, 1, ring.len())
}

func TestEventRing_DefaultCapacity(t *testing.T) {
	ring := newEventRing(0)
	assert.Equal(t, 256, ring.capacity)
}

func TestVault_SecurityEventsSnapshotOrder(t *testing.T) {
	v, err := New(testRoot(), WithEventCapacity(2))
	require.NoError(t, err)

	env, err := v.Seal([]byte("x"))
	require.NoError(t, err)

	// Three rejections against capacity two: the first event is dropped.
	for i := 0; i < 3; i++ {
		bad := env
		bad.Tag = append([]byte{env.Tag[0] ^ byte(i+1)}, env.Tag[1:]...)
		_, openErr := v.Open(bad)
		require.Error(t, openErr)
	}

	events := v.SecurityEvents()
	require.Len(t, events, 2)
	assert.Equal(t, int64(1), v.DroppedSecurityEvents())
	assert.False(t, events[0].Time.After(events[1].Time))
}
