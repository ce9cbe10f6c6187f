//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/audit"
	txcontext "github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/platform/tx"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/testutil/containers"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	pc := containers.NewPostgresContainer(t)

	db, err := sql.Open("postgres", pc.DSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := New(db)
	require.NoError(t, store.EnsureSchema(context.Background()))
	// Schema installation is idempotent.
	require.NoError(t, store.EnsureSchema(context.Background()))
	return store
}

func testEvent(id, pseudonym string, at time.Time) audit.Event {
	return audit.Event{
		ID:        id,
		Timestamp: at,
		Type:      audit.EventMetricsCollected,
		Pseudonym: pseudonym,
		Details:   map[string]string{"records": "3"},
		Signature: "c2lnbmF0dXJl",
	}
}

func TestAppendAndListByPseudonym(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	base := time.Date(2025, 11, 2, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, testEvent("evt-2", "pseud-a", base.Add(time.Minute))))
	require.NoError(t, store.Append(ctx, testEvent("evt-1", "pseud-a", base)))
	require.NoError(t, store.Append(ctx, testEvent("evt-3", "pseud-b", base.Add(2*time.Minute))))

	events, err := store.ListByPseudonym(ctx, "pseud-a", 0)
	require.NoError(t, err)
	require.Len(t, events, 2)

	// Oldest first regardless of insert order.
	assert.Equal(t, "evt-1", events[0].ID)
	assert.Equal(t, "evt-2", events[1].ID)
	assert.Equal(t, audit.EventMetricsCollected, events[0].Type)
	assert.Equal(t, map[string]string{"records": "3"}, events[0].Details)
	assert.Equal(t, "c2lnbmF0dXJl", events[0].Signature)
	assert.True(t, events[0].Timestamp.Equal(base))
}

func TestAppendIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	event := testEvent("evt-1", "pseud-a", time.Date(2025, 11, 2, 9, 0, 0, 0, time.UTC))

	require.NoError(t, store.Append(ctx, event))
	require.NoError(t, store.Append(ctx, event))

	events, err := store.ListByPseudonym(ctx, "pseud-a", 0)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestListRecent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	base := time.Date(2025, 11, 2, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"evt-1", "evt-2", "evt-3"} {
		require.NoError(t, store.Append(ctx, testEvent(id, "pseud-a", base.Add(time.Duration(i)*time.Minute))))
	}

	events, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)

	// Newest first.
	assert.Equal(t, "evt-3", events[0].ID)
	assert.Equal(t, "evt-2", events[1].ID)
}

func TestAppendJoinsCallerTransaction(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	base := time.Date(2025, 11, 2, 9, 0, 0, 0, time.UTC)

	rolledBack, err := store.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.Append(txcontext.WithTx(ctx, rolledBack), testEvent("evt-rolled", "pseud-tx", base)))
	require.NoError(t, rolledBack.Rollback())

	events, err := store.ListByPseudonym(ctx, "pseud-tx", 0)
	require.NoError(t, err)
	assert.Empty(t, events, "rolled-back appends never surface")

	committed, err := store.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.Append(txcontext.WithTx(ctx, committed), testEvent("evt-committed", "pseud-tx", base)))
	require.NoError(t, committed.Commit())

	events, err = store.ListByPseudonym(ctx, "pseud-tx", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "evt-committed", events[0].ID)
}
