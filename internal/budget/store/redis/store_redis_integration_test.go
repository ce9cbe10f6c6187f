//go:build integration

package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/budget"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/testutil/containers"
)

func TestConsumeLifecycle(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	store := New(rc.Client, budget.Limits{Cap: 3, Window: time.Minute})

	grant, err := store.Consume(ctx, "patient-1", 1)
	require.NoError(t, err)
	assert.True(t, grant.Granted)
	assert.InDelta(t, 2, grant.Remaining, 1e-9)

	grant, err = store.Consume(ctx, "patient-1", 2)
	require.NoError(t, err)
	assert.True(t, grant.Granted)
	assert.InDelta(t, 0, grant.Remaining, 1e-9)

	grant, err = store.Consume(ctx, "patient-1", 0.5)
	require.NoError(t, err)
	assert.False(t, grant.Granted)

	// Budgets are tracked per principal.
	grant, err = store.Consume(ctx, "patient-2", 1)
	require.NoError(t, err)
	assert.True(t, grant.Granted)
	assert.InDelta(t, 2, grant.Remaining, 1e-9)
}

func TestConsumeConcurrentSpend(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	store := New(rc.Client, budget.Limits{Cap: 5, Window: time.Minute})

	var granted, failed atomic.Int64
	var wg sync.WaitGroup
	for range 20 {
		wg.Go(func() {
			grant, err := store.Consume(ctx, "patient-1", 1)
			if err != nil {
				failed.Add(1)
				return
			}
			if grant.Granted {
				granted.Add(1)
			}
		})
	}
	wg.Wait()

	require.Zero(t, failed.Load())
	assert.Equal(t, int64(5), granted.Load())
}

func TestWindowExpiry(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	store := New(rc.Client, budget.Limits{Cap: 1, Window: 300 * time.Millisecond})

	grant, err := store.Consume(ctx, "patient-1", 1)
	require.NoError(t, err)
	require.True(t, grant.Granted)

	grant, err = store.Consume(ctx, "patient-1", 1)
	require.NoError(t, err)
	require.False(t, grant.Granted)

	time.Sleep(600 * time.Millisecond)

	grant, err = store.Consume(ctx, "patient-1", 1)
	require.NoError(t, err)
	assert.True(t, grant.Granted)
}

func TestConsumeValidation(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	store := New(rc.Client, budget.DefaultLimits())

	_, err := store.Consume(ctx, "", 1)
	assert.Error(t, err)

	_, err = store.Consume(ctx, "patient-1", -0.5)
	assert.Error(t, err)
}
