package behavior

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "behavior.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Record(ctx, Event{Timestamp: base, Type: EventHit, RuleID: "R001_PLAN_EXEC_REASONING"}))
	require.NoError(t, store.Record(ctx, Event{Timestamp: base.Add(time.Second), Type: EventContinue}))

	events, err := store.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventHit, events[0].Type)
	assert.Equal(t, "R001_PLAN_EXEC_REASONING", events[0].RuleID)
	assert.NotEmpty(t, events[0].ID, "ids are assigned when absent")
	assert.Equal(t, EventContinue, events[1].Type)
	assert.True(t, events[0].Timestamp.Equal(base))
}

func TestRecordDefaultsTimestamp(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	before := time.Now().Add(-time.Second)
	require.NoError(t, store.Record(ctx, Event{Type: EventHit}))
	events, err := store.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].Timestamp.After(before))
}

func TestCapacityEviction(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < MaxEvents+25; i++ {
		require.NoError(t, store.Record(ctx, Event{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Type:      EventHit,
		}))
	}

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, MaxEvents, count)

	events, err := store.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, MaxEvents)
	// Oldest 25 evicted: the first surviving event is number 25.
	assert.True(t, events[0].Timestamp.Equal(base.Add(25*time.Second)))
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Record(ctx, Event{Type: EventHit}))
	require.NoError(t, store.Clear(ctx))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
