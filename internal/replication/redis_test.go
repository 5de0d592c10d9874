package replication

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/clinic-treatment-board/internal/clock"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisStore_WriteSetsKey(t *testing.T) {
	mr, rdb := newRedis(t)
	store := NewRedisStore(rdb, "clinic_state", zap.NewNop())

	require.NoError(t, store.Write(context.Background(), Snapshot{Origin: "a", State: named("Kim")}))

	raw, err := mr.Get("clinic_state")
	require.NoError(t, err)
	var got Snapshot
	require.NoError(t, json.Unmarshal([]byte(raw), &got))
	assert.Equal(t, "a", got.Origin)
	assert.Equal(t, "Kim", got.State.Bays[0].PatientName)
}

func TestRedisStore_SubscribeEmitsStoredThenPublished(t *testing.T) {
	_, rdb := newRedis(t)
	store := NewRedisStore(rdb, "clinic_state", zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, store.Write(ctx, Snapshot{Origin: "a", State: named("Stored")}))
	snaps, err := store.Subscribe(ctx)
	require.NoError(t, err)

	first := <-snaps
	assert.Equal(t, "Stored", first.State.Bays[0].PatientName)

	require.NoError(t, store.Write(ctx, Snapshot{Origin: "b", State: named("Published")}))
	select {
	case next := <-snaps:
		assert.Equal(t, "b", next.Origin)
		assert.Equal(t, "Published", next.State.Bays[0].PatientName)
	case <-time.After(2 * time.Second):
		t.Fatal("published snapshot not received")
	}
}

func TestRedisStore_TwoProcessesConverge(t *testing.T) {
	_, rdb := newRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, NewRedisStore(rdb, "clinic_state", zap.NewNop()).Write(ctx, Snapshot{Origin: "seed", State: named("Seed")}))

	cfg := func(origin string) Config { return Config{Origin: origin, EchoWindow: time.Millisecond} }
	a := New(NewRedisStore(rdb, "clinic_state", zap.NewNop()), cfg("a"), clock.Real{}, nil, zap.NewNop())
	b := New(NewRedisStore(rdb, "clinic_state", zap.NewNop()), cfg("b"), clock.Real{}, nil, zap.NewNop())
	aApplied, bApplied := &recordingApplier{}, &recordingApplier{}
	go a.Run(ctx, aApplied)
	go b.Run(ctx, bApplied)

	// both adopt the stored copy once subscribed
	require.Eventually(t, func() bool { return aApplied.count() == 1 && bApplied.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, b.Status().Synced)

	require.Eventually(t, func() bool { return a.Push(named("Kim")) }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return bApplied.count() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, aApplied.count(), "a ignores its own write")
	bApplied.mu.Lock()
	assert.Equal(t, "Kim", bApplied.states[1].Bays[0].PatientName)
	bApplied.mu.Unlock()
}
