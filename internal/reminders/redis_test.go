package reminders

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisScheduler(t *testing.T) *RedisScheduler {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewRedisScheduler(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestRedisScheduleAndList(t *testing.T) {
	s := newRedisScheduler(t)
	ctx := context.Background()

	n := Notification{
		Key:    "medical_medrec_1_2025-12-20_60",
		Title:  "Vet visit",
		FireAt: time.Now().Add(time.Hour),
		Data:   map[string]string{"orgId": "org_1"},
	}
	require.NoError(t, s.Schedule(ctx, n))

	listed, err := s.ListScheduled(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, n.Key, listed[0].Key)
	assert.Equal(t, "org_1", listed[0].Data["orgId"])
}

func TestRedisCancel(t *testing.T) {
	s := newRedisScheduler(t)
	ctx := context.Background()

	require.NoError(t, s.Schedule(ctx, Notification{Key: "k1", FireAt: time.Now().Add(time.Hour)}))
	require.NoError(t, s.Cancel(ctx, "k1"))

	listed, err := s.ListScheduled(ctx)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestRedisScheduleIdempotentPerKey(t *testing.T) {
	s := newRedisScheduler(t)
	ctx := context.Background()

	n := Notification{Key: "k1", FireAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.Schedule(ctx, n))
	require.NoError(t, s.Schedule(ctx, n))

	listed, err := s.ListScheduled(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestRedisPopDue(t *testing.T) {
	s := newRedisScheduler(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.Schedule(ctx, Notification{Key: "due", FireAt: now.Add(-time.Minute)}))
	require.NoError(t, s.Schedule(ctx, Notification{Key: "future", FireAt: now.Add(time.Hour)}))

	due, err := s.PopDue(ctx, now.Unix())
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "due", due[0].Key)

	remaining, err := s.ListScheduled(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "future", remaining[0].Key)
}
