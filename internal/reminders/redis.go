package reminders

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	pendingSetKey    = "reminders:pending"
	payloadKeyPrefix = "reminders:payload:"
)

// RedisScheduler implements Scheduler on a Redis sorted set scored by fire
// time, with the full notification payload in a companion key.
type RedisScheduler struct {
	client *redis.Client
}

func NewRedisScheduler(client *redis.Client) *RedisScheduler {
	return &RedisScheduler{client: client}
}

func (s *RedisScheduler) ListScheduled(ctx context.Context) ([]Notification, error) {
	keys, err := s.client.ZRange(ctx, pendingSetKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list scheduled reminders: %w", err)
	}

	notifications := make([]Notification, 0, len(keys))
	for _, key := range keys {
		raw, err := s.client.Get(ctx, payloadKeyPrefix+key).Result()
		if err == redis.Nil {
			// Orphaned set member; drop it and move on.
			s.client.ZRem(ctx, pendingSetKey, key)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load reminder payload %s: %w", key, err)
		}
		var n Notification
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			return nil, fmt.Errorf("decode reminder payload %s: %w", key, err)
		}
		notifications = append(notifications, n)
	}
	return notifications, nil
}

func (s *RedisScheduler) Schedule(ctx context.Context, n Notification) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode reminder payload: %w", err)
	}
	if err := s.client.Set(ctx, payloadKeyPrefix+n.Key, raw, 0).Err(); err != nil {
		return fmt.Errorf("store reminder payload: %w", err)
	}
	if err := s.client.ZAdd(ctx, pendingSetKey, redis.Z{
		Score:  float64(n.FireAt.Unix()),
		Member: n.Key,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue reminder: %w", err)
	}
	return nil
}

func (s *RedisScheduler) Cancel(ctx context.Context, key string) error {
	if err := s.client.ZRem(ctx, pendingSetKey, key).Err(); err != nil {
		return fmt.Errorf("cancel reminder: %w", err)
	}
	if err := s.client.Del(ctx, payloadKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("drop reminder payload: %w", err)
	}
	return nil
}

// PopDue removes and returns every notification whose fire time is at or
// before the cutoff. Used by the dispatcher, not the reconciler.
func (s *RedisScheduler) PopDue(ctx context.Context, cutoff int64) ([]Notification, error) {
	keys, err := s.client.ZRangeByScore(ctx, pendingSetKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", cutoff),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}

	due := make([]Notification, 0, len(keys))
	for _, key := range keys {
		raw, err := s.client.Get(ctx, payloadKeyPrefix+key).Result()
		if err == nil {
			var n Notification
			if jsonErr := json.Unmarshal([]byte(raw), &n); jsonErr == nil {
				due = append(due, n)
			}
		}
		if err := s.Cancel(ctx, key); err != nil {
			return due, err
		}
	}
	return due, nil
}
