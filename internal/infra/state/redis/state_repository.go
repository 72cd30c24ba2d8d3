// Package redisstate implements repository.StateRepository on Redis.
package redisstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/abhaypanchalprogrammer/HasText/internal/domain"
	"github.com/abhaypanchalprogrammer/HasText/internal/repository"
)

// RedisStateRepository keeps the volatile per-room state: the room record
// cache, presence counters, rate-limit counters, and the publish side of the
// change feed.
type RedisStateRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStateRepository creates the repository. keyPrefix namespaces every
// key so multiple deployments can share one Redis.
func NewRedisStateRepository(client *redis.Client, keyPrefix string) *RedisStateRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisStateRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "ht:"
	}
	return &RedisStateRepository{client: client, keyPrefix: keyPrefix}
}

// --- key helpers ---

func (r *RedisStateRepository) roomCacheKey(code string) string {
	return fmt.Sprintf("%sroom:%s:record", r.keyPrefix, code)
}

func (r *RedisStateRepository) roomPresenceKey(code string) string {
	return fmt.Sprintf("%sroom:%s:presence", r.keyPrefix, code)
}

// FeedChannel returns the pub/sub channel carrying a room's update events.
// Exported because the hub subscribes to it directly.
func (r *RedisStateRepository) FeedChannel(code string) string {
	return fmt.Sprintf("%sroom:%s:feed", r.keyPrefix, code)
}

// GetRoomCache returns the cached room record, repository.ErrNotFound on a
// miss.
func (r *RedisStateRepository) GetRoomCache(ctx context.Context, code string) (*domain.Room, error) {
	key := r.roomCacheKey(code)
	payload, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get room cache for '%s' from %s: %w", code, key, err)
	}
	var room domain.Room
	if err := json.Unmarshal([]byte(payload), &room); err != nil {
		return nil, fmt.Errorf("redis: unmarshal room cache for '%s' from %s: %w", code, key, err)
	}
	return &room, nil
}

// SetRoomCache stores the room record. ttlSeconds of 0 means no expiry.
func (r *RedisStateRepository) SetRoomCache(ctx context.Context, code string, room *domain.Room, ttlSeconds int) error {
	key := r.roomCacheKey(code)
	payload, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("redis: marshal room cache for '%s': %w", code, err)
	}
	ttl := time.Duration(ttlSeconds) * time.Second
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set room cache for '%s' on %s: %w", code, key, err)
	}
	return nil
}

// InvalidateRoomCache drops the cached record.
func (r *RedisStateRepository) InvalidateRoomCache(ctx context.Context, code string) error {
	key := r.roomCacheKey(code)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis: invalidate room cache for '%s' on %s: %w", code, key, err)
	}
	return nil
}

// PublishUpdate pushes an update event onto the room's feed channel.
func (r *RedisStateRepository) PublishUpdate(ctx context.Context, code string, update domain.RoomUpdate) error {
	channel := r.FeedChannel(code)
	payload, err := update.Encode()
	if err != nil {
		return fmt.Errorf("redis: marshal room update for '%s': %w", code, err)
	}
	if err := r.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish room update to %s: %w", channel, err)
	}
	return nil
}

// IncrPresence bumps the room's connected-participant counter.
func (r *RedisStateRepository) IncrPresence(ctx context.Context, code string) (int64, error) {
	key := r.roomPresenceKey(code)
	pipe := r.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis: incr presence for '%s' on %s: %w", code, key, err)
	}
	return incr.Val(), nil
}

// DecrPresence drops the counter, flooring at zero.
func (r *RedisStateRepository) DecrPresence(ctx context.Context, code string) (int64, error) {
	key := r.roomPresenceKey(code)
	n, err := r.client.Decr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: decr presence for '%s' on %s: %w", code, key, err)
	}
	if n < 0 {
		// Counter drifted (e.g. key expired mid-session); clamp it.
		if err := r.client.Set(ctx, key, "0", 24*time.Hour).Err(); err != nil {
			return 0, fmt.Errorf("redis: reset presence for '%s' on %s: %w", code, key, err)
		}
		n = 0
	}
	return n, nil
}

// GetPresence returns the current counter, 0 when absent.
func (r *RedisStateRepository) GetPresence(ctx context.Context, code string) (int64, error) {
	key := r.roomPresenceKey(code)
	n, err := r.client.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis: get presence for '%s' from %s: %w", code, key, err)
	}
	return n, nil
}

// CheckRateLimit increments the counter behind key and reports whether the
// limit was exceeded within the window. INCR and EXPIRE run in one pipeline
// to narrow the race between counting and expiry.
func (r *RedisStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	pipe := r.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: rate limit pipeline for %s: %w", key, err)
	}
	count, err := incr.Result()
	if err != nil {
		return false, fmt.Errorf("redis: rate limit incr result for %s: %w", key, err)
	}
	return count > int64(limit), nil
}

// CleanupRoomState removes a room's volatile keys.
func (r *RedisStateRepository) CleanupRoomState(ctx context.Context, code string) error {
	keys := []string{r.roomCacheKey(code), r.roomPresenceKey(code)}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis: cleanup state for room '%s': %w", code, err)
	}
	return nil
}
