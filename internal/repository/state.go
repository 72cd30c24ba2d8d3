package repository

import (
	"context"
	"time"

	"github.com/abhaypanchalprogrammer/HasText/internal/domain"
)

// StateRepository covers the volatile per-room state kept in Redis: the room
// record cache, presence counters, rate limiting, and the change-feed
// publish side. Feed subscriptions are held by the hub directly.
type StateRepository interface {
	// === Room record cache ===

	// GetRoomCache returns the cached room record, ErrNotFound on a miss.
	GetRoomCache(ctx context.Context, code string) (*domain.Room, error)

	// SetRoomCache stores the room record with the given TTL in seconds
	// (0 means no expiry).
	SetRoomCache(ctx context.Context, code string, room *domain.Room, ttlSeconds int) error

	// InvalidateRoomCache drops the cached record.
	InvalidateRoomCache(ctx context.Context, code string) error

	// === Change feed ===

	// PublishUpdate pushes a RoomUpdate event onto the room's feed channel.
	PublishUpdate(ctx context.Context, code string, update domain.RoomUpdate) error

	// FeedChannel returns the pub/sub channel name carrying a room's update
	// events, so the subscribe side derives keys from the same place the
	// publish side does.
	FeedChannel(code string) string

	// === Presence ===

	// IncrPresence bumps the room's connected-participant counter and
	// returns the new value.
	IncrPresence(ctx context.Context, code string) (int64, error)

	// DecrPresence drops the counter, flooring at zero, and returns the new
	// value.
	DecrPresence(ctx context.Context, code string) (int64, error)

	// GetPresence returns the current counter (0 when absent).
	GetPresence(ctx context.Context, code string) (int64, error)

	// === Rate limiting ===

	// CheckRateLimit increments the counter behind key and reports whether
	// the limit was exceeded within the window.
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	// === Housekeeping ===

	// CleanupRoomState removes the room's volatile keys (cache, presence).
	CleanupRoomState(ctx context.Context, code string) error
}
