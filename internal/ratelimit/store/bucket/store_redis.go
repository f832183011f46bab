package bucket

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"commune/internal/ratelimit/models"
)

// slidingWindowScript trims the window, counts, conditionally records the
// request and reports the oldest timestamp, all in one round trip.
//
// KEYS[1] bucket key; ARGV: now (ms), window (ms), limit, member.
// Returns {allowed, count, oldest_ms}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
local allowed = 0
if count < limit then
	redis.call('ZADD', key, now, ARGV[4])
	redis.call('PEXPIRE', key, window)
	count = count + 1
	allowed = 1
end

local oldest = now
local first = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if first[2] then
	oldest = tonumber(first[2])
end
return {allowed, count, oldest}
`)

// RedisClient is the subset of *redis.Client the store uses.
type RedisClient interface {
	redis.Scripter
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisBucketStore shares sliding windows across replicas with one sorted
// set per key. Scores are request times in milliseconds.
type RedisBucketStore struct {
	client RedisClient
	now    func() time.Time
}

// NewRedisBucketStore creates a Redis-backed store.
func NewRedisBucketStore(client RedisClient) *RedisBucketStore {
	return &RedisBucketStore{client: client, now: time.Now}
}

func (s *RedisBucketStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	now := s.now()
	vals, err := slidingWindowScript.Run(ctx, s.client, []string{key},
		now.UnixMilli(),
		window.Milliseconds(),
		limit,
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("redis sliding window %s: %w", key, err)
	}
	if len(vals) != 3 {
		return nil, fmt.Errorf("redis sliding window %s: unexpected reply %v", key, vals)
	}

	resetAt := time.UnixMilli(vals[2]).Add(window)
	return models.NewResult(vals[0] == 1, limit, int(vals[1]), resetAt, now), nil
}

// Reset clears the window for key.
func (s *RedisBucketStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis reset %s: %w", key, err)
	}
	return nil
}
