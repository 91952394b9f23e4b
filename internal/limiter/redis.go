package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vetintel/aigateway/internal/limits"
)

// rateLimitScript runs the whole window state machine server-side so the
// read-modify-write is atomic per key across gateway instances.
//
// KEYS[1] = record key
// ARGV[1] = now (unix millis)
// ARGV[2] = window length (millis)
// ARGV[3] = capacity
// ARGV[4] = client address (last seen, recorded on admissions)
// Returns: {allowed (1/0), remaining, reset_at_millis}
var rateLimitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])
local ip = ARGV[4]

local rec = redis.call("HMGET", key, "window_start", "count", "blocked_until")
local ws = tonumber(rec[1])
local count = tonumber(rec[2])
local blocked = tonumber(rec[3])
if blocked == nil then blocked = 0 end

-- No record, or window and block both elapsed: open a fresh window.
if ws == nil or (ws + window <= now and blocked <= now) then
  redis.call("HSET", key, "window_start", now, "count", 1, "blocked_until", 0, "ip", ip)
  redis.call("PEXPIRE", key, window * 2)
  return {1, max - 1, now + window}
end

if blocked > now then
  return {0, 0, blocked}
end

if count >= max then
  local blockUntil = ws + window
  redis.call("HSET", key, "blocked_until", blockUntil)
  redis.call("PEXPIRE", key, (blockUntil - now) + window)
  return {0, 0, blockUntil}
end

redis.call("HSET", key, "count", count + 1, "ip", ip)
return {1, max - count - 1, ws + window}
`)

// RedisStore keeps rate-limit records in Redis, one hash per
// (endpoint, user) key. Safe with multiple gateway instances.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "ratelimit:"}
}

func (s *RedisStore) Allow(ctx context.Context, userID, endpoint, clientIP string, rule limits.Rule) (Decision, error) {
	key := s.prefix + endpoint + ":" + userID
	now := time.Now()

	res, err := rateLimitScript.Run(ctx, s.client, []string{key},
		now.UnixMilli(), rule.Window.Milliseconds(), rule.MaxRequests, clientIP).Result()
	if err != nil {
		return Decision{}, err
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) < 3 {
		return Decision{}, fmt.Errorf("limiter: unexpected script result %T", res)
	}
	allowed, _ := vals[0].(int64)
	remaining, _ := vals[1].(int64)
	resetAtMs, _ := vals[2].(int64)

	return Decision{
		Allowed:   allowed == 1,
		Remaining: int(remaining),
		ResetAt:   time.UnixMilli(resetAtMs),
	}, nil
}
