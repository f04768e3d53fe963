package ratelimit

import (
	"context"
	"log"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"docchat/internal/redis"
)

const redisKeyPrefix = "docchat:ratelimit:"

// admitScript mirrors Memory.Admit atomically.
// KEYS[1] record key; ARGV: now (ms), window (ms), limit, ttl (ms).
var admitScript = redislib.NewScript(`
local count = tonumber(redis.call('HGET', KEYS[1], 'count'))
local start = tonumber(redis.call('HGET', KEYS[1], 'start'))
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
if (not count) or (not start) or (now - start > window) then
	redis.call('HSET', KEYS[1], 'count', 1, 'start', now)
	redis.call('PEXPIRE', KEYS[1], tonumber(ARGV[4]))
	return 1
end
if count >= limit then
	return 0
end
redis.call('HINCRBY', KEYS[1], 'count', 1)
return 1
`)

// Redis shares window records across processes. Redis failures admit the request.
type Redis struct {
	client *redis.Client
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRedis builds a limiter backed by client.
func NewRedis(client *redis.Client, limit int, window time.Duration) *Redis {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Redis{client: client, limit: limit, window: window, now: time.Now}
}

func (r *Redis) Admit(ctx context.Context, userID string) bool {
	windowMs := r.window.Milliseconds()
	res, err := r.client.RunScript(ctx, admitScript,
		[]string{redisKeyPrefix + userID},
		r.now().UnixMilli(), windowMs, r.limit, windowMs+1000,
	)
	if err != nil {
		log.Printf("ratelimit: redis admit for %s failed, allowing: %v", userID, err)
		return true
	}
	admitted, ok := res.(int64)
	if !ok {
		log.Printf("ratelimit: unexpected redis reply %T for %s, allowing", res, userID)
		return true
	}
	return admitted == 1
}

// Reset removes every limiter record from redis.
func (r *Redis) Reset(ctx context.Context) error {
	return r.client.DelPrefix(ctx, redisKeyPrefix)
}
