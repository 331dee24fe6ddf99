package rate

import (
	"context"
	"strconv"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// failScript mirrors applyFailure. Fields: f failures, l last failure ms,
// u locked-until ms (0 when unlocked).
var failScript = rdb.NewScript(`
local now = tonumber(ARGV[1])
local max = tonumber(ARGV[2])
local window = tonumber(ARGV[3])
local cooldown = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local f = tonumber(redis.call('HGET', KEYS[1], 'f') or '0')
local l = tonumber(redis.call('HGET', KEYS[1], 'l') or '0')
local u = tonumber(redis.call('HGET', KEYS[1], 'u') or '0')

if u > 0 and now >= u then
  f = 0; l = 0; u = 0
end
if u == 0 and l > 0 and now - l > window then
  f = 0; l = 0
end
if u > now then
  return {f, l, u}
end

f = f + 1
l = now
if f >= max then
  u = now + cooldown
end
redis.call('HSET', KEYS[1], 'f', f, 'l', l, 'u', u)
redis.call('PEXPIRE', KEYS[1], ttl)
return {f, l, u}
`)

// RedisStore shares counters across instances.
type RedisStore struct {
	client rdb.UniversalClient
	prefix string
}

func NewRedisStore(client rdb.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "throttle:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) Get(ctx context.Context, key string, now time.Time, p Policy) (State, error) {
	vals, err := r.client.HMGet(ctx, r.prefix+key, "f", "l", "u").Result()
	if err != nil {
		return State{}, err
	}
	s := State{
		Failures:    int(parseInt(vals[0])),
		LastFailure: fromMillis(parseInt(vals[1])),
		LockedUntil: fromMillis(parseInt(vals[2])),
	}
	return s.normalize(now, p), nil
}

func (r *RedisStore) Fail(ctx context.Context, key string, now time.Time, p Policy) (State, error) {
	res, err := failScript.Run(ctx, r.client, []string{r.prefix + key},
		now.UnixMilli(), p.MaxAttempts, p.Window.Milliseconds(), p.Cooldown.Milliseconds(), p.ttl().Milliseconds(),
	).Int64Slice()
	if err != nil {
		return State{}, err
	}
	return State{
		Failures:    int(res[0]),
		LastFailure: fromMillis(res[1]),
		LockedUntil: fromMillis(res[2]),
	}, nil
}

func (r *RedisStore) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

func parseInt(v any) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
