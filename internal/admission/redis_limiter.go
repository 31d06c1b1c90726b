package admission

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	errx "github.com/Chative-core-poc-v1/router/internal/core/error"
)

// fixedWindowScript runs the reset-check-increment of both windows in one
// server-side step. Timestamps are unix milliseconds.
var fixedWindowScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local per_minute = tonumber(ARGV[2])
local per_hour = tonumber(ARGV[3])
local h = redis.call('HMGET', KEYS[1], 'rpm', 'rph', 'lrm', 'lrh')
local rpm = tonumber(h[1]) or 0
local rph = tonumber(h[2]) or 0
local lrm = tonumber(h[3]) or 0
local lrh = tonumber(h[4]) or 0
if now - lrm >= 60000 then rpm = 0; lrm = now end
if now - lrh >= 3600000 then rph = 0; lrh = now end
local allowed = 0
if rpm < per_minute and rph < per_hour then
  rpm = rpm + 1
  rph = rph + 1
  allowed = 1
end
redis.call('HSET', KEYS[1], 'rpm', rpm, 'rph', rph, 'lrm', lrm, 'lrh', lrh)
redis.call('PEXPIRE', KEYS[1], 3600000)
return allowed
`)

// RedisLimiter shares the fixed-window counters across replicas.
type RedisLimiter struct {
	rdb    redis.Scripter
	prefix string
	now    func() time.Time
}

func NewRedisLimiter(rdb redis.Scripter) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, prefix: "ratelimit:tenant", now: time.Now}
}

func (l *RedisLimiter) key(tenantID string) string {
	return fmt.Sprintf("%s:%s", l.prefix, tenantID)
}

func (l *RedisLimiter) Allow(ctx context.Context, tenantID string, perMinute, perHour int) (bool, error) {
	res, err := fixedWindowScript.Run(ctx, l.rdb, []string{l.key(tenantID)},
		l.now().UnixMilli(), perMinute, perHour).Int()
	if err != nil {
		return false, errx.WrapRedis(err)
	}
	return res == 1, nil
}
