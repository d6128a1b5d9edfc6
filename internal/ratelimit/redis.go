package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ Limiter = (*RedisLimiter)(nil)

// incrWindow increments the counter of the current window and sets its
// expiry on first use.
var incrWindow = redis.NewScript(`
	local n = redis.call('INCR', KEYS[1])
	if n == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	return n
`)

// RedisLimiter keeps fixed-window counters in redis.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	period time.Duration
	now    func() time.Time
}

// NewRedisLimiter connects to redis and verifies the connection.
func NewRedisLimiter(options *redis.Options, prefix string, limit int, period time.Duration) (*RedisLimiter, error) {
	client := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisLimiter{client: client, prefix: prefix, limit: limit, period: period, now: time.Now}, nil
}

// Allow counts an event for key.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	start := l.now().Truncate(l.period)
	n, err := incrWindow.Run(ctx, l.client, []string{l.windowKey(key, start)}, l.period.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit: %w", err)
	}
	return n <= l.limit, nil
}

// Close releases the redis connection.
func (l *RedisLimiter) Close() error {
	return l.client.Close()
}

func (l *RedisLimiter) windowKey(key string, start time.Time) string {
	return l.prefix + key + ":" + strconv.FormatInt(start.Unix(), 10)
}
