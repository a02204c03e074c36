package ratelimit

import (
	"context"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Redis client settings.
const (
	RedisDialTimeout  = 2 * time.Second
	RedisReadTimeout  = 500 * time.Millisecond
	RedisWriteTimeout = 500 * time.Millisecond
	RedisPoolSize     = 10

	// DefaultRedisKeyPrefix namespaces limiter keys.
	DefaultRedisKeyPrefix = "skillgate:rl:"
)

// slidingWindowScript prunes, counts and conditionally records in one round
// trip. Scores are unix microseconds.
//
// KEYS[1] window key
// ARGV[1] now, ARGV[2] window, ARGV[3] limit, ARGV[4] member
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
	return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, math.ceil(window / 1000))
return 1
`)

// RedisOptions configures a Redis client for the limiter.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient creates a Redis client with the limiter's timeouts.
func NewRedisClient(opts RedisOptions) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  RedisDialTimeout,
		ReadTimeout:  RedisReadTimeout,
		WriteTimeout: RedisWriteTimeout,
		PoolSize:     RedisPoolSize,
	})
}

// RedisWindow is a sliding-window limiter shared through Redis.
//
// Limit and window are read from the local SlidingWindow, which also
// answers whenever Redis returns an error. The limiter therefore never
// fails open.
type RedisWindow struct {
	client    redis.UniversalClient
	local     *SlidingWindow
	prefix    string
	logger    *slog.Logger
	warn      *rate.Sometimes
	fallbacks atomic.Int64
}

// NewRedisWindow creates a Redis-backed limiter. An empty prefix selects
// DefaultRedisKeyPrefix.
func NewRedisWindow(client redis.UniversalClient, local *SlidingWindow, prefix string, logger *slog.Logger) *RedisWindow {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisWindow{
		client: client,
		local:  local,
		prefix: prefix,
		logger: logger.With("component", "ratelimit"),
		warn:   &rate.Sometimes{First: 1, Interval: 30 * time.Second},
	}
}

// Ping checks connectivity to Redis.
func (r *RedisWindow) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Window returns the current window length.
func (r *RedisWindow) Window() time.Duration {
	return r.local.Window()
}

// Fallbacks returns how many checks were answered locally because Redis failed.
func (r *RedisWindow) Fallbacks() int64 {
	return r.fallbacks.Load()
}

// Check implements Limiter.
func (r *RedisWindow) Check(ctx context.Context, key string, now time.Time) (bool, error) {
	window := r.local.Window()
	member := strconv.FormatInt(now.UnixMicro(), 10) + "-" + uuid.NewString()

	res, err := slidingWindowScript.Run(ctx, r.client, []string{r.prefix + key},
		now.UnixMicro(), window.Microseconds(), r.local.Limit(), member).Int64()
	if err != nil {
		r.fallbacks.Add(1)
		r.warn.Do(func() {
			r.logger.Warn("redis rate limit check failed, using local window", "error", err)
		})
		return r.local.Allow(key, now), nil
	}
	return res == 1, nil
}

// Close closes the Redis client.
func (r *RedisWindow) Close() error {
	return r.client.Close()
}
