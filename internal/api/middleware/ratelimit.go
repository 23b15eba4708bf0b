package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/phrazzld/tasks-api/internal/api/shared"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
	"github.com/phrazzld/tasks-api/internal/redact"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limit messages sent with 429 responses.
const (
	GlobalLimitMessage = "Too many requests, please try again later."
	AuthLimitMessage   = "Too many authentication attempts, please try again later."
)

// Limiter decides whether one more request for key fits in the budget.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryLimiter keeps one token bucket per key in process memory. A bucket
// holds max tokens and refills evenly over window.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	every   rate.Limit
	burst   int
	window  time.Duration
	now     func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemoryLimiter returns a limiter allowing max requests per window per key.
func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		every:   rate.Every(window / time.Duration(max)),
		burst:   max,
		window:  window,
		now:     time.Now,
	}
}

// Allow consumes one token from key's bucket.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.every, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	allowed := b.limiter.AllowN(now, 1)

	if len(l.buckets) > 1024 {
		l.evictIdle(now)
	}
	return allowed, nil
}

// evictIdle drops buckets untouched for a full window; they would be full again.
func (l *MemoryLimiter) evictIdle(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.window {
			delete(l.buckets, key)
		}
	}
}

// slidingWindowScript trims the key's sorted set to the window, then admits
// the request when fewer than limit entries remain.
var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local counter_key = KEYS[2]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	local count = redis.call('ZCARD', key)
	if count >= limit then
		return 0
	end

	local seq = redis.call('INCR', counter_key)
	redis.call('ZADD', key, now, now .. ':' .. seq)
	redis.call('PEXPIRE', key, window_ms)
	redis.call('PEXPIRE', counter_key, window_ms)
	return 1
`)

// RedisLimiter is a sliding-window limiter shared by every instance that
// talks to the same Redis.
type RedisLimiter struct {
	client redis.Scripter
	prefix string
	max    int
	window time.Duration
	now    func() time.Time
}

// NewRedisLimiter returns a limiter allowing max requests per window per key.
// Keys are stored under prefix.
func NewRedisLimiter(client redis.Scripter, prefix string, max int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: prefix,
		max:    max,
		window: window,
		now:    time.Now,
	}
}

// Allow records the request in key's window if it fits.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := l.now()
	redisKey := l.prefix + key

	res, err := slidingWindowScript.Run(ctx, l.client,
		[]string{redisKey, redisKey + ":seq"},
		now.UnixMilli(),
		now.Add(-l.window).UnixMilli(),
		l.max,
		l.window.Milliseconds(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to run rate limit script: %w", err)
	}
	return res == 1, nil
}

// RateLimit rejects requests over limiter's budget with a 429 envelope.
// Clients are keyed by IP, so chi's RealIP should run first. When the
// limiter itself fails the request is let through.
func RateLimit(limiter Limiter, scope, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := scope + ":" + clientIP(r)

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.FromContext(r.Context()).Warn("rate limiter unavailable",
					slog.String("scope", scope),
					slog.String("error", redact.Error(err)))
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(60))
				shared.RespondWithErrorAndLog(w, r, http.StatusTooManyRequests, message,
					fmt.Errorf("%s rate limit exceeded", scope))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
