// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"golang.org/x/time/rate"

	"github.com/carterperez-dev/quizforge/internal/core"
)

type RateLimitConfig struct {
	Limit   redis_rate.Limit
	KeyFunc func(*http.Request) string
}

var ErrRateLimited = errors.New("rate limit exceeded")

// gcra counts requests in Redis and, while Redis is unreachable, in an
// in-process token bucket with the same limit.
type gcra struct {
	redis    *redis_rate.Limiter
	fallback *localLimiter
}

func newGCRA(limiter *redis_rate.Limiter) *gcra {
	return &gcra{redis: limiter, fallback: newLocalLimiter()}
}

func (g *gcra) allow(
	ctx context.Context,
	key string,
	limit redis_rate.Limit,
) *redis_rate.Result {
	res, err := g.redis.Allow(ctx, key, limit)
	if err != nil {
		slog.WarnContext(ctx, "rate limiter using local fallback",
			"error", err,
			"key", key,
		)
		return g.fallback.allow(key, limit, time.Now())
	}
	return res
}

// serve applies limit to key and writes 429 when the bucket is empty.
func (g *gcra) serve(
	w http.ResponseWriter,
	r *http.Request,
	next http.Handler,
	key string,
	limit redis_rate.Limit,
) {
	res := g.allow(r.Context(), key, limit)
	setRateLimitHeaders(w, res, limit)

	if res.Allowed == 0 {
		writeRateLimitExceeded(w, res)
		return
	}

	next.ServeHTTP(w, r)
}

type RateLimiter struct {
	gcra   *gcra
	config RateLimitConfig
}

func NewRateLimiter(limiter *redis_rate.Limiter, cfg RateLimitConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = KeyByIP
	}

	return &RateLimiter{
		gcra:   newGCRA(limiter),
		config: cfg,
	}
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rl.gcra.serve(w, r, next, rl.config.KeyFunc(r), rl.config.Limit)
	})
}

// RouteLimit limits a single named route per client address. It returns
// nil when limit has no rate, which callers treat as unlimited.
func RouteLimit(
	limiter *redis_rate.Limiter,
	route string,
	limit redis_rate.Limit,
) func(http.Handler) http.Handler {
	if limit.Rate <= 0 {
		return nil
	}
	return NewRateLimiter(limiter, RateLimitConfig{
		Limit:   limit,
		KeyFunc: KeyByIPAndRoute(route),
	}).Handler
}

// ClientIP returns the caller address, preferring the last X-Forwarded-For
// hop appended by our own proxy.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		ip := strings.TrimSpace(ips[len(ips)-1])
		if net.ParseIP(ip) != nil {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}

	return ip
}

func KeyByIP(r *http.Request) string {
	return "ratelimit:ip:" + ClientIP(r)
}

// KeyByIPAndRoute scopes an IP bucket to a named route so that login
// attempts do not consume the registration budget.
func KeyByIPAndRoute(route string) func(*http.Request) string {
	return func(r *http.Request) string {
		return "ratelimit:" + route + ":ip:" + ClientIP(r)
	}
}

func KeyByUser(r *http.Request) string {
	if userID := GetUserID(r.Context()); userID != "" {
		return "ratelimit:user:" + userID
	}
	return KeyByIP(r)
}

func KeyByUserAndEndpoint(r *http.Request) string {
	userKey := KeyByUser(r)
	endpoint := normalizeEndpoint(r.URL.Path)
	return fmt.Sprintf("%s:endpoint:%s", userKey, endpoint)
}

func normalizeEndpoint(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	normalized := make([]string, 0, len(parts))

	for _, part := range parts {
		if isUUID(part) || isNumeric(part) {
			normalized = append(normalized, "{id}")
		} else {
			normalized = append(normalized, part)
		}
	}

	return "/" + strings.Join(normalized, "/")
}

func isUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	return s[8] == '-' && s[13] == '-' && s[18] == '-' && s[23] == '-'
}

func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

func setRateLimitHeaders(
	w http.ResponseWriter,
	res *redis_rate.Result,
	limit redis_rate.Limit,
) {
	h := w.Header()

	h.Set("X-RateLimit-Limit", strconv.Itoa(limit.Rate))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(
		time.Now().Add(res.ResetAfter).Unix(), 10))

	windowSecs := int(limit.Period.Seconds())
	h.Set("RateLimit-Policy", fmt.Sprintf(`%d;w=%d`, limit.Rate, windowSecs))
	h.Set(
		"RateLimit",
		fmt.Sprintf(`%d;t=%d`, res.Remaining, int(res.ResetAfter.Seconds())),
	)
}

func writeRateLimitExceeded(w http.ResponseWriter, res *redis_rate.Result) {
	retryAfter := int(res.RetryAfter.Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	core.JSONError(w, core.NewAppError(
		ErrRateLimited,
		fmt.Sprintf("Rate limit exceeded. Retry after %d seconds.", retryAfter),
		http.StatusTooManyRequests,
		"RATE_LIMITED",
	))
}

const (
	fallbackIdleTTL    = 10 * time.Minute
	fallbackSweepEvery = 1024
)

type localBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// localLimiter drops idle buckets every fallbackSweepEvery calls instead
// of running a background goroutine.
type localLimiter struct {
	mu      sync.Mutex
	buckets map[string]*localBucket
	calls   int
}

func newLocalLimiter() *localLimiter {
	return &localLimiter{buckets: make(map[string]*localBucket)}
}

func (l *localLimiter) allow(
	key string,
	limit redis_rate.Limit,
	now time.Time,
) *redis_rate.Result {
	if limit.Rate <= 0 {
		return &redis_rate.Result{Limit: limit, Allowed: 1, RetryAfter: -1}
	}
	interval := limit.Period / time.Duration(limit.Rate)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls++
	if l.calls%fallbackSweepEvery == 0 {
		l.sweep(now)
	}

	bucketKey := fmt.Sprintf("%s|%d/%s", key, limit.Rate, limit.Period)
	b, ok := l.buckets[bucketKey]
	if !ok {
		b = &localBucket{limiter: rate.NewLimiter(rate.Every(interval), limit.Burst)}
		l.buckets[bucketKey] = b
	}
	b.lastSeen = now

	res := &redis_rate.Result{
		Limit:      limit,
		RetryAfter: -1,
		ResetAfter: interval,
	}
	if b.limiter.AllowN(now, 1) {
		res.Allowed = 1
	} else {
		res.RetryAfter = interval
	}
	res.Remaining = max(0, int(b.limiter.TokensAt(now)))

	return res
}

func (l *localLimiter) sweep(now time.Time) {
	cutoff := now.Add(-fallbackIdleTTL)
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

func (l *localLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

type TierConfig struct {
	RequestsPerMinute int
	BurstSize         int
}

var DefaultTiers = map[string]TierConfig{
	"free":       {RequestsPerMinute: 60, BurstSize: 10},
	"pro":        {RequestsPerMinute: 600, BurstSize: 100},
	"enterprise": {RequestsPerMinute: 6000, BurstSize: 1000},
}

// PlanResolver returns the subscription plan name for a user.
type PlanResolver func(ctx context.Context, userID string) string

func TieredRateLimiter(
	limiter *redis_rate.Limiter,
	tiers map[string]TierConfig,
	resolvePlan PlanResolver,
) func(http.Handler) http.Handler {
	g := newGCRA(limiter)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())

			tier := ""
			if userID != "" && resolvePlan != nil {
				tier = resolvePlan(r.Context(), userID)
			}

			config, ok := tiers[tier]
			if !ok {
				tier = "free"
				config = tiers[tier]
			}

			w.Header().Set("X-RateLimit-Tier", tier)
			g.serve(w, r, next, KeyByUserAndEndpoint(r), PerMinute(
				config.RequestsPerMinute,
				config.BurstSize,
			))
		})
	}
}

func PerMinute(rate, burst int) redis_rate.Limit {
	return redis_rate.Limit{
		Rate:   rate,
		Burst:  burst,
		Period: time.Minute,
	}
}

func PerHour(rate, burst int) redis_rate.Limit {
	return redis_rate.Limit{
		Rate:   rate,
		Burst:  burst,
		Period: time.Hour,
	}
}
