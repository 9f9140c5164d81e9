package httpserver

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apperrors "campusev/backend/libs/errors"
	"campusev/backend/libs/httpx"
	"campusev/backend/services/charging-service/internal/http/handlers"
)

const limiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter throttles reserve calls per caller.
type RateLimiter struct {
	limit  rate.Limit
	burst  int
	logger *zap.Logger

	mu       sync.Mutex
	limiters map[string]*clientLimiter
}

// NewRateLimiter allows perMinute requests per caller with the given burst.
func NewRateLimiter(perMinute float64, burst int, logger *zap.Logger) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:    rate.Limit(perMinute / 60),
		burst:    burst,
		logger:   logger,
		limiters: make(map[string]*clientLimiter),
	}
}

// Middleware rejects callers over their budget with 429 and Retry-After.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	if rl == nil || rl.limit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !rl.get(key).Allow() {
			retryAfter := int(math.Ceil(1 / float64(rl.limit)))
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			rl.logger.Warn("rate limit exceeded", zap.String("client", key), zap.String("path", r.URL.Path))
			httpx.WriteError(w, rl.logger, apperrors.New(apperrors.CodeRateLimit, "too many reservation attempts, retry later"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) get(key string) *rate.Limiter {
	now := time.Now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if cl, ok := rl.limiters[key]; ok {
		cl.lastAccess = now
		return cl.limiter
	}
	for k, cl := range rl.limiters {
		if now.Sub(cl.lastAccess) > limiterIdleTTL {
			delete(rl.limiters, k)
		}
	}
	cl := &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst), lastAccess: now}
	rl.limiters[key] = cl
	return cl.limiter
}

// Size returns the number of tracked callers.
func (rl *RateLimiter) Size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func clientKey(r *http.Request) string {
	if actor, err := handlers.ActorFromRequest(r); err == nil && actor.UserID != 0 {
		return "user:" + strconv.FormatInt(actor.UserID, 10)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
