package middleware

import (
	"net/http"
	"sync"
	"time"

	"troublebot-backend/internal/config"
	"troublebot-backend/internal/model"
	"troublebot-backend/internal/utils"
	"troublebot-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	RateLimitMessage = "Service temporarily busy. Please wait a moment and try again."

	limiterIdleTTL = 10 * time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter hands out one token bucket per client IP.
type ipLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

func newIPLimiter(requestsPerMinute, burst int) *ipLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	if burst <= 0 {
		burst = requestsPerMinute
	}
	return &ipLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:    burst,
		now:      time.Now,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// evict drops limiters that have been idle longer than ttl.
func (l *ipLimiter) evict(ttl time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-ttl)
	removed := 0
	for ip, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, ip)
			removed++
		}
	}
	return removed
}

func (l *ipLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// RateLimit throttles each client IP to cfg.RequestsPerMinute with bursts of
// cfg.Burst. A disabled config returns a pass-through handler.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	limiter := newIPLimiter(cfg.RequestsPerMinute, cfg.Burst)
	var (
		sweepMu   sync.Mutex
		lastSweep = limiter.now()
	)

	return func(c *gin.Context) {
		sweepMu.Lock()
		if limiter.now().Sub(lastSweep) > limiterIdleTTL {
			lastSweep = limiter.now()
			if n := limiter.evict(limiterIdleTTL); n > 0 {
				logger.Debugf("Evicted %d idle rate limiters", n)
			}
		}
		sweepMu.Unlock()

		if !limiter.allow(c.ClientIP()) {
			logger.WithFields(map[string]interface{}{
				"client_ip": c.ClientIP(),
				"path":      c.Request.URL.Path,
			}).Warn("rate limit exceeded")

			c.AbortWithStatusJSON(http.StatusTooManyRequests, model.ErrorResponse{
				Error:     RateLimitMessage,
				Timestamp: utils.NowISO(),
				Status:    model.StatusError,
			})
			return
		}
		c.Next()
	}
}
