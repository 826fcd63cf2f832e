package middleware

import (
	"net/http"
	"sync"
	"time"

	"tickcast/pkg/api/errors"
	"tickcast/pkg/enum"
	"tickcast/pkg/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// limiters idle for longer than this are dropped on the next sweep
const rateLimiterExpiry = 5 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiterStore struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	lastSweep time.Time
}

func newLimiterStore(requests int, timeframe time.Duration) *limiterStore {
	return &limiterStore{
		visitors:  make(map[string]*visitor),
		limit:     rate.Every(timeframe / time.Duration(requests)),
		burst:     requests,
		lastSweep: time.Now(),
	}
}

func (s *limiterStore) allow(key string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) > rateLimiterExpiry {
		for k, v := range s.visitors {
			if now.Sub(v.lastSeen) > rateLimiterExpiry {
				delete(s.visitors, k)
			}
		}
		s.lastSweep = now
	}

	v, ok := s.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// RateLimiterMiddleware allows each client IP a burst of requests that refills
// evenly over timeframe.
func RateLimiterMiddleware(requests int, timeframe time.Duration) gin.HandlerFunc {
	if requests < 1 {
		requests = 1
	}
	if timeframe <= 0 {
		timeframe = time.Minute
	}
	store := newLimiterStore(requests, timeframe)

	return func(c *gin.Context) {
		if store.allow(c.ClientIP(), time.Now()) {
			c.Next()
			return
		}

		if raw, ok := c.Get("logger"); ok {
			if log, ok := raw.(*logger.Logger); ok {
				log.PrintfWarning("Rate limit exceeded for %s", c.FullPath())
			}
		}
		errors.Abort(c, http.StatusTooManyRequests, enum.TooManyRequests, nil)
	}
}
