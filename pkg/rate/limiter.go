package rate

import (
	"math"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter limits operations per key.
type Limiter interface {
	Allow(key string) (bool, error)
}

// localRateLimiter keeps one token bucket per key in memory. Each bucket
// refills at limit per second and holds at least one token.
type localRateLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewLocalRateLimiter returns an in memory Limiter.
func NewLocalRateLimiter(limit rate.Limit) Limiter {
	burst := 1
	if limit > 1 && limit != rate.Inf {
		burst = int(math.Ceil(float64(limit)))
	}

	return &localRateLimiter{
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow implements Limiter.Allow.
func (l *localRateLimiter) Allow(key string) (bool, error) {
	l.mu.Lock()
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow(), nil
}
