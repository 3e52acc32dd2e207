// Package ratelimit bounds per-IP request rates on the classification
// endpoint with in-memory token buckets.
package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per client IP.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[string]*entry
	limit    rate.Limit
	burst    int
	lastSeen time.Duration
	done     chan struct{}
	stopOnce sync.Once
}

type entry struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewLimiter allows perMinute requests per IP with a 2x burst.
func NewLimiter(perMinute int) *Limiter {
	l := &Limiter{
		buckets:  make(map[string]*entry),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute * 2,
		lastSeen: 10 * time.Minute,
		done:     make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *Limiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.mu.Lock()
			for ip, e := range l.buckets {
				if time.Since(e.seen) > l.lastSeen {
					delete(l.buckets, ip)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Close stops the cleanup goroutine. Existing buckets keep working.
func (l *Limiter) Close() error {
	l.stopOnce.Do(func() { close(l.done) })
	return nil
}

// Allow reports whether the given IP may proceed.
func (l *Limiter) Allow(ip string) bool {
	l.mu.Lock()
	e, ok := l.buckets[ip]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[ip] = e
	}
	e.seen = time.Now()
	l.mu.Unlock()

	return e.limiter.Allow()
}

// Middleware rejects over-limit requests with 429.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
