package middleware

import (
	"net/http"
	"sync"
	"time"

	"feedstock/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Both limiters share one fixed-window counter implementation; the login
// limiter is just a stricter instance with its own message (credential
// stuffing protection), separate from the general API budget.

type rateWindow struct {
	mu    sync.Mutex
	count int
	until time.Time
}

type rateLimiter struct {
	mu      sync.Mutex
	perIP   map[string]*rateWindow
	limit   int
	window  time.Duration
	message string
}

func newRateLimiter(limit int, window time.Duration, message string) *rateLimiter {
	rl := &rateLimiter{
		perIP:   make(map[string]*rateWindow),
		limit:   limit,
		window:  window,
		message: message,
	}
	go rl.purgeLoop()
	return rl
}

// allow counts one request for ip; reports false once the window budget is
// spent, along with when the window resets.
func (rl *rateLimiter) allow(ip string) (bool, time.Time) {
	rl.mu.Lock()
	w, ok := rl.perIP[ip]
	if !ok {
		w = &rateWindow{}
		rl.perIP[ip] = w
	}
	rl.mu.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	if now.After(w.until) {
		w.count = 0
		w.until = now.Add(rl.window)
	}
	w.count++
	return w.count <= rl.limit, w.until
}

func (rl *rateLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, until := rl.allow(c.ClientIP())
		if !ok {
			c.Header("Retry-After", until.Format(time.RFC1123))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(rl.message))
			return
		}
		c.Next()
	}
}

// purgeLoop drops expired windows so IPs that never return do not
// accumulate forever.
func (rl *rateLimiter) purgeLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		purged := 0

		rl.mu.Lock()
		for ip, w := range rl.perIP {
			w.mu.Lock()
			expired := now.After(w.until)
			w.mu.Unlock()
			if expired {
				delete(rl.perIP, ip)
				purged++
			}
		}
		remaining := len(rl.perIP)
		rl.mu.Unlock()

		if purged > 0 {
			log.Debug().
				Int("purged", purged).
				Int("remaining", remaining).
				Msg("rate limiter windows purged")
		}
	}
}

// LoginRateLimiter limits login attempts to 20 per minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	return newRateLimiter(20, time.Minute, "too many login attempts, try again in a minute").middleware()
}

// RateLimiter returns a general-purpose fixed-window limiter counting
// requests per client IP within the given window.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	return newRateLimiter(limit, window, "too many requests, try again shortly").middleware()
}
