package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// RateLimitConfig configures RateLimit.
type RateLimitConfig struct {
	// Max is the number of requests a key may make per window.
	Max int
	// Window is the length of the sliding window.
	Window time.Duration
	// KeyFunc identifies the client. Defaults to ClientIP.
	KeyFunc func(*http.Request) string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Decision is the outcome of a SlidingWindow check.
type Decision struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

type counter struct {
	start time.Time
	prev  float64
	curr  float64
}

// SlidingWindow approximates a sliding window limit from two fixed windows:
// the previous window's count is weighted by how much of it still overlaps
// the sliding window ending now.
type SlidingWindow struct {
	max  int
	size time.Duration

	mu       sync.Mutex
	counters map[string]*counter
}

// NewSlidingWindow allows max events per size for each key.
func NewSlidingWindow(max int, size time.Duration) *SlidingWindow {
	return &SlidingWindow{
		max:      max,
		size:     size,
		counters: make(map[string]*counter),
	}
}

// Allow records an event for key at now if the limit permits it.
func (s *SlidingWindow) Allow(key string, now time.Time) Decision {
	start := now.Truncate(s.size)

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	switch {
	case !ok:
		c = &counter{start: start}
		s.counters[key] = c
	case start.Sub(c.start) >= 2*s.size:
		c.start, c.prev, c.curr = start, 0, 0
	case start.After(c.start):
		c.start, c.prev, c.curr = start, c.curr, 0
	}

	overlap := 1 - float64(now.Sub(start))/float64(s.size)
	used := c.prev*overlap + c.curr
	reset := start.Add(s.size)

	if used >= float64(s.max) {
		return Decision{Reset: reset}
	}
	c.curr++
	return Decision{
		Allowed:   true,
		Remaining: max(0, int(float64(s.max)-used-1)),
		Reset:     reset,
	}
}

// Evict drops keys idle for at least two windows and returns how many were
// removed.
func (s *SlidingWindow) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for key, c := range s.counters {
		if now.Sub(c.start) >= 2*s.size {
			delete(s.counters, key)
			n++
		}
	}
	return n
}

// Len returns the number of tracked keys.
func (s *SlidingWindow) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counters)
}

func (s *SlidingWindow) evictLoop(ctx context.Context) {
	ticker := time.NewTicker(2 * s.size)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Evict(now)
		}
	}
}

// RateLimit rejects requests over the per-client limit with 429 and the
// JSON error envelope. Every response carries X-RateLimit-Limit,
// X-RateLimit-Remaining and X-RateLimit-Reset. Idle clients are evicted in
// the background until ctx is done.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientIP
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	limiter := NewSlidingWindow(cfg.Max, cfg.Window)
	go limiter.evictLoop(ctx)

	limit := strconv.Itoa(cfg.Max)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := cfg.Now()
			key := cfg.KeyFunc(r)
			d := limiter.Allow(key, now)

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))

			if !d.Allowed {
				wait := max(0, d.Reset.Sub(now))
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				zctx.From(r.Context()).Debug("Rate limit exceeded", zap.String("client", key))
				WriteError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the first X-Forwarded-For address, then X-Real-IP, then
// the host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
