package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// LookupThrottle is a per-client token bucket for /check. It lives in process
// memory, so it only slows enumeration against a single instance.
type LookupThrottle struct {
	mu           sync.Mutex
	entries      map[string]*throttleEntry
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type throttleEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type ThrottleOption func(*LookupThrottle)

func WithIdleTTL(d time.Duration) ThrottleOption {
	return func(t *LookupThrottle) { t.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) ThrottleOption {
	return func(t *LookupThrottle) { t.cleanupEvery = d }
}

func NewLookupThrottle(rps float64, burst int, opts ...ThrottleOption) *LookupThrottle {
	if burst < 1 {
		burst = 1
	}
	t := &LookupThrottle{
		entries:      make(map[string]*throttleEntry),
		rps:          rate.Limit(rps),
		burst:        burst,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *LookupThrottle) Allow(key string) bool {
	now := time.Now()

	t.mu.Lock()
	ent, ok := t.entries[key]
	if !ok {
		ent = &throttleEntry{lim: rate.NewLimiter(t.rps, t.burst)}
		t.entries[key] = ent
	}
	ent.lastSeen = now
	t.mu.Unlock()

	return ent.lim.AllowN(now, 1)
}

func (t *LookupThrottle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *LookupThrottle) Cleanup() {
	cutoff := time.Now().Add(-t.idleTTL)

	t.mu.Lock()
	defer t.mu.Unlock()

	for k, ent := range t.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(t.entries, k)
		}
	}
}

// StartJanitor drops idle clients periodically until ctx is done.
func (t *LookupThrottle) StartJanitor(ctx context.Context) {
	if t.cleanupEvery <= 0 {
		return
	}

	ticker := time.NewTicker(t.cleanupEvery)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.Cleanup()
			}
		}
	}()
}

// Middleware answers throttled lookups with a plain not-found so callers
// cannot tell throttling apart from an unknown email.
func (t *LookupThrottle) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !t.Allow(c.RealIP()) {
				return c.JSON(http.StatusOK, checkResponse{Found: false})
			}
			return next(c)
		}
	}
}
