// Package ratelimit enforces sliding-window submission caps. State lives in a
// shared backend (SQL row or Redis key) and every check-and-record runs as one
// atomic unit there, never in process memory.
package ratelimit

import (
	"context"
	"time"
)

const (
	GlobalKey    = "global"
	domainPrefix = "domain:"
)

func DomainKey(domain string) string {
	return domainPrefix + domain
}

type Decision struct {
	Allowed bool
	// Count is the number of attempts inside the window after this one was
	// considered.
	Count int
	Limit int
	// RetryAfter is set when denied: time until the oldest counted attempt
	// leaves the window.
	RetryAfter time.Duration
}

// Backend atomically counts the attempts for key in the trailing window and
// records now when the count is below limit.
type Backend interface {
	CheckAndRecord(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Decision, error)
}

// Slide applies the window policy to a stored timestamp list. Timestamps older
// than now-window are dropped; if the remainder already holds limit entries the
// attempt is denied and not recorded.
func Slide(timestamps []int64, limit int, window time.Duration, now time.Time) ([]int64, Decision) {
	nowMs := now.UnixMilli()
	windowStart := nowMs - window.Milliseconds()

	kept := make([]int64, 0, len(timestamps)+1)
	oldest := nowMs
	for _, ts := range timestamps {
		if ts < windowStart {
			continue
		}
		kept = append(kept, ts)
		if ts < oldest {
			oldest = ts
		}
	}

	if len(kept) >= limit {
		retry := time.Duration(oldest+window.Milliseconds()-nowMs) * time.Millisecond
		if retry < 0 {
			retry = 0
		}
		return kept, Decision{Allowed: false, Count: len(kept), Limit: limit, RetryAfter: retry}
	}

	kept = append(kept, nowMs)
	return kept, Decision{Allowed: true, Count: len(kept), Limit: limit}
}
