package ratelimit

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

type Tier struct {
	Limit  int
	Window time.Duration
}

var (
	DefaultGlobalTier = Tier{Limit: 10, Window: time.Minute}
	DefaultDomainTier = Tier{Limit: 3, Window: time.Minute}
)

// Limiter applies the global tier, then the per-domain tier. A global denial
// short-circuits so the domain bucket is neither read nor consumed.
type Limiter struct {
	backend Backend
	global  Tier
	domain  Tier
}

func NewLimiter(backend Backend, global, domain Tier) *Limiter {
	return &Limiter{
		backend: backend,
		global:  global,
		domain:  domain,
	}
}

func (l *Limiter) Admit(ctx context.Context, domain string, now time.Time) (Decision, error) {
	d, err := l.backend.CheckAndRecord(ctx, GlobalKey, l.global.Limit, l.global.Window, now)
	if err != nil {
		return Decision{}, errors.WithMessage(err, "global tier")
	}
	if !d.Allowed {
		return d, nil
	}

	d, err = l.backend.CheckAndRecord(ctx, DomainKey(domain), l.domain.Limit, l.domain.Window, now)
	if err != nil {
		return Decision{}, errors.WithMessage(err, "domain tier")
	}
	return d, nil
}
