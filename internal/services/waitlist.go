package services

import (
	"context"
	"time"

	"github.com/SignpostApp/landing/internal/apperr"
	"github.com/SignpostApp/landing/internal/events"
	"github.com/SignpostApp/landing/internal/models"
	"github.com/SignpostApp/landing/internal/ratelimit"
	"github.com/SignpostApp/landing/internal/stats"
	"github.com/SignpostApp/landing/internal/store"
	"github.com/SignpostApp/landing/internal/validation"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const SuccessMessage = "You're on the list!"

type Outcome string

const (
	OutcomeAccepted  Outcome = "accepted"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeHoneypot  Outcome = "honeypot"
)

type EntryStore interface {
	FindByEmail(ctx context.Context, email string) (*models.WaitlistEntry, error)
	Insert(ctx context.Context, entry *models.WaitlistEntry) (bool, error)
	CountJoinedUpTo(ctx context.Context, joinedAt int64) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type RateLimiter interface {
	Admit(ctx context.Context, domain string, now time.Time) (ratelimit.Decision, error)
}

type DomainProber interface {
	HasMailRecords(ctx context.Context, domain string) (bool, error)
}

type JoinRequest struct {
	Email   string
	Website string
	// Timestamp is the client's clock at submission; zero means missing.
	Timestamp time.Time
}

// JoinResult is identical for every success path as far as callers are
// concerned; Outcome is for logs and stats only.
type JoinResult struct {
	Outcome Outcome
	Message string
}

type CheckResult struct {
	Found    bool
	Position int64
	Total    int64
	JoinedAt int64
}

type WaitlistService struct {
	entries   EntryStore
	limiter   RateLimiter
	validator validation.Validator
	logger    *zap.Logger

	prober    DomainProber
	publisher events.Publisher
	recorder  stats.Recorder
	source    string
	now       func() time.Time
}

type Option func(*WaitlistService)

func WithDomainProber(p DomainProber) Option {
	return func(s *WaitlistService) { s.prober = p }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *WaitlistService) { s.publisher = p }
}

func WithRecorder(r stats.Recorder) Option {
	return func(s *WaitlistService) { s.recorder = r }
}

func WithSource(source string) Option {
	return func(s *WaitlistService) { s.source = source }
}

func WithClock(now func() time.Time) Option {
	return func(s *WaitlistService) { s.now = now }
}

func NewWaitlistService(entries EntryStore, limiter RateLimiter, validator validation.Validator, logger *zap.Logger, opts ...Option) *WaitlistService {
	s := &WaitlistService{
		entries:   entries,
		limiter:   limiter,
		validator: validator,
		logger:    logger,
		publisher: events.Nop{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Join runs the admission pipeline. Honeypot hits, duplicates and fresh
// inserts all return the same success message.
func (s *WaitlistService) Join(ctx context.Context, req JoinRequest) (JoinResult, error) {
	if req.Website != "" {
		s.record(ctx, "join", string(OutcomeHoneypot))
		return JoinResult{Outcome: OutcomeHoneypot, Message: SuccessMessage}, nil
	}

	now := s.now()

	sub, err := s.validator.Validate(req.Email, req.Timestamp, now)
	if err != nil {
		s.record(ctx, "join", rejection(err))
		return JoinResult{}, err
	}
	log := s.logger.With(zap.String("domain", sub.Domain))

	decision, err := s.limiter.Admit(ctx, sub.Domain, now)
	if err != nil {
		return JoinResult{}, s.fail(ctx, log, errors.WithMessage(err, "rate limit"))
	}
	if !decision.Allowed {
		log.Info("join rate limited", zap.Int("count", decision.Count), zap.Int("limit", decision.Limit))
		s.record(ctx, "join", rejection(apperr.ErrRateLimited))
		return JoinResult{}, apperr.RateLimited(decision.RetryAfter)
	}

	// after the limiter so a rejected flood never reaches DNS
	if s.prober != nil {
		ok, err := s.prober.HasMailRecords(ctx, sub.Domain)
		switch {
		case err != nil:
			log.Warn("mail domain probe failed, admitting", zap.Error(err))
		case !ok:
			s.record(ctx, "join", rejection(apperr.ErrInvalidEmail))
			return JoinResult{}, apperr.ErrInvalidEmail
		}
	}

	_, err = s.entries.FindByEmail(ctx, sub.Email)
	switch {
	case err == nil:
		return s.duplicate(ctx, log), nil
	case !errors.Is(err, store.ErrNotFound):
		return JoinResult{}, s.fail(ctx, log, err)
	}

	entry := &models.WaitlistEntry{
		Email:    sub.Email,
		Domain:   sub.Domain,
		Source:   s.source,
		JoinedAt: now.UnixMilli(),
	}
	inserted, err := s.entries.Insert(ctx, entry)
	if err != nil {
		return JoinResult{}, s.fail(ctx, log, err)
	}
	if !inserted {
		// lost the race against a concurrent insert of the same email
		return s.duplicate(ctx, log), nil
	}

	err = s.publisher.PublishJoined(ctx, events.Joined{
		Email:    entry.Email,
		Domain:   entry.Domain,
		JoinedAt: entry.JoinedAt,
		Source:   entry.Source,
	})
	if err != nil {
		log.Warn("publish joined event", zap.Error(err))
	}

	log.Info("waitlist entry created", zap.Int64("joined_at", entry.JoinedAt))
	s.record(ctx, "join", string(OutcomeAccepted))
	return JoinResult{Outcome: OutcomeAccepted, Message: SuccessMessage}, nil
}

// Check looks up the queue position of email. Malformed input and unknown
// emails both come back as not found.
func (s *WaitlistService) Check(ctx context.Context, email string) (CheckResult, error) {
	normalized, err := validation.ValidateEmail(email)
	if err != nil {
		s.record(ctx, "check", "not_found")
		return CheckResult{}, nil
	}

	entry, err := s.entries.FindByEmail(ctx, normalized)
	if errors.Is(err, store.ErrNotFound) {
		s.record(ctx, "check", "not_found")
		return CheckResult{}, nil
	}
	if err != nil {
		return CheckResult{}, s.failCheck(ctx, err)
	}

	// position first: with no deletes, total read afterwards is never smaller
	position, err := s.entries.CountJoinedUpTo(ctx, entry.JoinedAt)
	if err != nil {
		return CheckResult{}, s.failCheck(ctx, err)
	}
	total, err := s.entries.Count(ctx)
	if err != nil {
		return CheckResult{}, s.failCheck(ctx, err)
	}

	s.record(ctx, "check", "found")
	return CheckResult{
		Found:    true,
		Position: position,
		Total:    total,
		JoinedAt: entry.JoinedAt,
	}, nil
}

func (s *WaitlistService) duplicate(ctx context.Context, log *zap.Logger) JoinResult {
	log.Debug("duplicate waitlist join")
	s.record(ctx, "join", string(OutcomeDuplicate))
	return JoinResult{Outcome: OutcomeDuplicate, Message: SuccessMessage}
}

func (s *WaitlistService) fail(ctx context.Context, log *zap.Logger, err error) error {
	log.Error("join failed", zap.Error(err))
	s.record(ctx, "join", "error")
	return errors.WithMessage(err, "join")
}

func (s *WaitlistService) failCheck(ctx context.Context, err error) error {
	s.logger.Error("check failed", zap.Error(err))
	s.record(ctx, "check", "error")
	return errors.WithMessage(err, "check")
}

func (s *WaitlistService) record(ctx context.Context, op, outcome string) {
	if s.recorder == nil {
		return
	}
	_ = s.recorder.Record(ctx, stats.Event{Operation: op, Outcome: outcome})
}

func rejection(err error) string {
	switch {
	case errors.Is(err, apperr.ErrInvalidEmail):
		return "invalid_email"
	case errors.Is(err, apperr.ErrDisposableDomain):
		return "disposable_domain"
	case errors.Is(err, apperr.ErrExpiredRequest):
		return "expired_request"
	case errors.Is(err, apperr.ErrRateLimited):
		return "rate_limited"
	default:
		return "error"
	}
}
