package verification

import (
	"context"
	"time"

	"github.com/jrsteele09/go-otp-auth/internal/errors"
)

// Window allows at most Limit code requests within any rolling Span.
type Window struct {
	Limit int
	Span  time.Duration
}

type Policy []Window

func NewPolicy(perMinute, perHour int) Policy {
	return Policy{
		{Limit: perMinute, Span: time.Minute},
		{Limit: perHour, Span: time.Hour},
	}
}

func DefaultPolicy() Policy {
	return NewPolicy(3, 10)
}

func (p Policy) Longest() time.Duration {
	var longest time.Duration
	for _, w := range p {
		if w.Span > longest {
			longest = w.Span
		}
	}
	return longest
}

// RateLimiter decides whether another code may be issued for an identifier.
// A rejection is an *errors.RateLimitError.
type RateLimiter interface {
	Allow(ctx context.Context, identifier string, kind Kind, now time.Time) error
}

// StoreRateLimiter counts the codes already persisted, so the store stays the
// single source of truth.
type StoreRateLimiter struct {
	repo   Repo
	policy Policy
}

var _ RateLimiter = (*StoreRateLimiter)(nil)

func NewStoreRateLimiter(repo Repo, policy Policy) *StoreRateLimiter {
	return &StoreRateLimiter{repo: repo, policy: policy}
}

func (l *StoreRateLimiter) Allow(ctx context.Context, identifier string, kind Kind, now time.Time) error {
	for _, w := range l.policy {
		count, err := l.repo.CountSince(ctx, identifier, kind, now.Add(-w.Span))
		if err != nil {
			return errors.Wrap(errors.ErrUnavailable, unavailableMessage, err)
		}
		if count >= w.Limit {
			return &errors.RateLimitError{Window: w.Span, RetryAfter: w.Span}
		}
	}
	return nil
}
