package verification

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	stderrors "errors"
	"io"
	"time"

	"github.com/jrsteele09/go-otp-auth/internal/errors"
	"github.com/jrsteele09/go-otp-auth/internal/persistence"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultCodeLength  = 6
	DefaultExpiry      = 5 * time.Minute
	DefaultMaxAttempts = 3
)

const unavailableMessage = "service temporarily unavailable"

type GenerateRequest struct {
	Identifier string
	Kind       Kind
	Purpose    Purpose
	DeviceID   string
	IP         string
}

// Issued is the result of Generate. Code is returned so it can be handed to a
// delivery channel and must never be sent back to the requester.
type Issued struct {
	ID         string
	Identifier string
	Code       string
	ExpiresAt  time.Time
	ExpiresIn  int64
}

type Verified struct {
	OTPID             string
	VerificationToken string
	ExpiresAt         time.Time
}

// Ledger owns the lifecycle of verification codes.
type Ledger struct {
	repo        Repo
	limiter     RateLimiter
	codeLength  int
	expiry      time.Duration
	maxAttempts int
	retention   time.Duration
	random      io.Reader
	nowFunc     func() time.Time
	logger      zerolog.Logger
}

type LedgerOption func(*Ledger)

func WithCodeLength(n int) LedgerOption {
	return func(l *Ledger) {
		l.codeLength = n
	}
}

func WithExpiry(d time.Duration) LedgerOption {
	return func(l *Ledger) {
		l.expiry = d
	}
}

func WithMaxAttempts(n int) LedgerOption {
	return func(l *Ledger) {
		l.maxAttempts = n
	}
}

func WithRateLimiter(limiter RateLimiter) LedgerOption {
	return func(l *Ledger) {
		l.limiter = limiter
	}
}

// WithRetention sets how long past expiry a code is kept before Sweep removes it.
func WithRetention(d time.Duration) LedgerOption {
	return func(l *Ledger) {
		l.retention = d
	}
}

func WithRandom(r io.Reader) LedgerOption {
	return func(l *Ledger) {
		l.random = r
	}
}

func WithNowFunc(now func() time.Time) LedgerOption {
	return func(l *Ledger) {
		l.nowFunc = now
	}
}

func WithLogger(logger zerolog.Logger) LedgerOption {
	return func(l *Ledger) {
		l.logger = logger
	}
}

func NewLedger(repo Repo, options ...LedgerOption) *Ledger {
	l := &Ledger{
		repo:        repo,
		codeLength:  DefaultCodeLength,
		expiry:      DefaultExpiry,
		maxAttempts: DefaultMaxAttempts,
		random:      rand.Reader,
		nowFunc:     time.Now,
		logger:      log.Logger,
	}
	for _, opt := range options {
		opt(l)
	}
	if l.limiter == nil {
		l.limiter = NewStoreRateLimiter(repo, DefaultPolicy())
	}
	if l.retention <= 0 {
		l.retention = time.Hour
	}
	return l
}

// Generate issues a new code, invalidating any unused predecessor for the same
// identifier, kind and purpose. Rate limits are checked before anything is written.
func (l *Ledger) Generate(ctx context.Context, req GenerateRequest) (*Issued, error) {
	now := l.nowFunc()
	identifier := Normalize(req.Identifier, req.Kind)

	if err := l.limiter.Allow(ctx, identifier, req.Kind, now); err != nil {
		return nil, err
	}

	digits, err := generateCode(l.random, l.codeLength)
	if err != nil {
		return nil, errors.Wrap(errors.ErrUnavailable, unavailableMessage, err)
	}

	code := &Code{
		Record:      persistence.NewRecord(now),
		Identifier:  identifier,
		Kind:        req.Kind,
		Code:        digits,
		Purpose:     req.Purpose,
		ExpiresAt:   now.Add(l.expiry),
		MaxAttempts: l.maxAttempts,
		DeviceID:    req.DeviceID,
		IP:          req.IP,
	}
	if err := l.repo.Replace(ctx, code); err != nil {
		return nil, errors.Wrap(errors.ErrUnavailable, unavailableMessage, err)
	}

	l.logger.Info().
		Str("otpId", code.ID).
		Str("kind", string(code.Kind)).
		Str("purpose", string(code.Purpose)).
		Msg("verification code issued")

	return &Issued{
		ID:         code.ID,
		Identifier: identifier,
		Code:       digits,
		ExpiresAt:  code.ExpiresAt,
		ExpiresIn:  int64(l.expiry.Seconds()),
	}, nil
}

// Verify checks a submitted code against the most recent one issued. A correct
// code yields a verification token; repeating a correct submission returns the
// same token.
func (l *Ledger) Verify(ctx context.Context, identifier string, kind Kind, submitted string, purpose Purpose) (*Verified, error) {
	now := l.nowFunc()
	identifier = Normalize(identifier, kind)

	code, err := l.repo.Latest(ctx, identifier, kind, purpose)
	if err != nil {
		return nil, l.lookupError(err, "no verification code found")
	}

	switch {
	case code.IsUsed:
		return nil, errors.New(errors.ErrAlreadyUsed, "verification code already used")
	case code.IsExpired(now):
		return nil, errors.New(errors.ErrExpired, "verification code expired")
	case code.AttemptsExhausted():
		return nil, errors.New(errors.ErrAttemptsExceeded, "too many failed attempts, request a new code")
	}

	if subtle.ConstantTimeCompare([]byte(code.Code), []byte(submitted)) != 1 {
		if _, err := l.repo.IncrementAttempts(ctx, code.ID, now); err != nil {
			return nil, errors.Wrap(errors.ErrUnavailable, unavailableMessage, err)
		}
		return nil, errors.New(errors.ErrMismatch, "invalid verification code")
	}

	if code.IsVerified && code.VerificationToken != "" {
		return verified(code), nil
	}

	token, err := generateToken(l.random)
	if err != nil {
		return nil, errors.Wrap(errors.ErrUnavailable, unavailableMessage, err)
	}

	err = l.repo.MarkVerified(ctx, code.ID, code.Version, token, now)
	if stderrors.Is(err, persistence.ErrVersionConflict) {
		return l.concurrentVerify(ctx, code.ID)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrUnavailable, unavailableMessage, err)
	}

	l.logger.Info().Str("otpId", code.ID).Msg("verification code verified")

	return &Verified{
		OTPID:             code.ID,
		VerificationToken: token,
		ExpiresAt:         code.ExpiresAt,
	}, nil
}

// concurrentVerify resolves a lost MarkVerified race by returning the token the
// winning request stored.
func (l *Ledger) concurrentVerify(ctx context.Context, id string) (*Verified, error) {
	code, err := l.repo.Get(ctx, id)
	if err != nil {
		return nil, l.lookupError(err, "no verification code found")
	}
	if code.IsVerified && code.VerificationToken != "" && !code.IsUsed {
		return verified(code), nil
	}
	if code.IsUsed {
		return nil, errors.New(errors.ErrAlreadyUsed, "verification code already used")
	}
	return nil, errors.New(errors.ErrMismatch, "invalid verification code")
}

// ValidateVerifiedToken returns the verified, unused and unexpired code that
// owns token.
func (l *Ledger) ValidateVerifiedToken(ctx context.Context, identifier string, kind Kind, purpose Purpose, token string) (*Code, error) {
	identifier = Normalize(identifier, kind)
	invalid := errors.New(errors.ErrUnauthorized, "invalid or expired verification token")

	if token == "" {
		return nil, invalid
	}
	code, err := l.repo.FindByToken(ctx, identifier, kind, purpose, token)
	if stderrors.Is(err, persistence.ErrNoRecord) {
		return nil, invalid
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrUnavailable, unavailableMessage, err)
	}

	if !code.IsVerified || code.IsUsed || code.IsExpired(l.nowFunc()) {
		return nil, invalid
	}
	return code, nil
}

// Consume marks a verified code as used. A second call reports NotFound.
func (l *Ledger) Consume(ctx context.Context, id string) error {
	err := l.repo.MarkUsed(ctx, id, l.nowFunc())
	if err != nil {
		return l.lookupError(err, "verification code not found")
	}
	return nil
}

// Sweep removes codes that expired more than the retention period ago. Every
// read path checks expiry itself, so sweeping is housekeeping only.
func (l *Ledger) Sweep(ctx context.Context) (int64, error) {
	removed, err := l.repo.DeleteExpired(ctx, l.nowFunc().Add(-l.retention))
	if err != nil {
		return 0, errors.Wrapf(err, "Ledger.Sweep")
	}
	if removed > 0 {
		l.logger.Debug().Int64("removed", removed).Msg("expired verification codes swept")
	}
	return removed, nil
}

// RunSweeper calls Sweep every interval until ctx is done. A non-positive
// interval disables sweeping.
func (l *Ledger) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := l.Sweep(ctx); err != nil {
				l.logger.Warn().Err(err).Msg("verification code sweep failed")
			}
		}
	}
}

func (l *Ledger) lookupError(err error, message string) error {
	if stderrors.Is(err, persistence.ErrNoRecord) {
		return errors.New(errors.ErrNotFound, message)
	}
	return errors.Wrap(errors.ErrUnavailable, unavailableMessage, err)
}

func verified(code *Code) *Verified {
	return &Verified{
		OTPID:             code.ID,
		VerificationToken: code.VerificationToken,
		ExpiresAt:         code.ExpiresAt,
	}
}
