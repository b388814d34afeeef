package sessions

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/jrsteele09/go-otp-auth/internal/errors"
	"github.com/jrsteele09/go-otp-auth/internal/persistence"
	"github.com/jrsteele09/go-otp-auth/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultLifetime    = 7 * 24 * time.Hour
	unavailableMessage = "service temporarily unavailable"
)

type CreateRequest struct {
	UserID    string
	DeviceID  string
	IP        string
	UserAgent string
}

// Manager issues, refreshes, validates and revokes sessions.
type Manager struct {
	repo     Repo
	issuer   *token.Issuer
	lifetime time.Duration
	nowFunc  func() time.Time
	logger   zerolog.Logger
}

type ManagerOption func(*Manager)

// WithLifetime sets how long a session lives regardless of token refreshes.
func WithLifetime(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.lifetime = d
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

func NewManager(repo Repo, issuer *token.Issuer, options ...ManagerOption) *Manager {
	m := &Manager{
		repo:     repo,
		issuer:   issuer,
		lifetime: DefaultLifetime,
		nowFunc:  time.Now,
		logger:   log.Logger,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *Manager) Create(ctx context.Context, req CreateRequest) (*Session, token.Pair, error) {
	now := m.nowFunc()
	session := &Session{
		Record:         persistence.NewRecord(now),
		UserID:         req.UserID,
		DeviceID:       req.DeviceID,
		IP:             req.IP,
		UserAgent:      req.UserAgent,
		IsActive:       true,
		ExpiresAt:      now.Add(m.lifetime),
		LastActivityAt: now,
	}

	pair, err := m.issuer.Issue(token.Subject{UserID: req.UserID, DeviceID: req.DeviceID, SessionID: session.ID})
	if err != nil {
		return nil, token.Pair{}, errors.Wrap(errors.ErrUnavailable, unavailableMessage, err)
	}
	session.AccessToken = pair.AccessToken
	session.RefreshToken = pair.RefreshToken

	if err := m.repo.Insert(ctx, session); err != nil {
		return nil, token.Pair{}, errors.Wrap(errors.ErrUnavailable, unavailableMessage, err)
	}

	m.logger.Info().Str("sessionId", session.ID).Str("userId", req.UserID).Msg("session created")
	return session, pair, nil
}

// Refresh exchanges a refresh token for a new pair. The device presenting the
// token must be the one it was issued to.
func (m *Manager) Refresh(ctx context.Context, refreshToken, deviceID string) (token.Pair, *Session, error) {
	invalid := errors.New(errors.ErrUnauthorized, "invalid refresh token")

	claims, err := m.issuer.ParseRefresh(refreshToken)
	if err != nil {
		return token.Pair{}, nil, invalid
	}
	if claims.DeviceID != deviceID {
		m.logger.Warn().Str("sessionId", claims.SessionID).Msg("refresh token presented by a different device")
		return token.Pair{}, nil, errors.New(errors.ErrUnauthorized, "device mismatch")
	}

	session, err := m.activeSession(ctx, claims.SessionID, claims.Subject)
	if err != nil {
		return token.Pair{}, nil, err
	}
	if session.RefreshToken != refreshToken {
		return token.Pair{}, nil, invalid
	}

	pair, err := m.issuer.Issue(token.Subject{UserID: session.UserID, DeviceID: session.DeviceID, SessionID: session.ID})
	if err != nil {
		return token.Pair{}, nil, errors.Wrap(errors.ErrUnavailable, unavailableMessage, err)
	}

	now := m.nowFunc()
	err = m.repo.RotateTokens(ctx, session.ID, refreshToken, pair.AccessToken, pair.RefreshToken, now)
	if stderrors.Is(err, persistence.ErrNoRecord) {
		return token.Pair{}, nil, invalid
	}
	if err != nil {
		return token.Pair{}, nil, errors.Wrap(errors.ErrUnavailable, unavailableMessage, err)
	}

	session.AccessToken = pair.AccessToken
	session.RefreshToken = pair.RefreshToken
	session.LastActivityAt = now
	session.Touch(now)
	return pair, session, nil
}

// Validate checks an access token against its live session and slides the
// session's last activity forward.
func (m *Manager) Validate(ctx context.Context, accessToken string) (*token.Claims, error) {
	claims, err := m.issuer.ParseAccess(accessToken)
	if err != nil {
		return nil, errors.New(errors.ErrUnauthorized, "invalid access token")
	}

	session, err := m.activeSession(ctx, claims.SessionID, claims.Subject)
	if err != nil {
		return nil, err
	}
	if session.AccessToken != accessToken {
		return nil, errors.New(errors.ErrUnauthorized, "invalid access token")
	}

	if err := m.repo.Touch(ctx, session.ID, m.nowFunc()); err != nil {
		if stderrors.Is(err, persistence.ErrNoRecord) {
			return nil, errors.New(errors.ErrUnauthorized, "session is no longer active")
		}
		return nil, errors.Wrap(errors.ErrUnavailable, unavailableMessage, err)
	}
	return claims, nil
}

// Revoke ends one session. Revoking a session that is not active reports NotFound.
func (m *Manager) Revoke(ctx context.Context, sessionID, userID string, reason RevokeReason) error {
	err := m.repo.Revoke(ctx, sessionID, userID, reason, m.nowFunc())
	if stderrors.Is(err, persistence.ErrNoRecord) {
		return errors.New(errors.ErrNotFound, "session not found")
	}
	if err != nil {
		return errors.Wrap(errors.ErrUnavailable, unavailableMessage, err)
	}
	m.logger.Info().Str("sessionId", sessionID).Str("reason", string(reason)).Msg("session revoked")
	return nil
}

func (m *Manager) RevokeAll(ctx context.Context, userID string, reason RevokeReason) (int64, error) {
	n, err := m.repo.RevokeAll(ctx, userID, reason, m.nowFunc())
	if err != nil {
		return 0, errors.Wrap(errors.ErrUnavailable, unavailableMessage, err)
	}
	m.logger.Info().Str("userId", userID).Int64("revoked", n).Str("reason", string(reason)).Msg("sessions revoked")
	return n, nil
}

func (m *Manager) RevokeByDevice(ctx context.Context, userID, deviceID string) (int64, error) {
	n, err := m.repo.RevokeByDevice(ctx, userID, deviceID, ReasonSecurity, m.nowFunc())
	if err != nil {
		return 0, errors.Wrap(errors.ErrUnavailable, unavailableMessage, err)
	}
	return n, nil
}

func (m *Manager) List(ctx context.Context, userID string) ([]*Session, error) {
	list, err := m.repo.ListActive(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrUnavailable, unavailableMessage, err)
	}
	now := m.nowFunc()
	live := make([]*Session, 0, len(list))
	for _, s := range list {
		if s.IsExpired(now) {
			m.revokeExpired(ctx, s, now)
			continue
		}
		live = append(live, s)
	}
	return live, nil
}

// activeSession loads an active session and revokes it if its lifetime has passed.
func (m *Manager) activeSession(ctx context.Context, sessionID, userID string) (*Session, error) {
	session, err := m.repo.FindActive(ctx, sessionID, userID)
	if stderrors.Is(err, persistence.ErrNoRecord) {
		return nil, errors.New(errors.ErrUnauthorized, "session is no longer active")
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrUnavailable, unavailableMessage, err)
	}

	now := m.nowFunc()
	if session.IsExpired(now) {
		m.revokeExpired(ctx, session, now)
		return nil, errors.New(errors.ErrUnauthorized, "session expired")
	}
	return session, nil
}

// revokeExpired is best effort; the caller already treats the session as gone.
func (m *Manager) revokeExpired(ctx context.Context, session *Session, now time.Time) {
	if err := m.repo.Revoke(ctx, session.ID, session.UserID, ReasonExpired, now); err != nil && !stderrors.Is(err, persistence.ErrNoRecord) {
		m.logger.Warn().Err(err).Str("sessionId", session.ID).Msg("failed to revoke expired session")
	}
}
