package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carried by both access and refresh tokens.
type Claims struct {
	DeviceID  string `json:"deviceId"`
	SessionID string `json:"sessionId"`
	jwt.RegisteredClaims
}

// Subject identifies who a token pair is minted for.
type Subject struct {
	UserID    string
	DeviceID  string
	SessionID string
}

// Pair is a freshly minted access/refresh token pair.
type Pair struct {
	AccessToken      string `json:"accessToken"`
	RefreshToken     string `json:"refreshToken"`
	ExpiresIn        int64  `json:"expiresIn"`
	RefreshExpiresIn int64  `json:"refreshExpiresIn"`
}

// Issuer mints and verifies token pairs. Access and refresh tokens are signed
// by different signers so neither can stand in for the other.
type Issuer struct {
	access     Signer
	refresh    Signer
	accessTTL  string
	refreshTTL string
	nowFunc    func() time.Time
}

type IssuerOption func(*Issuer)

func WithTTL(accessTTL, refreshTTL string) IssuerOption {
	return func(i *Issuer) {
		i.accessTTL = accessTTL
		i.refreshTTL = refreshTTL
	}
}

func WithNowFunc(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowFunc = now
	}
}

func NewIssuer(access, refresh Signer, options ...IssuerOption) *Issuer {
	i := &Issuer{
		access:     access,
		refresh:    refresh,
		accessTTL:  "24h",
		refreshTTL: "7d",
		nowFunc:    time.Now,
	}
	for _, opt := range options {
		opt(i)
	}
	return i
}

// AccessTTLSeconds is the client-facing expiresIn value.
func (i *Issuer) AccessTTLSeconds() int64 {
	return ParseTTL(i.accessTTL)
}

func (i *Issuer) Issue(sub Subject) (Pair, error) {
	now := i.nowFunc()

	accessToken, err := i.access.Sign(i.claims(sub, now, ParseTTL(i.accessTTL)))
	if err != nil {
		return Pair{}, fmt.Errorf("Issuer.Issue access: %w", err)
	}
	refreshToken, err := i.refresh.Sign(i.claims(sub, now, ParseTTL(i.refreshTTL)))
	if err != nil {
		return Pair{}, fmt.Errorf("Issuer.Issue refresh: %w", err)
	}

	return Pair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		ExpiresIn:        ParseTTL(i.accessTTL),
		RefreshExpiresIn: ParseTTL(i.refreshTTL),
	}, nil
}

func (i *Issuer) ParseAccess(raw string) (*Claims, error) {
	return i.parse(raw, i.access)
}

func (i *Issuer) ParseRefresh(raw string) (*Claims, error) {
	return i.parse(raw, i.refresh)
}

func (i *Issuer) claims(sub Subject, now time.Time, ttlSeconds int64) *Claims {
	return &Claims{
		DeviceID:  sub.DeviceID,
		SessionID: sub.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttlSeconds) * time.Second)),
			ID:        uuid.NewString(),
		},
	}
}

func (i *Issuer) parse(raw string, signer Signer) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, signer.GetVerificationKey,
		jwt.WithValidMethods([]string{signer.GetSigningMethod().Alg()}),
		jwt.WithTimeFunc(i.nowFunc),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
