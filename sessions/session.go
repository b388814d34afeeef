package sessions

import (
	"time"

	"github.com/jrsteele09/go-otp-auth/internal/persistence"
	"github.com/jrsteele09/go-otp-auth/internal/utils"
)

type RevokeReason string

const (
	ReasonLogout   RevokeReason = "logout"
	ReasonExpired  RevokeReason = "expired"
	ReasonSecurity RevokeReason = "security"
	ReasonAdmin    RevokeReason = "admin"
)

// Session is the server-side record behind a token pair. Once revoked it is
// never reactivated.
type Session struct {
	persistence.Record
	UserID         string
	DeviceID       string
	AccessToken    string
	RefreshToken   string
	IP             string
	UserAgent      string
	IsActive       bool
	ExpiresAt      time.Time
	LastActivityAt time.Time
	RevokedAt      *time.Time
	RevokeReason   RevokeReason
}

func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

func (s *Session) Clone() *Session {
	cp := *s
	cp.RevokedAt = utils.Copy(s.RevokedAt)
	cp.DeletedAt = utils.Copy(s.DeletedAt)
	return &cp
}

// Summary is the client-facing view of a session; tokens are never included.
type Summary struct {
	ID             string    `json:"id"`
	DeviceID       string    `json:"deviceId"`
	IP             string    `json:"ipAddress,omitempty"`
	UserAgent      string    `json:"userAgent,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

func (s *Session) Summary() Summary {
	return Summary{
		ID:             s.ID,
		DeviceID:       s.DeviceID,
		IP:             s.IP,
		UserAgent:      s.UserAgent,
		CreatedAt:      s.CreatedAt,
		LastActivityAt: s.LastActivityAt,
		ExpiresAt:      s.ExpiresAt,
	}
}
