package login

import (
	"time"

	"github.com/jrsteele09/go-otp-auth/sessions"
	"github.com/jrsteele09/go-otp-auth/token"
	"github.com/jrsteele09/go-otp-auth/users"
	"github.com/jrsteele09/go-otp-auth/verification"
)

type CodeRequest struct {
	Identifier string               `json:"identifier" validate:"required,max=255"`
	Kind       verification.Kind    `json:"identifierType" validate:"required,oneof=phone email"`
	Purpose    verification.Purpose `json:"purpose" validate:"required,purpose"`
	DeviceID   string               `json:"deviceId" validate:"omitempty,max=255"`
	IP         string               `json:"-"`
}

type CodeResponse struct {
	ExpiresIn int64     `json:"expiresIn"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type VerifyRequest struct {
	Identifier string               `json:"identifier" validate:"required,max=255"`
	Kind       verification.Kind    `json:"identifierType" validate:"required,oneof=phone email"`
	Code       string               `json:"code" validate:"required,numeric,min=4,max=10"`
	Purpose    verification.Purpose `json:"purpose" validate:"required,purpose"`
	DeviceID   string               `json:"deviceId" validate:"omitempty,max=255"`
}

type VerifyResponse struct {
	Verified          bool      `json:"verified"`
	VerificationToken string    `json:"verificationToken"`
	OTPID             string    `json:"otpId"`
	ExpiresAt         time.Time `json:"expiresAt"`
}

type Request struct {
	Identifier        string               `json:"identifier" validate:"required,max=255"`
	Kind              verification.Kind    `json:"identifierType" validate:"required,oneof=phone email"`
	DeviceID          string               `json:"deviceId" validate:"required,max=255"`
	VerificationToken string               `json:"verificationToken" validate:"required,hexadecimal,len=64"`
	Purpose           verification.Purpose `json:"purpose" validate:"omitempty,purpose"`
	DeviceName        string               `json:"deviceName" validate:"omitempty,max=100"`
	IP                string               `json:"-"`
	UserAgent         string               `json:"-"`
}

// User is the part of the identity snapshot returned to the client.
type User struct {
	ID                       string `json:"id"`
	Phone                    string `json:"phone,omitempty"`
	Email                    string `json:"email,omitempty"`
	Username                 string `json:"username,omitempty"`
	Status                   string `json:"status"`
	ProfileCompletionPercent int    `json:"profileCompletionPercent"`
}

type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type Response struct {
	User                   User   `json:"user"`
	Tokens                 Tokens `json:"tokens"`
	SessionID              string `json:"sessionId"`
	NeedsProfileCompletion bool   `json:"needsProfileCompletion"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
	DeviceID     string `json:"deviceId" validate:"required,max=255"`
}

type LogoutRequest struct {
	UserID    string `json:"-" validate:"required"`
	SessionID string `json:"sessionId" validate:"required"`
	DeviceID  string `json:"deviceId" validate:"omitempty,max=255"`
}

func userView(u *users.Snapshot) User {
	return User{
		ID:                       u.ID,
		Phone:                    u.Phone,
		Email:                    u.Email,
		Username:                 u.Username,
		Status:                   u.Status,
		ProfileCompletionPercent: u.ProfileCompletionPercent,
	}
}

func tokensView(p token.Pair) Tokens {
	return Tokens{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken, ExpiresIn: p.ExpiresIn}
}

func summaries(list []*sessions.Session) []sessions.Summary {
	out := make([]sessions.Summary, 0, len(list))
	for _, s := range list {
		out = append(out, s.Summary())
	}
	return out
}
