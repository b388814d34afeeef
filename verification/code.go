package verification

import (
	"strings"
	"time"
	"unicode"

	"github.com/jrsteele09/go-otp-auth/internal/persistence"
	"github.com/jrsteele09/go-otp-auth/internal/utils"
)

// Kind is the type of identifier a code is bound to.
type Kind string

const (
	KindPhone Kind = "phone"
	KindEmail Kind = "email"
)

func (k Kind) Valid() bool {
	return k == KindPhone || k == KindEmail
}

type Purpose string

const (
	PurposeSignup            Purpose = "signup"
	PurposeLogin             Purpose = "login"
	PurposePasswordReset     Purpose = "password_reset"
	PurposePhoneVerification Purpose = "phone_verification"
	PurposeEmailVerification Purpose = "email_verification"
)

func (p Purpose) Valid() bool {
	switch p {
	case PurposeSignup, PurposeLogin, PurposePasswordReset, PurposePhoneVerification, PurposeEmailVerification:
		return true
	}
	return false
}

// Code is one issued verification code.
//
// A code moves from unverified to verified (a verification token is assigned)
// to used (the token was exchanged for a session). Attempts only grow on a
// mismatched submission.
type Code struct {
	persistence.Record
	Identifier        string
	Kind              Kind
	Code              string
	Purpose           Purpose
	ExpiresAt         time.Time
	Attempts          int
	MaxAttempts       int
	IsUsed            bool
	UsedAt            *time.Time
	IsVerified        bool
	VerifiedAt        *time.Time
	VerificationToken string
	DeviceID          string
	IP                string
}

func (c *Code) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

func (c *Code) AttemptsExhausted() bool {
	return c.Attempts >= c.MaxAttempts
}

// Clone returns a deep copy so callers never share state with a repository.
func (c *Code) Clone() *Code {
	cp := *c
	cp.UsedAt = utils.Copy(c.UsedAt)
	cp.VerifiedAt = utils.Copy(c.VerifiedAt)
	cp.DeletedAt = utils.Copy(c.DeletedAt)
	return &cp
}

// Normalize lowercases and trims emails and strips all whitespace from phone numbers.
func Normalize(identifier string, kind Kind) string {
	if kind == KindEmail {
		return strings.ToLower(strings.TrimSpace(identifier))
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, identifier)
}
