package users

import (
	"context"
)

type IdentifierType string

const (
	IdentifierPhone IdentifierType = "phone"
	IdentifierEmail IdentifierType = "email"
)

// Snapshot is the identity view returned by the user service. The login flow
// only reads it; profile data is owned elsewhere.
type Snapshot struct {
	ID                       string `json:"id"`
	Phone                    string `json:"phone,omitempty"`
	Email                    string `json:"email,omitempty"`
	Username                 string `json:"username,omitempty"`
	Status                   string `json:"status"`
	LifecycleState           string `json:"lifecycleState,omitempty"`
	ProfileCompletionPercent int    `json:"profileCompletionPercent,omitempty"`
	ReferralCode             string `json:"referralCode,omitempty"`
	NeedsOnboarding          bool   `json:"needsOnboarding,omitempty"`
}

type LookupRequest struct {
	Identifier     string         `json:"identifier"`
	IdentifierType IdentifierType `json:"identifierType"`
	DeviceID       string         `json:"deviceId,omitempty"`
	IP             string         `json:"ipAddress,omitempty"`
}

type LoginMetadata struct {
	DeviceID string `json:"deviceId,omitempty"`
	IP       string `json:"ipAddress,omitempty"`
}

// Directory resolves identifiers to users, creating them on first login.
type Directory interface {
	LookupOrCreate(ctx context.Context, req LookupRequest) (*Snapshot, error)
	RecordLogin(ctx context.Context, userID string, meta LoginMetadata) error
}
