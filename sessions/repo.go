package sessions

import (
	"context"
	"time"
)

// Repo persists sessions. Only active sessions are returned by the Find and
// List methods; persistence.ErrNoRecord reports a miss.
type Repo interface {
	Insert(ctx context.Context, session *Session) error
	FindActive(ctx context.Context, id, userID string) (*Session, error)
	// RotateTokens replaces the token pair only while the session is active and
	// still holds currentRefresh.
	RotateTokens(ctx context.Context, id, currentRefresh, access, refresh string, now time.Time) error
	Touch(ctx context.Context, id string, now time.Time) error
	Revoke(ctx context.Context, id, userID string, reason RevokeReason, now time.Time) error
	RevokeAll(ctx context.Context, userID string, reason RevokeReason, now time.Time) (int64, error)
	RevokeByDevice(ctx context.Context, userID, deviceID string, reason RevokeReason, now time.Time) (int64, error)
	// ListActive orders by LastActivityAt, most recent first.
	ListActive(ctx context.Context, userID string) ([]*Session, error)
}
