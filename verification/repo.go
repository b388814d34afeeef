package verification

import (
	"context"
	"time"
)

// Repo persists verification codes. Reads never return soft-deleted rows and
// missing rows are reported as persistence.ErrNoRecord.
type Repo interface {
	// Replace marks every unused code for the same identifier, kind and purpose
	// as used and unverified, then inserts code. Both happen atomically.
	Replace(ctx context.Context, code *Code) error
	// Latest returns the unused code for the triple if there is one, otherwise
	// the most recently created code.
	Latest(ctx context.Context, identifier string, kind Kind, purpose Purpose) (*Code, error)
	FindByToken(ctx context.Context, identifier string, kind Kind, purpose Purpose, token string) (*Code, error)
	Get(ctx context.Context, id string) (*Code, error)
	// IncrementAttempts returns the attempt count after the increment.
	IncrementAttempts(ctx context.Context, id string, now time.Time) (int, error)
	// MarkVerified succeeds only while the stored version equals version and the
	// code is still unverified; otherwise it returns persistence.ErrVersionConflict.
	MarkVerified(ctx context.Context, id string, version int, token string, now time.Time) error
	// MarkUsed succeeds only for an unused code.
	MarkUsed(ctx context.Context, id string, now time.Time) error
	CountSince(ctx context.Context, identifier string, kind Kind, since time.Time) (int, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
