package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jrsteele09/go-otp-auth/internal/persistence"
)

const codeColumns = `
	id, identifier, kind, code, purpose, expires_at,
	attempts, max_attempts, is_used, used_at, is_verified, verified_at,
	COALESCE(verification_token, ''), COALESCE(device_id, ''), COALESCE(ip, ''),
	created_at, updated_at, version`

// PostgresRepo stores codes in the verification_codes table.
type PostgresRepo struct {
	db persistence.DB
}

var _ Repo = (*PostgresRepo)(nil)

func NewPostgresRepo(db persistence.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Replace(ctx context.Context, code *Code) error {
	return persistence.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE verification_codes
			SET is_used = TRUE, is_verified = FALSE, verification_token = NULL,
			    updated_at = $4, version = version + 1
			WHERE identifier = $1 AND kind = $2 AND purpose = $3
			  AND is_used = FALSE AND deleted_at IS NULL
		`, code.Identifier, string(code.Kind), string(code.Purpose), code.CreatedAt)
		if err != nil {
			return fmt.Errorf("PostgresRepo.Replace invalidate: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO verification_codes (
				id, identifier, kind, code, purpose, expires_at,
				attempts, max_attempts, is_used, is_verified,
				device_id, ip, created_at, updated_at, version
			) VALUES (
				$1, $2, $3, $4, $5, $6,
				0, $7, FALSE, FALSE,
				NULLIF($8, ''), NULLIF($9, ''), $10, $10, $11
			)
		`, code.ID, code.Identifier, string(code.Kind), code.Code, string(code.Purpose), code.ExpiresAt,
			code.MaxAttempts, code.DeviceID, code.IP, code.CreatedAt, code.Version)
		if err != nil {
			return fmt.Errorf("PostgresRepo.Replace insert: %w", err)
		}
		return nil
	})
}

func (r *PostgresRepo) Latest(ctx context.Context, identifier string, kind Kind, purpose Purpose) (*Code, error) {
	return scanCode(r.db.QueryRow(ctx, `
		SELECT `+codeColumns+`
		FROM verification_codes
		WHERE identifier = $1 AND kind = $2 AND purpose = $3 AND deleted_at IS NULL
		ORDER BY is_used ASC, created_at DESC
		LIMIT 1
	`, identifier, string(kind), string(purpose)))
}

func (r *PostgresRepo) FindByToken(ctx context.Context, identifier string, kind Kind, purpose Purpose, token string) (*Code, error) {
	return scanCode(r.db.QueryRow(ctx, `
		SELECT `+codeColumns+`
		FROM verification_codes
		WHERE identifier = $1 AND kind = $2 AND purpose = $3
		  AND verification_token = $4 AND deleted_at IS NULL
		LIMIT 1
	`, identifier, string(kind), string(purpose), token))
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Code, error) {
	return scanCode(r.db.QueryRow(ctx, `
		SELECT `+codeColumns+`
		FROM verification_codes
		WHERE id = $1 AND deleted_at IS NULL
	`, id))
}

func (r *PostgresRepo) IncrementAttempts(ctx context.Context, id string, now time.Time) (int, error) {
	var attempts int
	err := r.db.QueryRow(ctx, `
		UPDATE verification_codes
		SET attempts = attempts + 1, updated_at = $2, version = version + 1
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING attempts
	`, id, now).Scan(&attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, persistence.ErrNoRecord
	}
	if err != nil {
		return 0, fmt.Errorf("PostgresRepo.IncrementAttempts: %w", err)
	}
	return attempts, nil
}

func (r *PostgresRepo) MarkVerified(ctx context.Context, id string, version int, token string, now time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE verification_codes
		SET is_verified = TRUE, verified_at = $3, verification_token = $4, attempts = 0,
		    updated_at = $3, version = version + 1
		WHERE id = $1 AND version = $2 AND is_verified = FALSE AND deleted_at IS NULL
	`, id, version, now, token)
	if err != nil {
		return fmt.Errorf("PostgresRepo.MarkVerified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return persistence.ErrVersionConflict
	}
	return nil
}

func (r *PostgresRepo) MarkUsed(ctx context.Context, id string, now time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE verification_codes
		SET is_used = TRUE, used_at = $2, updated_at = $2, version = version + 1
		WHERE id = $1 AND is_used = FALSE AND deleted_at IS NULL
	`, id, now)
	if err != nil {
		return fmt.Errorf("PostgresRepo.MarkUsed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return persistence.ErrNoRecord
	}
	return nil
}

func (r *PostgresRepo) CountSince(ctx context.Context, identifier string, kind Kind, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM verification_codes
		WHERE identifier = $1 AND kind = $2 AND created_at > $3 AND deleted_at IS NULL
	`, identifier, string(kind), since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("PostgresRepo.CountSince: %w", err)
	}
	return count, nil
}

func (r *PostgresRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM verification_codes WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("PostgresRepo.DeleteExpired: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanCode(row pgx.Row) (*Code, error) {
	var (
		c       Code
		kind    string
		purpose string
	)
	err := row.Scan(
		&c.ID, &c.Identifier, &kind, &c.Code, &purpose, &c.ExpiresAt,
		&c.Attempts, &c.MaxAttempts, &c.IsUsed, &c.UsedAt, &c.IsVerified, &c.VerifiedAt,
		&c.VerificationToken, &c.DeviceID, &c.IP,
		&c.CreatedAt, &c.UpdatedAt, &c.Version,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, persistence.ErrNoRecord
	}
	if err != nil {
		return nil, fmt.Errorf("scanCode: %w", err)
	}
	c.Kind = Kind(kind)
	c.Purpose = Purpose(purpose)
	return &c, nil
}
