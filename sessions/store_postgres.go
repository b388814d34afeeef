package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jrsteele09/go-otp-auth/internal/persistence"
)

const sessionColumns = `
	id, user_id, device_id, access_token, refresh_token,
	COALESCE(ip, ''), COALESCE(user_agent, ''), is_active,
	expires_at, last_activity_at, revoked_at, COALESCE(revoke_reason, ''),
	created_at, updated_at, version`

type PostgresRepo struct {
	db persistence.DB
}

var _ Repo = (*PostgresRepo)(nil)

func NewPostgresRepo(db persistence.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Insert(ctx context.Context, s *Session) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO sessions (
			id, user_id, device_id, access_token, refresh_token,
			ip, user_agent, is_active, expires_at, last_activity_at,
			created_at, updated_at, version
		) VALUES (
			$1, $2, $3, $4, $5,
			NULLIF($6, ''), NULLIF($7, ''), TRUE, $8, $9,
			$10, $10, $11
		)
	`, s.ID, s.UserID, s.DeviceID, s.AccessToken, s.RefreshToken,
		s.IP, s.UserAgent, s.ExpiresAt, s.LastActivityAt,
		s.CreatedAt, s.Version)
	if err != nil {
		return fmt.Errorf("PostgresRepo.Insert: %w", err)
	}
	return nil
}

func (r *PostgresRepo) FindActive(ctx context.Context, id, userID string) (*Session, error) {
	return scanSession(r.db.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE id = $1 AND user_id = $2 AND is_active = TRUE AND deleted_at IS NULL
	`, id, userID))
}

func (r *PostgresRepo) RotateTokens(ctx context.Context, id, currentRefresh, access, refresh string, now time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE sessions
		SET access_token = $3, refresh_token = $4, last_activity_at = $5,
		    updated_at = $5, version = version + 1
		WHERE id = $1 AND refresh_token = $2 AND is_active = TRUE AND deleted_at IS NULL
	`, id, currentRefresh, access, refresh, now)
	if err != nil {
		return fmt.Errorf("PostgresRepo.RotateTokens: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return persistence.ErrNoRecord
	}
	return nil
}

func (r *PostgresRepo) Touch(ctx context.Context, id string, now time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE sessions
		SET last_activity_at = $2, updated_at = $2, version = version + 1
		WHERE id = $1 AND is_active = TRUE AND deleted_at IS NULL
	`, id, now)
	if err != nil {
		return fmt.Errorf("PostgresRepo.Touch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return persistence.ErrNoRecord
	}
	return nil
}

func (r *PostgresRepo) Revoke(ctx context.Context, id, userID string, reason RevokeReason, now time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE sessions
		SET is_active = FALSE, revoked_at = $3, revoke_reason = $4,
		    updated_at = $3, version = version + 1
		WHERE id = $1 AND user_id = $2 AND is_active = TRUE AND deleted_at IS NULL
	`, id, userID, now, string(reason))
	if err != nil {
		return fmt.Errorf("PostgresRepo.Revoke: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return persistence.ErrNoRecord
	}
	return nil
}

func (r *PostgresRepo) RevokeAll(ctx context.Context, userID string, reason RevokeReason, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE sessions
		SET is_active = FALSE, revoked_at = $2, revoke_reason = $3,
		    updated_at = $2, version = version + 1
		WHERE user_id = $1 AND is_active = TRUE AND deleted_at IS NULL
	`, userID, now, string(reason))
	if err != nil {
		return 0, fmt.Errorf("PostgresRepo.RevokeAll: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepo) RevokeByDevice(ctx context.Context, userID, deviceID string, reason RevokeReason, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE sessions
		SET is_active = FALSE, revoked_at = $3, revoke_reason = $4,
		    updated_at = $3, version = version + 1
		WHERE user_id = $1 AND device_id = $2 AND is_active = TRUE AND deleted_at IS NULL
	`, userID, deviceID, now, string(reason))
	if err != nil {
		return 0, fmt.Errorf("PostgresRepo.RevokeByDevice: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepo) ListActive(ctx context.Context, userID string) ([]*Session, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE user_id = $1 AND is_active = TRUE AND deleted_at IS NULL
		ORDER BY last_activity_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("PostgresRepo.ListActive: %w", err)
	}
	defer rows.Close()

	list := make([]*Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("PostgresRepo.ListActive rows: %w", err)
	}
	return list, nil
}

func scanSession(row pgx.Row) (*Session, error) {
	var (
		s      Session
		reason string
	)
	err := row.Scan(
		&s.ID, &s.UserID, &s.DeviceID, &s.AccessToken, &s.RefreshToken,
		&s.IP, &s.UserAgent, &s.IsActive,
		&s.ExpiresAt, &s.LastActivityAt, &s.RevokedAt, &reason,
		&s.CreatedAt, &s.UpdatedAt, &s.Version,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, persistence.ErrNoRecord
	}
	if err != nil {
		return nil, fmt.Errorf("scanSession: %w", err)
	}
	s.RevokeReason = RevokeReason(reason)
	return &s, nil
}
