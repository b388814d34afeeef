package devices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jrsteele09/go-otp-auth/internal/persistence"
)

const deviceColumns = `
	id, device_id, user_id, COALESCE(name, ''), fingerprint, device_type,
	COALESCE(os, ''), COALESCE(browser, ''), COALESCE(user_agent, ''), COALESCE(ip, ''),
	is_trusted, is_blocked, COALESCE(blocked_reason, ''),
	first_seen_at, last_seen_at, login_count,
	created_at, updated_at, version`

type PostgresRepo struct {
	db persistence.DB
}

var _ Repo = (*PostgresRepo)(nil)

func NewPostgresRepo(db persistence.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) GetByDeviceID(ctx context.Context, deviceID string) (*Device, error) {
	return scanDevice(r.db.QueryRow(ctx, `
		SELECT `+deviceColumns+`
		FROM devices
		WHERE device_id = $1 AND deleted_at IS NULL
	`, deviceID))
}

// Insert revives a soft-deleted row with the same device_id; a live row is a conflict.
// A revived row keeps its block, which is copied back onto d.
func (r *PostgresRepo) Insert(ctx context.Context, d *Device) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO devices (
			id, device_id, user_id, name, fingerprint, device_type, os, browser,
			user_agent, ip, is_trusted, is_blocked, blocked_reason,
			first_seen_at, last_seen_at, login_count, created_at, updated_at, version
		) VALUES (
			$1, $2, $3, NULLIF($4, ''), $5, $6, NULLIF($7, ''), NULLIF($8, ''),
			NULLIF($9, ''), NULLIF($10, ''), FALSE, FALSE, NULL,
			$11, $11, $12, $11, $11, $13
		)
		ON CONFLICT (device_id) DO UPDATE SET
			id = EXCLUDED.id, user_id = EXCLUDED.user_id, name = EXCLUDED.name,
			fingerprint = EXCLUDED.fingerprint, device_type = EXCLUDED.device_type,
			os = EXCLUDED.os, browser = EXCLUDED.browser, user_agent = EXCLUDED.user_agent,
			ip = EXCLUDED.ip, is_trusted = FALSE,
			first_seen_at = EXCLUDED.first_seen_at, last_seen_at = EXCLUDED.last_seen_at,
			login_count = EXCLUDED.login_count, created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at, deleted_at = NULL, version = EXCLUDED.version
		WHERE devices.deleted_at IS NOT NULL
		RETURNING is_blocked, COALESCE(blocked_reason, '')
	`, d.ID, d.DeviceID, d.UserID, d.Name, d.Fingerprint, string(d.DeviceType), d.OS, d.Browser,
		d.UserAgent, d.IP, d.FirstSeenAt, d.LoginCount, d.Version).Scan(&d.IsBlocked, &d.BlockedReason)
	if errors.Is(err, pgx.ErrNoRows) {
		return persistence.ErrVersionConflict
	}
	if err != nil {
		return fmt.Errorf("PostgresRepo.Insert: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Update(ctx context.Context, d *Device, expectedVersion int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE devices
		SET user_id = $2, name = NULLIF($3, ''), user_agent = NULLIF($4, ''), ip = NULLIF($5, ''),
		    is_trusted = $6, last_seen_at = $7, login_count = $8, updated_at = $9, version = $10
		WHERE device_id = $1 AND version = $11 AND deleted_at IS NULL
	`, d.DeviceID, d.UserID, d.Name, d.UserAgent, d.IP, d.IsTrusted,
		d.LastSeenAt, d.LoginCount, d.UpdatedAt, d.Version, expectedVersion)
	if err != nil {
		return fmt.Errorf("PostgresRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return persistence.ErrVersionConflict
	}
	return nil
}

func (r *PostgresRepo) ListByUser(ctx context.Context, userID string) ([]*Device, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+deviceColumns+`
		FROM devices
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY last_seen_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("PostgresRepo.ListByUser: %w", err)
	}
	defer rows.Close()

	list := make([]*Device, 0)
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("PostgresRepo.ListByUser rows: %w", err)
	}
	return list, nil
}

func (r *PostgresRepo) SetTrusted(ctx context.Context, deviceID string, trusted bool, now time.Time) error {
	return r.exec(ctx, "SetTrusted", `
		UPDATE devices
		SET is_trusted = $2, updated_at = $3, version = version + 1
		WHERE device_id = $1 AND deleted_at IS NULL
	`, deviceID, trusted, now)
}

func (r *PostgresRepo) SetBlocked(ctx context.Context, deviceID, reason string, now time.Time) error {
	return r.exec(ctx, "SetBlocked", `
		UPDATE devices
		SET is_blocked = TRUE, blocked_reason = NULLIF($2, ''), updated_at = $3, version = version + 1
		WHERE device_id = $1 AND deleted_at IS NULL
	`, deviceID, reason, now)
}

func (r *PostgresRepo) SoftDelete(ctx context.Context, deviceID string, now time.Time) error {
	return r.exec(ctx, "SoftDelete", `
		UPDATE devices
		SET deleted_at = $2, updated_at = $2, version = version + 1
		WHERE device_id = $1 AND deleted_at IS NULL
	`, deviceID, now)
}

func (r *PostgresRepo) exec(ctx context.Context, op, sql string, args ...any) error {
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("PostgresRepo.%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return persistence.ErrNoRecord
	}
	return nil
}

func scanDevice(row pgx.Row) (*Device, error) {
	var (
		d          Device
		deviceType string
	)
	err := row.Scan(
		&d.ID, &d.DeviceID, &d.UserID, &d.Name, &d.Fingerprint, &deviceType,
		&d.OS, &d.Browser, &d.UserAgent, &d.IP,
		&d.IsTrusted, &d.IsBlocked, &d.BlockedReason,
		&d.FirstSeenAt, &d.LastSeenAt, &d.LoginCount,
		&d.CreatedAt, &d.UpdatedAt, &d.Version,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, persistence.ErrNoRecord
	}
	if err != nil {
		return nil, fmt.Errorf("scanDevice: %w", err)
	}
	d.DeviceType = DeviceType(deviceType)
	return &d, nil
}
