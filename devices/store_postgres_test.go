package devices_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jrsteele09/go-otp-auth/devices"
	"github.com/jrsteele09/go-otp-auth/internal/persistence"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

var deviceColumns = []string{
	"id", "device_id", "user_id", "name", "fingerprint", "device_type",
	"os", "browser", "user_agent", "ip",
	"is_trusted", "is_blocked", "blocked_reason",
	"first_seen_at", "last_seen_at", "login_count",
	"created_at", "updated_at", "version",
}

func newPostgresRepo(t *testing.T) (*devices.PostgresRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return devices.NewPostgresRepo(mock), mock
}

func TestPostgresGetByDeviceID(t *testing.T) {
	repo, mock := newPostgresRepo(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM devices").
		WithArgs("device-1").
		WillReturnRows(pgxmock.NewRows(deviceColumns).AddRow(
			"row-1", "device-1", testUser, "", "abc", "mobile",
			"iOS", "Safari", iPhoneUA, "203.0.113.10",
			true, false, "",
			now, now, 4,
			now, now, 5,
		))

	d, err := repo.GetByDeviceID(context.Background(), "device-1")
	require.NoError(t, err)
	require.Equal(t, devices.TypeMobile, d.DeviceType)
	require.True(t, d.IsTrusted)
	require.Equal(t, 4, d.LoginCount)
	require.Equal(t, 5, d.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetByDeviceIDNoRows(t *testing.T) {
	repo, mock := newPostgresRepo(t)
	mock.ExpectQuery("FROM devices").WithArgs("missing").WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByDeviceID(context.Background(), "missing")
	require.ErrorIs(t, err, persistence.ErrNoRecord)
}

func TestPostgresInsertConflict(t *testing.T) {
	repo, mock := newPostgresRepo(t)
	now := time.Now()
	d := &devices.Device{Record: persistence.NewRecord(now), DeviceID: "device-1", UserID: testUser, DeviceType: devices.TypeDesktop, FirstSeenAt: now, LoginCount: 1}

	mock.ExpectQuery("INSERT INTO devices").
		WithArgs(d.ID, "device-1", testUser, "", "", "desktop", "", "", "", "", now, 1, 1).
		WillReturnError(pgx.ErrNoRows)

	require.ErrorIs(t, repo.Insert(context.Background(), d), persistence.ErrVersionConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertReviveKeepsBlock(t *testing.T) {
	repo, mock := newPostgresRepo(t)
	now := time.Now()
	d := &devices.Device{Record: persistence.NewRecord(now), DeviceID: "device-1", UserID: testUser, DeviceType: devices.TypeDesktop, FirstSeenAt: now, LoginCount: 1}

	// the revive branch must not touch the block columns
	mock.ExpectQuery(`(?s)ON CONFLICT \(device_id\) DO UPDATE SET.*is_trusted = FALSE,\s+first_seen_at.*RETURNING is_blocked`).
		WithArgs(d.ID, "device-1", testUser, "", "", "desktop", "", "", "", "", now, 1, 1).
		WillReturnRows(pgxmock.NewRows([]string{"is_blocked", "blocked_reason"}).AddRow(true, "reported stolen"))

	require.NoError(t, repo.Insert(context.Background(), d))
	require.True(t, d.IsBlocked)
	require.Equal(t, "reported stolen", d.BlockedReason)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateIsVersionConditional(t *testing.T) {
	repo, mock := newPostgresRepo(t)
	now := time.Now()
	d := &devices.Device{Record: persistence.NewRecord(now), DeviceID: "device-1", UserID: testUser, LastSeenAt: now, LoginCount: 2}
	d.Version = 3

	mock.ExpectExec("UPDATE devices").
		WithArgs("device-1", testUser, "", "", "", false, now, 2, now, 3, 2).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.ErrorIs(t, repo.Update(context.Background(), d, 2), persistence.ErrVersionConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSetBlockedUnknown(t *testing.T) {
	repo, mock := newPostgresRepo(t)
	now := time.Now()

	mock.ExpectExec("UPDATE devices").
		WithArgs("missing", "stolen", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.ErrorIs(t, repo.SetBlocked(context.Background(), "missing", "stolen", now), persistence.ErrNoRecord)
	require.NoError(t, mock.ExpectationsWereMet())
}
