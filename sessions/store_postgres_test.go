package sessions_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jrsteele09/go-otp-auth/internal/persistence"
	"github.com/jrsteele09/go-otp-auth/sessions"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

var sessionColumns = []string{
	"id", "user_id", "device_id", "access_token", "refresh_token",
	"ip", "user_agent", "is_active",
	"expires_at", "last_activity_at", "revoked_at", "revoke_reason",
	"created_at", "updated_at", "version",
}

func newPostgresRepo(t *testing.T) (*sessions.PostgresRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return sessions.NewPostgresRepo(mock), mock
}

func TestPostgresInsert(t *testing.T) {
	repo, mock := newPostgresRepo(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := &sessions.Session{
		Record:         persistence.NewRecord(now),
		UserID:         testUser,
		DeviceID:       testDevice,
		AccessToken:    "access",
		RefreshToken:   "refresh",
		IP:             testIP,
		UserAgent:      testUA,
		IsActive:       true,
		ExpiresAt:      now.Add(sessions.DefaultLifetime),
		LastActivityAt: now,
	}

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(s.ID, testUser, testDevice, "access", "refresh", testIP, testUA, s.ExpiresAt, now, now, 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Insert(context.Background(), s))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindActive(t *testing.T) {
	repo, mock := newPostgresRepo(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM sessions").
		WithArgs("session-1", testUser).
		WillReturnRows(pgxmock.NewRows(sessionColumns).AddRow(
			"session-1", testUser, testDevice, "access", "refresh",
			testIP, "", true,
			now.Add(time.Hour), now, nil, "",
			now, now, 3,
		))

	s, err := repo.FindActive(context.Background(), "session-1", testUser)
	require.NoError(t, err)
	require.Equal(t, "session-1", s.ID)
	require.True(t, s.IsActive)
	require.Equal(t, 3, s.Version)
	require.Nil(t, s.RevokedAt)
	require.Empty(t, s.RevokeReason)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindActiveNoRows(t *testing.T) {
	repo, mock := newPostgresRepo(t)

	mock.ExpectQuery("FROM sessions").
		WithArgs("missing", testUser).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.FindActive(context.Background(), "missing", testUser)
	require.ErrorIs(t, err, persistence.ErrNoRecord)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRotateTokensLostRace(t *testing.T) {
	repo, mock := newPostgresRepo(t)
	now := time.Now()

	mock.ExpectExec("UPDATE sessions").
		WithArgs("session-1", "old-refresh", "new-access", "new-refresh", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.RotateTokens(context.Background(), "session-1", "old-refresh", "new-access", "new-refresh", now)
	require.ErrorIs(t, err, persistence.ErrNoRecord)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRevokeAll(t *testing.T) {
	repo, mock := newPostgresRepo(t)
	now := time.Now()

	mock.ExpectExec("UPDATE sessions").
		WithArgs(testUser, now, "security").
		WillReturnResult(pgxmock.NewResult("UPDATE", 4))

	n, err := repo.RevokeAll(context.Background(), testUser, sessions.ReasonSecurity, now)
	require.NoError(t, err)
	require.Equal(t, int64(4), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListActive(t *testing.T) {
	repo, mock := newPostgresRepo(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM sessions").
		WithArgs(testUser).
		WillReturnRows(pgxmock.NewRows(sessionColumns).
			AddRow("session-2", testUser, "device-2", "a2", "r2", testIP, testUA, true,
				now.Add(time.Hour), now, nil, "", now, now, 1).
			AddRow("session-1", testUser, testDevice, "a1", "r1", testIP, testUA, true,
				now.Add(time.Hour), now.Add(-time.Minute), nil, "", now, now, 1))

	list, err := repo.ListActive(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "session-2", list[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
