package verification_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jrsteele09/go-otp-auth/internal/persistence"
	"github.com/jrsteele09/go-otp-auth/verification"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

var codeColumns = []string{
	"id", "identifier", "kind", "code", "purpose", "expires_at",
	"attempts", "max_attempts", "is_used", "used_at", "is_verified", "verified_at",
	"verification_token", "device_id", "ip",
	"created_at", "updated_at", "version",
}

func newPostgresRepo(t *testing.T) (*verification.PostgresRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return verification.NewPostgresRepo(mock), mock
}

func TestPostgresReplaceRunsInTransaction(t *testing.T) {
	repo, mock := newPostgresRepo(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	code := &verification.Code{
		Record:      persistence.NewRecord(now),
		Identifier:  testPhone,
		Kind:        verification.KindPhone,
		Code:        "123456",
		Purpose:     verification.PurposeLogin,
		ExpiresAt:   now.Add(5 * time.Minute),
		MaxAttempts: 3,
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE verification_codes").
		WithArgs(testPhone, "phone", "login", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO verification_codes").
		WithArgs(code.ID, testPhone, "phone", "123456", "login", code.ExpiresAt, 3, "", "", now, 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Replace(context.Background(), code))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReplaceRollsBackOnInsertFailure(t *testing.T) {
	repo, mock := newPostgresRepo(t)
	now := time.Now()
	code := &verification.Code{Record: persistence.NewRecord(now), Identifier: testPhone, Kind: verification.KindPhone}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE verification_codes").WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec("INSERT INTO verification_codes").WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	require.Error(t, repo.Replace(context.Background(), code))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLatest(t *testing.T) {
	repo, mock := newPostgresRepo(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM verification_codes").
		WithArgs(testPhone, "phone", "login").
		WillReturnRows(pgxmock.NewRows(codeColumns).AddRow(
			"code-1", testPhone, "phone", "123456", "login", now.Add(5*time.Minute),
			1, 3, false, nil, false, nil,
			"", "device-1", testIP,
			now, now, 2,
		))

	code, err := repo.Latest(context.Background(), testPhone, verification.KindPhone, verification.PurposeLogin)
	require.NoError(t, err)
	require.Equal(t, "code-1", code.ID)
	require.Equal(t, verification.KindPhone, code.Kind)
	require.Equal(t, verification.PurposeLogin, code.Purpose)
	require.Equal(t, 1, code.Attempts)
	require.Equal(t, 2, code.Version)
	require.Nil(t, code.UsedAt)
	require.Equal(t, "device-1", code.DeviceID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLatestNotFound(t *testing.T) {
	repo, mock := newPostgresRepo(t)
	mock.ExpectQuery("FROM verification_codes").WillReturnError(pgx.ErrNoRows)

	_, err := repo.Latest(context.Background(), testPhone, verification.KindPhone, verification.PurposeLogin)
	require.ErrorIs(t, err, persistence.ErrNoRecord)
}

func TestPostgresMarkVerifiedConflict(t *testing.T) {
	repo, mock := newPostgresRepo(t)
	now := time.Now()

	mock.ExpectExec("UPDATE verification_codes").
		WithArgs("code-1", 2, now, "token").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.MarkVerified(context.Background(), "code-1", 2, "token", now)
	require.ErrorIs(t, err, persistence.ErrVersionConflict)
}

func TestPostgresMarkUsed(t *testing.T) {
	repo, mock := newPostgresRepo(t)
	now := time.Now()

	mock.ExpectExec("UPDATE verification_codes").WithArgs("code-1", now).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE verification_codes").WithArgs("code-1", now).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, repo.MarkUsed(context.Background(), "code-1", now))
	require.ErrorIs(t, repo.MarkUsed(context.Background(), "code-1", now), persistence.ErrNoRecord)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresIncrementAttempts(t *testing.T) {
	repo, mock := newPostgresRepo(t)
	now := time.Now()

	mock.ExpectQuery("UPDATE verification_codes").
		WithArgs("code-1", now).
		WillReturnRows(pgxmock.NewRows([]string{"attempts"}).AddRow(2))

	attempts, err := repo.IncrementAttempts(context.Background(), "code-1", now)
	require.NoError(t, err)
	require.Equal(t, 2, attempts)
}

func TestPostgresCountSinceAndDeleteExpired(t *testing.T) {
	repo, mock := newPostgresRepo(t)
	since := time.Now().Add(-time.Minute)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(testPhone, "phone", since).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectExec("DELETE FROM verification_codes").
		WithArgs(since).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	count, err := repo.CountSince(context.Background(), testPhone, verification.KindPhone, since)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	removed, err := repo.DeleteExpired(context.Background(), since)
	require.NoError(t, err)
	require.Equal(t, int64(4), removed)
	require.NoError(t, mock.ExpectationsWereMet())
}
