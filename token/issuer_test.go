package token_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-otp-auth/token"
	"github.com/stretchr/testify/require"
)

const (
	accessSecret  = "access-secret"
	refreshSecret = "refresh-secret"
	testUserID    = "user-1"
	testDeviceID  = "device-1"
	testSessionID = "session-1"
)

type testFixture struct {
	now    time.Time
	issuer *token.Issuer
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	access, refresh, err := token.NewHMACPair(accessSecret, refreshSecret)
	require.NoError(t, err)

	f := &testFixture{now: time.Now()}
	f.issuer = token.NewIssuer(access, refresh,
		token.WithTTL("15m", "7d"),
		token.WithNowFunc(func() time.Time { return f.now }),
	)
	return f
}

func subject() token.Subject {
	return token.Subject{UserID: testUserID, DeviceID: testDeviceID, SessionID: testSessionID}
}

func TestIssueAndParse(t *testing.T) {
	f := setupTestFixture(t)

	pair, err := f.issuer.Issue(subject())
	require.NoError(t, err)
	require.Equal(t, int64(900), pair.ExpiresIn)
	require.Equal(t, int64(7*24*60*60), pair.RefreshExpiresIn)

	claims, err := f.issuer.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, testUserID, claims.Subject)
	require.Equal(t, testDeviceID, claims.DeviceID)
	require.Equal(t, testSessionID, claims.SessionID)
	require.NotEmpty(t, claims.ID)

	claims, err = f.issuer.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, testSessionID, claims.SessionID)
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	f := setupTestFixture(t)

	pair, err := f.issuer.Issue(subject())
	require.NoError(t, err)

	_, err = f.issuer.ParseAccess(pair.RefreshToken)
	require.ErrorIs(t, err, token.ErrInvalidToken)

	_, err = f.issuer.ParseRefresh(pair.AccessToken)
	require.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestExpiredAccessToken(t *testing.T) {
	f := setupTestFixture(t)

	pair, err := f.issuer.Issue(subject())
	require.NoError(t, err)

	f.now = f.now.Add(16 * time.Minute)
	_, err = f.issuer.ParseAccess(pair.AccessToken)
	require.ErrorIs(t, err, token.ErrInvalidToken)

	_, err = f.issuer.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
}

func TestTamperedToken(t *testing.T) {
	f := setupTestFixture(t)

	pair, err := f.issuer.Issue(subject())
	require.NoError(t, err)

	other := token.NewIssuer(token.NewHMACSigner("another"), token.NewHMACSigner("another-refresh"))
	_, err = other.ParseAccess(pair.AccessToken)
	require.ErrorIs(t, err, token.ErrInvalidToken)

	_, err = f.issuer.ParseAccess("not-a-jwt")
	require.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestIssueProducesDistinctTokens(t *testing.T) {
	f := setupTestFixture(t)

	first, err := f.issuer.Issue(subject())
	require.NoError(t, err)
	second, err := f.issuer.Issue(subject())
	require.NoError(t, err)

	require.NotEqual(t, first.AccessToken, second.AccessToken)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)
}

func TestNewHMACPairRejectsBadSecrets(t *testing.T) {
	_, _, err := token.NewHMACPair("", refreshSecret)
	require.ErrorIs(t, err, token.ErrMissingSecret)

	_, _, err = token.NewHMACPair("same", "same")
	require.ErrorIs(t, err, token.ErrSharedSecret)
}
