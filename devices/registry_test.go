package devices_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-otp-auth/devices"
	devicerepofake "github.com/jrsteele09/go-otp-auth/devices/repofake"
	"github.com/jrsteele09/go-otp-auth/internal/errors"
	"github.com/jrsteele09/go-otp-auth/internal/persistence"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testUser = "user-1"
	iPhoneUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
)

type testFixture struct {
	now      time.Time
	repo     *devicerepofake.FakeDeviceRepo
	registry *devices.Registry
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		now:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		repo: devicerepofake.NewFakeDeviceRepo(),
	}
	f.registry = devices.NewRegistry(f.repo,
		devices.WithNowFunc(func() time.Time { return f.now }),
		devices.WithLogger(zerolog.Nop()),
	)
	return f
}

func (f *testFixture) register(t *testing.T, deviceID, ip string) *devices.Device {
	t.Helper()
	d, _, err := f.registry.RegisterOrUpdate(context.Background(), devices.RegisterRequest{
		UserID:    testUser,
		DeviceID:  deviceID,
		UserAgent: iPhoneUA,
		IP:        ip,
	})
	require.NoError(t, err)
	return d
}

func TestRegisterNewDevice(t *testing.T) {
	f := setupTestFixture(t)

	d, created, err := f.registry.RegisterOrUpdate(context.Background(), devices.RegisterRequest{
		UserID:    testUser,
		DeviceID:  "device-1",
		UserAgent: iPhoneUA,
		IP:        "203.0.113.10",
		Name:      "Jane's phone",
	})
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, 1, d.LoginCount)
	require.Equal(t, devices.TypeMobile, d.DeviceType)
	require.Equal(t, "iOS", d.OS)
	require.Equal(t, "Safari", d.Browser)
	require.Equal(t, devices.Fingerprint(iPhoneUA, "203.0.113.10"), d.Fingerprint)
	require.Equal(t, f.now, d.FirstSeenAt)
	require.False(t, d.IsTrusted)
	require.False(t, d.IsBlocked)
}

func TestRegisterExistingDeviceUpdatesSighting(t *testing.T) {
	f := setupTestFixture(t)
	first := f.register(t, "device-1", "203.0.113.10")

	f.now = f.now.Add(time.Hour)
	d, created, err := f.registry.RegisterOrUpdate(context.Background(), devices.RegisterRequest{
		UserID:    testUser,
		DeviceID:  "device-1",
		UserAgent: "curl/8.0",
		IP:        "198.51.100.7",
		Name:      "renamed",
	})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, 2, d.LoginCount)
	require.Equal(t, "198.51.100.7", d.IP)
	require.Equal(t, "curl/8.0", d.UserAgent)
	require.Equal(t, "renamed", d.Name)
	require.Equal(t, f.now, d.LastSeenAt)
	require.Equal(t, first.FirstSeenAt, d.FirstSeenAt)
	// fingerprint and classification are fixed at first sighting
	require.Equal(t, first.Fingerprint, d.Fingerprint)
	require.Equal(t, devices.TypeMobile, d.DeviceType)
	require.Equal(t, first.Version+1, d.Version)
}

func TestTrustAndBlock(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.register(t, "device-1", "203.0.113.10")

	trusted, err := f.registry.IsTrusted(ctx, "device-1")
	require.NoError(t, err)
	require.False(t, trusted)

	require.NoError(t, f.registry.Trust(ctx, "device-1"))
	trusted, err = f.registry.IsTrusted(ctx, "device-1")
	require.NoError(t, err)
	require.True(t, trusted)

	require.NoError(t, f.registry.Block(ctx, "device-1", "reported stolen"))
	blocked, err := f.registry.IsBlocked(ctx, "device-1")
	require.NoError(t, err)
	require.True(t, blocked)

	d, err := f.repo.GetByDeviceID(ctx, "device-1")
	require.NoError(t, err)
	require.Equal(t, "reported stolen", d.BlockedReason)
}

func TestUnknownDevice(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	blocked, err := f.registry.IsBlocked(ctx, "nope")
	require.NoError(t, err)
	require.False(t, blocked)

	require.ErrorIs(t, f.registry.Trust(ctx, "nope"), errors.ErrNotFound)
	require.ErrorIs(t, f.registry.Block(ctx, "nope", "x"), errors.ErrNotFound)
}

func TestListAndRemove(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.register(t, "device-1", "203.0.113.10")
	f.now = f.now.Add(time.Minute)
	f.register(t, "device-2", "203.0.113.10")

	list, err := f.registry.List(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "device-2", list[0].DeviceID)

	require.ErrorIs(t, f.registry.Remove(ctx, "someone-else", "device-1"), errors.ErrNotFound)
	require.NoError(t, f.registry.Remove(ctx, testUser, "device-1"))

	list, err = f.registry.List(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, list, 1)

	// a removed device registers again as new
	_, created, err := f.registry.RegisterOrUpdate(ctx, devices.RegisterRequest{UserID: testUser, DeviceID: "device-1", IP: "203.0.113.10"})
	require.NoError(t, err)
	require.True(t, created)
}

func TestSuspiciousActivity(t *testing.T) {
	ctx := context.Background()

	t.Run("first device is not suspicious", func(t *testing.T) {
		f := setupTestFixture(t)
		a, err := f.registry.SuspiciousActivity(ctx, testUser, "device-1", "203.0.113.10")
		require.NoError(t, err)
		require.False(t, a.IsSuspicious)
		require.Empty(t, a.Reasons)
	})

	t.Run("known device same ip", func(t *testing.T) {
		f := setupTestFixture(t)
		f.register(t, "device-1", "203.0.113.10")
		a, err := f.registry.SuspiciousActivity(ctx, testUser, "device-1", "203.0.113.10")
		require.NoError(t, err)
		require.False(t, a.IsSuspicious)
	})

	t.Run("new device", func(t *testing.T) {
		f := setupTestFixture(t)
		f.register(t, "device-1", "203.0.113.10")
		a, err := f.registry.SuspiciousActivity(ctx, testUser, "device-2", "203.0.113.10")
		require.NoError(t, err)
		require.True(t, a.IsSuspicious)
		require.Equal(t, []string{devices.ReasonNewDevice}, a.Reasons)
	})

	t.Run("ip changed", func(t *testing.T) {
		f := setupTestFixture(t)
		f.register(t, "device-1", "203.0.113.10")
		a, err := f.registry.SuspiciousActivity(ctx, testUser, "device-1", "198.51.100.7")
		require.NoError(t, err)
		require.Equal(t, []string{devices.ReasonIPChanged}, a.Reasons)
	})

	t.Run("multiple ips counts the current request", func(t *testing.T) {
		f := setupTestFixture(t)
		f.register(t, "device-1", "10.0.0.1")
		f.register(t, "device-2", "10.0.0.2")
		f.register(t, "device-3", "10.0.0.3")

		a, err := f.registry.SuspiciousActivity(ctx, testUser, "device-3", "10.0.0.3")
		require.NoError(t, err)
		require.False(t, a.IsSuspicious)

		a, err = f.registry.SuspiciousActivity(ctx, testUser, "device-4", "10.0.0.4")
		require.NoError(t, err)
		require.Equal(t, []string{devices.ReasonNewDevice, devices.ReasonMultipleIPs}, a.Reasons)
	})

	t.Run("old sightings fall out of the window", func(t *testing.T) {
		f := setupTestFixture(t)
		f.register(t, "device-1", "10.0.0.1")
		f.register(t, "device-2", "10.0.0.2")
		f.register(t, "device-3", "10.0.0.3")
		f.now = f.now.Add(2 * time.Hour)

		a, err := f.registry.SuspiciousActivity(ctx, testUser, "device-3", "10.0.0.4")
		require.NoError(t, err)
		require.Equal(t, []string{devices.ReasonIPChanged}, a.Reasons)
	})
}

func TestRegisterRetriesOnVersionConflict(t *testing.T) {
	repo := &conflictOnceRepo{FakeDeviceRepo: devicerepofake.NewFakeDeviceRepo()}
	registry := devices.NewRegistry(repo, devices.WithLogger(zerolog.Nop()))
	ctx := context.Background()

	_, _, err := registry.RegisterOrUpdate(ctx, devices.RegisterRequest{UserID: testUser, DeviceID: "device-1"})
	require.NoError(t, err)

	d, created, err := registry.RegisterOrUpdate(ctx, devices.RegisterRequest{UserID: testUser, DeviceID: "device-1"})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, 2, d.LoginCount)
	require.Equal(t, 2, repo.updates)
}

type conflictOnceRepo struct {
	*devicerepofake.FakeDeviceRepo
	updates int
}

func (r *conflictOnceRepo) Update(ctx context.Context, d *devices.Device, expectedVersion int) error {
	r.updates++
	if r.updates == 1 {
		return persistence.ErrVersionConflict
	}
	return r.FakeDeviceRepo.Update(ctx, d, expectedVersion)
}

func TestRemoveBlockedDevice(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.register(t, "device-1", "203.0.113.10")
	require.NoError(t, f.registry.Block(ctx, "device-1", "reported stolen"))

	require.ErrorIs(t, f.registry.Remove(ctx, testUser, "device-1"), errors.ErrUnauthorized)

	d, err := f.registry.Get(ctx, "device-1")
	require.NoError(t, err)
	require.True(t, d.IsBlocked)

	_, err = f.registry.Get(ctx, "nope")
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestRevivedDeviceKeepsBlock(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.register(t, "device-1", "203.0.113.10")
	require.NoError(t, f.registry.Trust(ctx, "device-1"))
	require.NoError(t, f.registry.Block(ctx, "device-1", "reported stolen"))
	require.NoError(t, f.repo.SoftDelete(ctx, "device-1", f.now))

	f.now = f.now.Add(time.Minute)
	d, created, err := f.registry.RegisterOrUpdate(ctx, devices.RegisterRequest{UserID: testUser, DeviceID: "device-1", IP: "203.0.113.10"})
	require.NoError(t, err)
	require.True(t, created)
	require.True(t, d.IsBlocked)
	require.Equal(t, "reported stolen", d.BlockedReason)
	require.False(t, d.IsTrusted)

	stored, err := f.repo.GetByDeviceID(ctx, "device-1")
	require.NoError(t, err)
	require.True(t, stored.IsBlocked)
}

func TestOwnerChangeDropsTrust(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.register(t, "device-1", "203.0.113.10")
	require.NoError(t, f.registry.Trust(ctx, "device-1"))

	f.now = f.now.Add(time.Minute)
	d, created, err := f.registry.RegisterOrUpdate(ctx, devices.RegisterRequest{UserID: "user-2", DeviceID: "device-1", IP: "203.0.113.10"})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, "user-2", d.UserID)
	require.False(t, d.IsTrusted)

	trusted, err := f.registry.IsTrusted(ctx, "device-1")
	require.NoError(t, err)
	require.False(t, trusted)
}

func TestSameOwnerKeepsTrust(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.register(t, "device-1", "203.0.113.10")
	require.NoError(t, f.registry.Trust(ctx, "device-1"))

	d := f.register(t, "device-1", "203.0.113.11")
	require.True(t, d.IsTrusted)
}
