package devicerepofake

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jrsteele09/go-otp-auth/devices"
	"github.com/jrsteele09/go-otp-auth/internal/persistence"
)

var _ devices.Repo = (*FakeDeviceRepo)(nil)

type FakeDeviceRepo struct {
	devices map[string]*devices.Device
	lock    sync.RWMutex
}

func NewFakeDeviceRepo() *FakeDeviceRepo {
	return &FakeDeviceRepo{
		devices: make(map[string]*devices.Device),
	}
}

func (r *FakeDeviceRepo) GetByDeviceID(_ context.Context, deviceID string) (*devices.Device, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	d, ok := r.live(deviceID)
	if !ok {
		return nil, persistence.ErrNoRecord
	}
	return d.Clone(), nil
}

func (r *FakeDeviceRepo) Insert(_ context.Context, device *devices.Device) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, exists := r.live(device.DeviceID); exists {
		return persistence.ErrVersionConflict
	}
	if removed, ok := r.devices[device.DeviceID]; ok {
		device.IsBlocked = removed.IsBlocked
		device.BlockedReason = removed.BlockedReason
	}
	r.devices[device.DeviceID] = device.Clone()
	return nil
}

func (r *FakeDeviceRepo) Update(_ context.Context, device *devices.Device, expectedVersion int) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	current, ok := r.live(device.DeviceID)
	if !ok {
		return persistence.ErrNoRecord
	}
	if current.Version != expectedVersion {
		return persistence.ErrVersionConflict
	}
	r.devices[device.DeviceID] = device.Clone()
	return nil
}

func (r *FakeDeviceRepo) ListByUser(_ context.Context, userID string) ([]*devices.Device, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	list := make([]*devices.Device, 0)
	for _, d := range r.devices {
		if d.UserID == userID && !d.IsDeleted() {
			list = append(list, d.Clone())
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].LastSeenAt.After(list[j].LastSeenAt)
	})
	return list, nil
}

func (r *FakeDeviceRepo) SetTrusted(_ context.Context, deviceID string, trusted bool, now time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	d, ok := r.live(deviceID)
	if !ok {
		return persistence.ErrNoRecord
	}
	d.IsTrusted = trusted
	d.Touch(now)
	return nil
}

func (r *FakeDeviceRepo) SetBlocked(_ context.Context, deviceID, reason string, now time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	d, ok := r.live(deviceID)
	if !ok {
		return persistence.ErrNoRecord
	}
	d.IsBlocked = true
	d.BlockedReason = reason
	d.Touch(now)
	return nil
}

func (r *FakeDeviceRepo) SoftDelete(_ context.Context, deviceID string, now time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	d, ok := r.live(deviceID)
	if !ok {
		return persistence.ErrNoRecord
	}
	d.SoftDelete(now)
	return nil
}

// Put stores a device as-is. Used by tests to seed history.
func (r *FakeDeviceRepo) Put(device *devices.Device) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.devices[device.DeviceID] = device.Clone()
}

func (r *FakeDeviceRepo) live(deviceID string) (*devices.Device, bool) {
	d, ok := r.devices[deviceID]
	if !ok || d.IsDeleted() {
		return nil, false
	}
	return d, true
}
