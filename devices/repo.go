package devices

import (
	"context"
	"time"
)

// Repo persists devices. Reads never return soft-deleted rows.
type Repo interface {
	// GetByDeviceID returns persistence.ErrNoRecord when no live device matches.
	GetByDeviceID(ctx context.Context, deviceID string) (*Device, error)
	// Insert returns persistence.ErrVersionConflict if the DeviceID is already taken.
	// Reviving a soft-deleted device keeps its block and sets it on device.
	Insert(ctx context.Context, device *Device) error
	// Update writes device only if the stored version still equals expectedVersion.
	Update(ctx context.Context, device *Device, expectedVersion int) error
	ListByUser(ctx context.Context, userID string) ([]*Device, error)
	SetTrusted(ctx context.Context, deviceID string, trusted bool, now time.Time) error
	SetBlocked(ctx context.Context, deviceID, reason string, now time.Time) error
	SoftDelete(ctx context.Context, deviceID string, now time.Time) error
}
