package devices

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/jrsteele09/go-otp-auth/internal/errors"
	"github.com/jrsteele09/go-otp-auth/internal/persistence"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultMultipleIPThreshold = 3
	DefaultMultipleIPWindow    = time.Hour

	unavailableMessage = "service temporarily unavailable"
	maxWriteAttempts   = 3
)

type RegisterRequest struct {
	UserID    string
	DeviceID  string
	UserAgent string
	IP        string
	Name      string
}

// Registry tracks the devices each user signs in from.
type Registry struct {
	repo        Repo
	ipThreshold int
	ipWindow    time.Duration
	nowFunc     func() time.Time
	logger      zerolog.Logger
}

type RegistryOption func(*Registry)

// WithMultipleIPPolicy flags MULTIPLE_IPS when more than threshold distinct
// addresses were seen within window.
func WithMultipleIPPolicy(threshold int, window time.Duration) RegistryOption {
	return func(r *Registry) {
		r.ipThreshold = threshold
		r.ipWindow = window
	}
}

func WithNowFunc(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.nowFunc = now
	}
}

func WithLogger(logger zerolog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

func NewRegistry(repo Repo, options ...RegistryOption) *Registry {
	r := &Registry{
		repo:        repo,
		ipThreshold: DefaultMultipleIPThreshold,
		ipWindow:    DefaultMultipleIPWindow,
		nowFunc:     time.Now,
		logger:      log.Logger,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// RegisterOrUpdate records a sighting of a device. The second return value
// reports whether this was the first time the device was seen.
func (r *Registry) RegisterOrUpdate(ctx context.Context, req RegisterRequest) (*Device, bool, error) {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		now := r.nowFunc()

		existing, err := r.repo.GetByDeviceID(ctx, req.DeviceID)
		if stderrors.Is(err, persistence.ErrNoRecord) {
			device := r.newDevice(req, now)
			err = r.repo.Insert(ctx, device)
			if stderrors.Is(err, persistence.ErrVersionConflict) {
				continue
			}
			if err != nil {
				return nil, false, errors.Wrap(errors.ErrUnavailable, unavailableMessage, err)
			}
			r.logger.Info().Str("deviceId", req.DeviceID).Str("userId", req.UserID).Msg("new device registered")
			return device, true, nil
		}
		if err != nil {
			return nil, false, errors.Wrap(errors.ErrUnavailable, unavailableMessage, err)
		}

		expected := existing.Version
		device := existing.Clone()
		if device.UserID != req.UserID {
			r.logger.Warn().Str("deviceId", req.DeviceID).Str("previousUserId", device.UserID).
				Str("userId", req.UserID).Msg("device changed owner")
			device.UserID = req.UserID
			device.IsTrusted = false
		}
		device.LastSeenAt = now
		device.LoginCount++
		device.IP = req.IP
		device.UserAgent = req.UserAgent
		if req.Name != "" {
			device.Name = req.Name
		}
		device.Touch(now)

		err = r.repo.Update(ctx, device, expected)
		if stderrors.Is(err, persistence.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, false, errors.Wrap(errors.ErrUnavailable, unavailableMessage, err)
		}
		r.logger.Debug().Str("deviceId", req.DeviceID).Int("loginCount", device.LoginCount).Msg("device updated")
		return device, false, nil
	}
	return nil, false, errors.New(errors.ErrUnavailable, unavailableMessage)
}

func (r *Registry) newDevice(req RegisterRequest, now time.Time) *Device {
	client := ParseUserAgent(req.UserAgent)
	return &Device{
		Record:      persistence.NewRecord(now),
		DeviceID:    req.DeviceID,
		UserID:      req.UserID,
		Name:        req.Name,
		Fingerprint: Fingerprint(req.UserAgent, req.IP),
		DeviceType:  client.DeviceType,
		OS:          client.OS,
		Browser:     client.Browser,
		UserAgent:   req.UserAgent,
		IP:          req.IP,
		FirstSeenAt: now,
		LastSeenAt:  now,
		LoginCount:  1,
	}
}

// IsTrusted reports false for unknown devices.
func (r *Registry) IsTrusted(ctx context.Context, deviceID string) (bool, error) {
	device, err := r.find(ctx, deviceID)
	if err != nil || device == nil {
		return false, err
	}
	return device.IsTrusted, nil
}

// IsBlocked reports false for unknown devices.
func (r *Registry) IsBlocked(ctx context.Context, deviceID string) (bool, error) {
	device, err := r.find(ctx, deviceID)
	if err != nil || device == nil {
		return false, err
	}
	return device.IsBlocked, nil
}

func (r *Registry) Trust(ctx context.Context, deviceID string) error {
	if err := mapWriteError(r.repo.SetTrusted(ctx, deviceID, true, r.nowFunc())); err != nil {
		return err
	}
	r.logger.Info().Str("deviceId", deviceID).Msg("device marked as trusted")
	return nil
}

func (r *Registry) Block(ctx context.Context, deviceID, reason string) error {
	if err := mapWriteError(r.repo.SetBlocked(ctx, deviceID, reason, r.nowFunc())); err != nil {
		return err
	}
	r.logger.Warn().Str("deviceId", deviceID).Str("reason", reason).Msg("device blocked")
	return nil
}

// List returns a user's devices, most recently seen first.
func (r *Registry) List(ctx context.Context, userID string) ([]*Device, error) {
	list, err := r.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrUnavailable, unavailableMessage, err)
	}
	return list, nil
}

// Get returns a live device or a NotFound error.
func (r *Registry) Get(ctx context.Context, deviceID string) (*Device, error) {
	device, err := r.find(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if device == nil {
		return nil, errors.New(errors.ErrNotFound, "device not found")
	}
	return device, nil
}

// Remove forgets a device belonging to userID. Blocked devices stay on record.
func (r *Registry) Remove(ctx context.Context, userID, deviceID string) error {
	device, err := r.find(ctx, deviceID)
	if err != nil {
		return err
	}
	if device == nil || device.UserID != userID {
		return errors.New(errors.ErrNotFound, "device not found")
	}
	if device.IsBlocked {
		return errors.New(errors.ErrUnauthorized, "this device has been blocked")
	}
	return mapWriteError(r.repo.SoftDelete(ctx, deviceID, r.nowFunc()))
}

// SuspiciousActivity compares a login attempt with the user's device history.
// Call it before RegisterOrUpdate so the attempt is not part of the history.
func (r *Registry) SuspiciousActivity(ctx context.Context, userID, deviceID, ip string) (Assessment, error) {
	list, err := r.List(ctx, userID)
	if err != nil {
		return Assessment{}, err
	}

	var current *Device
	for _, d := range list {
		if d.DeviceID == deviceID {
			current = d
			break
		}
	}

	reasons := make([]string, 0)
	if current == nil && len(list) > 0 {
		reasons = append(reasons, ReasonNewDevice)
	}
	if current != nil && current.IP != ip {
		reasons = append(reasons, ReasonIPChanged)
	}

	now := r.nowFunc()
	since := now.Add(-r.ipWindow)
	ips := map[string]struct{}{}
	if ip != "" {
		ips[ip] = struct{}{}
	}
	for _, d := range list {
		if d.IP != "" && !d.LastSeenAt.Before(since) && !d.LastSeenAt.After(now) {
			ips[d.IP] = struct{}{}
		}
	}
	if len(ips) > r.ipThreshold {
		reasons = append(reasons, ReasonMultipleIPs)
	}

	return Assessment{IsSuspicious: len(reasons) > 0, Reasons: reasons}, nil
}

func (r *Registry) find(ctx context.Context, deviceID string) (*Device, error) {
	device, err := r.repo.GetByDeviceID(ctx, deviceID)
	if stderrors.Is(err, persistence.ErrNoRecord) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrUnavailable, unavailableMessage, err)
	}
	return device, nil
}

func mapWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, persistence.ErrNoRecord):
		return errors.New(errors.ErrNotFound, "device not found")
	default:
		return errors.Wrap(errors.ErrUnavailable, unavailableMessage, err)
	}
}
