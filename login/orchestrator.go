package login

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-otp-auth/devices"
	"github.com/jrsteele09/go-otp-auth/events"
	"github.com/jrsteele09/go-otp-auth/internal/errors"
	"github.com/jrsteele09/go-otp-auth/internal/metrics"
	"github.com/jrsteele09/go-otp-auth/notify"
	"github.com/jrsteele09/go-otp-auth/sessions"
	"github.com/jrsteele09/go-otp-auth/token"
	"github.com/jrsteele09/go-otp-auth/users"
	"github.com/jrsteele09/go-otp-auth/verification"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultDeliveryTimeout = 30 * time.Second
	eventSource            = "auth-service"
)

// Orchestrator sequences a login attempt across the verification ledger,
// device registry, identity directory and session manager.
type Orchestrator struct {
	ledger          *verification.Ledger
	sessions        *sessions.Manager
	devices         *devices.Registry
	directory       users.Directory
	channel         notify.Channel
	bus             events.Bus
	metrics         *metrics.Metrics
	deliveryTimeout time.Duration
	logCodes        bool
	nowFunc         func() time.Time
	logger          zerolog.Logger
	inflight        sync.WaitGroup
}

type Option func(*Orchestrator)

func WithChannel(channel notify.Channel) Option {
	return func(o *Orchestrator) {
		o.channel = channel
	}
}

func WithBus(bus events.Bus) Option {
	return func(o *Orchestrator) {
		o.bus = bus
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

func WithDeliveryTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.deliveryTimeout = d
	}
}

// WithCodeLogging logs issued codes at debug level. Never enable it in production.
func WithCodeLogging(enabled bool) Option {
	return func(o *Orchestrator) {
		o.logCodes = enabled
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.nowFunc = now
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

func NewOrchestrator(ledger *verification.Ledger, sessionManager *sessions.Manager, registry *devices.Registry, directory users.Directory, options ...Option) *Orchestrator {
	o := &Orchestrator{
		ledger:          ledger,
		sessions:        sessionManager,
		devices:         registry,
		directory:       directory,
		metrics:         metrics.New(),
		deliveryTimeout: DefaultDeliveryTimeout,
		nowFunc:         time.Now,
		logger:          log.Logger,
	}
	for _, opt := range options {
		opt(o)
	}
	if o.channel == nil {
		o.channel = notify.NewLogChannel(o.logger)
	}
	if o.bus == nil {
		o.bus = events.NewLogBus(o.logger)
	}
	return o
}

// RequestCode issues a code and hands it to the delivery channel in the
// background. The code is persisted before delivery starts, so a delivery
// failure never fails the request.
func (o *Orchestrator) RequestCode(ctx context.Context, req CodeRequest) (*CodeResponse, error) {
	if err := Validate(req); err != nil {
		return nil, failed(StageRequested, err)
	}

	issued, err := o.ledger.Generate(ctx, verification.GenerateRequest{
		Identifier: req.Identifier,
		Kind:       req.Kind,
		Purpose:    req.Purpose,
		DeviceID:   req.DeviceID,
		IP:         req.IP,
	})
	if err != nil {
		return nil, failed(StageOTPSent, err)
	}
	o.metrics.CodesIssued.WithLabelValues(string(req.Purpose), string(req.Kind)).Inc()

	if o.logCodes {
		o.logger.Debug().Str("to", issued.Identifier).Str("code", issued.Code).Msg("verification code")
	}
	o.deliver(ctx, issued.Identifier, req.Kind, issued.Code)

	o.publish(ctx, events.TopicOTPSent, events.OTPSent{
		IdentifierType: string(req.Kind),
		Purpose:        string(req.Purpose),
		ExpiresAt:      issued.ExpiresAt,
	}, &events.Metadata{DeviceID: req.DeviceID, IP: req.IP})

	return &CodeResponse{ExpiresIn: issued.ExpiresIn, ExpiresAt: issued.ExpiresAt}, nil
}

func (o *Orchestrator) deliver(ctx context.Context, identifier string, kind verification.Kind, code string) {
	o.inflight.Add(1)
	go func() {
		defer o.inflight.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.deliveryTimeout)
		defer cancel()

		err := o.channel.Deliver(ctx, identifier, kind, code)
		o.metrics.Deliveries.WithLabelValues(string(kind), metrics.Outcome(err)).Inc()
		if err != nil {
			o.logger.Error().Err(err).Str("to", notify.Mask(identifier)).Msg("verification code delivery failed")
		}
	}()
}

// Drain waits for background deliveries to finish.
func (o *Orchestrator) Drain() {
	o.inflight.Wait()
}

func (o *Orchestrator) VerifyCode(ctx context.Context, req VerifyRequest) (*VerifyResponse, error) {
	if err := Validate(req); err != nil {
		return nil, failed(StageOTPSent, err)
	}

	v, err := o.ledger.Verify(ctx, req.Identifier, req.Kind, req.Code, req.Purpose)
	o.metrics.Verifications.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, failed(StageOTPVerified, err)
	}

	o.publish(ctx, events.TopicOTPVerified, events.OTPVerified{
		OTPID:          v.OTPID,
		IdentifierType: string(req.Kind),
		Purpose:        string(req.Purpose),
	}, &events.Metadata{DeviceID: req.DeviceID})

	return &VerifyResponse{
		Verified:          true,
		VerificationToken: v.VerificationToken,
		OTPID:             v.OTPID,
		ExpiresAt:         v.ExpiresAt,
	}, nil
}

// Login exchanges a verification token for a session.
func (o *Orchestrator) Login(ctx context.Context, req Request) (*Response, error) {
	resp, err := o.login(ctx, req)
	o.metrics.Logins.WithLabelValues(metrics.Outcome(err)).Inc()
	return resp, err
}

func (o *Orchestrator) login(ctx context.Context, req Request) (*Response, error) {
	if err := Validate(req); err != nil {
		return nil, failed(StageOTPVerified, err)
	}
	purpose := req.Purpose
	if purpose == "" {
		purpose = verification.PurposeLogin
	}

	code, err := o.ledger.ValidateVerifiedToken(ctx, req.Identifier, req.Kind, purpose, req.VerificationToken)
	if err != nil {
		return nil, failed(StageOTPVerified, err)
	}

	user, err := o.directory.LookupOrCreate(ctx, users.LookupRequest{
		Identifier:     code.Identifier,
		IdentifierType: users.IdentifierType(req.Kind),
		DeviceID:       req.DeviceID,
		IP:             req.IP,
	})
	if err != nil {
		return nil, failed(StageDeviceChecked, unavailable(err))
	}

	if err := o.checkDevice(ctx, user.ID, req); err != nil {
		return nil, failed(StageDeviceChecked, err)
	}

	session, pair, err := o.sessions.Create(ctx, sessions.CreateRequest{
		UserID:    user.ID,
		DeviceID:  req.DeviceID,
		IP:        req.IP,
		UserAgent: req.UserAgent,
	})
	if err != nil {
		return nil, failed(StageSessionCreated, err)
	}

	if err := o.ledger.Consume(ctx, code.ID); err != nil {
		if revokeErr := o.sessions.Revoke(ctx, session.ID, user.ID, sessions.ReasonSecurity); revokeErr != nil {
			o.logger.Error().Err(revokeErr).Str("sessionId", session.ID).Msg("failed to revoke session after consume failure")
		}
		if errors.Is(err, errors.ErrNotFound) {
			err = errors.New(errors.ErrUnauthorized, "invalid or expired verification token")
		}
		return nil, failed(StageCompleted, err)
	}

	if err := o.directory.RecordLogin(ctx, user.ID, users.LoginMetadata{DeviceID: req.DeviceID, IP: req.IP}); err != nil {
		o.logger.Warn().Err(err).Str("userId", user.ID).Msg("failed to record login activity")
	}

	meta := &events.Metadata{UserID: user.ID, DeviceID: req.DeviceID, IP: req.IP}
	o.publish(ctx, events.TopicSessionCreated, events.SessionCreated{
		SessionID: session.ID,
		UserID:    user.ID,
		DeviceID:  req.DeviceID,
		ExpiresAt: session.ExpiresAt,
	}, meta)
	o.publish(ctx, events.TopicUserLogin, events.UserLogin{
		UserID:      user.ID,
		DeviceID:    req.DeviceID,
		IP:          req.IP,
		LoginMethod: string(req.Kind),
	}, meta)

	o.logger.Info().Str("userId", user.ID).Str("sessionId", session.ID).Msg("login completed")

	return &Response{
		User:                   userView(user),
		Tokens:                 tokensView(pair),
		SessionID:              session.ID,
		NeedsProfileCompletion: user.NeedsOnboarding,
	}, nil
}

// checkDevice assesses the attempt against the user's history, records the
// sighting and refuses blocked devices. The assessment is advisory.
func (o *Orchestrator) checkDevice(ctx context.Context, userID string, req Request) error {
	assessment, err := o.devices.SuspiciousActivity(ctx, userID, req.DeviceID, req.IP)
	if err != nil {
		return err
	}
	if assessment.IsSuspicious {
		for _, reason := range assessment.Reasons {
			o.metrics.Suspicious.WithLabelValues(reason).Inc()
		}
		o.logger.Warn().Str("userId", userID).Str("deviceId", req.DeviceID).
			Strs("reasons", assessment.Reasons).Msg("suspicious login")
	}

	device, created, err := o.devices.RegisterOrUpdate(ctx, devices.RegisterRequest{
		UserID:    userID,
		DeviceID:  req.DeviceID,
		UserAgent: req.UserAgent,
		IP:        req.IP,
		Name:      req.DeviceName,
	})
	if err != nil {
		return err
	}
	if created {
		o.publish(ctx, events.TopicDeviceRegistered, events.DeviceRegistered{
			UserID:     userID,
			DeviceID:   device.DeviceID,
			DeviceType: string(device.DeviceType),
		}, &events.Metadata{UserID: userID, DeviceID: device.DeviceID, IP: req.IP})
	}
	if device.IsBlocked {
		return errors.New(errors.ErrUnauthorized, "this device has been blocked")
	}
	return nil
}

func (o *Orchestrator) Refresh(ctx context.Context, req RefreshRequest) (*Tokens, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	pair, session, err := o.sessions.Refresh(ctx, req.RefreshToken, req.DeviceID)
	o.metrics.Refreshes.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	o.publish(ctx, events.TopicSessionRefreshed, events.SessionRefreshed{
		SessionID: session.ID,
		UserID:    session.UserID,
		DeviceID:  req.DeviceID,
	}, &events.Metadata{UserID: session.UserID, DeviceID: req.DeviceID})

	tokens := tokensView(pair)
	return &tokens, nil
}

// Authenticate validates an access token for a protected call.
func (o *Orchestrator) Authenticate(ctx context.Context, accessToken string) (*token.Claims, error) {
	return o.sessions.Validate(ctx, accessToken)
}

func (o *Orchestrator) Logout(ctx context.Context, req LogoutRequest) error {
	if err := Validate(req); err != nil {
		return err
	}
	if err := o.sessions.Revoke(ctx, req.SessionID, req.UserID, sessions.ReasonLogout); err != nil {
		return err
	}
	o.metrics.Revocations.WithLabelValues(string(sessions.ReasonLogout)).Inc()

	meta := &events.Metadata{UserID: req.UserID, DeviceID: req.DeviceID}
	o.publish(ctx, events.TopicUserLogout, events.UserLogout{
		UserID:    req.UserID,
		SessionID: req.SessionID,
		DeviceID:  req.DeviceID,
	}, meta)
	o.publish(ctx, events.TopicSessionRevoked, events.SessionRevoked{
		SessionID: req.SessionID,
		UserID:    req.UserID,
		Reason:    string(sessions.ReasonLogout),
	}, meta)
	return nil
}

func (o *Orchestrator) ListSessions(ctx context.Context, userID string) ([]sessions.Summary, error) {
	list, err := o.sessions.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return summaries(list), nil
}

// RevokeAllSessions signs the user out everywhere.
func (o *Orchestrator) RevokeAllSessions(ctx context.Context, userID string) (int64, error) {
	n, err := o.sessions.RevokeAll(ctx, userID, sessions.ReasonSecurity)
	if err != nil {
		return 0, err
	}
	o.metrics.Revocations.WithLabelValues(string(sessions.ReasonSecurity)).Add(float64(n))
	o.publish(ctx, events.TopicSessionRevoked, events.SessionRevoked{
		UserID: userID,
		Reason: string(sessions.ReasonSecurity),
		Count:  n,
	}, &events.Metadata{UserID: userID})
	return n, nil
}

func (o *Orchestrator) ListDevices(ctx context.Context, userID string) ([]devices.View, error) {
	list, err := o.devices.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]devices.View, 0, len(list))
	for _, d := range list {
		views = append(views, d.View())
	}
	return views, nil
}

// RemoveDevice forgets a device and ends every session it holds.
func (o *Orchestrator) RemoveDevice(ctx context.Context, userID, deviceID string) error {
	if err := o.devices.Remove(ctx, userID, deviceID); err != nil {
		return err
	}
	n, err := o.sessions.RevokeByDevice(ctx, userID, deviceID)
	if err != nil {
		return err
	}
	o.metrics.Revocations.WithLabelValues(string(sessions.ReasonSecurity)).Add(float64(n))
	return nil
}

// BlockDevice is an administrative action. The device can no longer log in
// and every session it holds is revoked.
func (o *Orchestrator) BlockDevice(ctx context.Context, deviceID, reason string) error {
	device, err := o.devices.Get(ctx, deviceID)
	if err != nil {
		return err
	}
	if err := o.devices.Block(ctx, deviceID, reason); err != nil {
		return err
	}
	n, err := o.sessions.RevokeByDevice(ctx, device.UserID, deviceID)
	if err != nil {
		return err
	}
	o.metrics.Revocations.WithLabelValues(string(sessions.ReasonSecurity)).Add(float64(n))
	if n > 0 {
		o.publish(ctx, events.TopicSessionRevoked, events.SessionRevoked{
			UserID: device.UserID,
			Reason: string(sessions.ReasonSecurity),
			Count:  n,
		}, &events.Metadata{UserID: device.UserID, DeviceID: deviceID})
	}
	return nil
}

func (o *Orchestrator) TrustDevice(ctx context.Context, deviceID string) error {
	return o.devices.Trust(ctx, deviceID)
}

// publish is best effort. A failed publish is logged and never fails the caller.
func (o *Orchestrator) publish(ctx context.Context, topic string, payload any, meta *events.Metadata) {
	if meta != nil {
		meta.Source = eventSource
	}
	event, err := events.New(topic, payload, meta, o.nowFunc())
	if err == nil {
		err = o.bus.Publish(ctx, event)
	}
	if err != nil {
		o.logger.Warn().Err(err).Str("topic", topic).Msg("failed to publish event")
	}
}

// unavailable keeps typed errors and hides anything else behind Unavailable.
func unavailable(err error) error {
	if errors.KindOf(err) != nil {
		return err
	}
	return errors.Wrap(errors.ErrUnavailable, "service temporarily unavailable", err)
}
