package events

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	TopicOTPSent          = "auth.otp.sent"
	TopicOTPVerified      = "auth.otp.verified"
	TopicSessionCreated   = "auth.session.created"
	TopicSessionRefreshed = "auth.session.refreshed"
	TopicSessionRevoked   = "auth.session.revoked"
	TopicUserLogin        = "auth.user.login"
	TopicUserLogout       = "auth.user.logout"
	TopicDeviceRegistered = "auth.device.registered"

	envelopeVersion = "1.0"
)

// Event is the envelope every message on the bus is wrapped in.
type Event struct {
	EventID   string    `json:"eventId"`
	EventType string    `json:"eventType"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Payload   any       `json:"payload,omitempty"`
	Metadata  *Metadata `json:"metadata,omitempty"`
}

// Metadata is for tracing and debugging.
type Metadata struct {
	CorrelationID string `json:"correlationId,omitempty"`
	UserID        string `json:"userId,omitempty"`
	DeviceID      string `json:"deviceId,omitempty"`
	IP            string `json:"ipAddress,omitempty"`
	Source        string `json:"source,omitempty"`
}

// New wraps payload in an envelope with a ULID event id.
func New(topic string, payload any, meta *Metadata, now time.Time) (Event, error) {
	if now.IsZero() {
		now = time.Now()
	}
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return Event{}, err
	}
	return Event{
		EventID:   id.String(),
		EventType: topic,
		Timestamp: now.UTC(),
		Version:   envelopeVersion,
		Payload:   payload,
		Metadata:  meta,
	}, nil
}

type OTPSent struct {
	IdentifierType string    `json:"identifierType"`
	Purpose        string    `json:"purpose"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

type OTPVerified struct {
	OTPID          string `json:"otpId"`
	IdentifierType string `json:"identifierType"`
	Purpose        string `json:"purpose"`
}

type SessionCreated struct {
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId"`
	DeviceID  string    `json:"deviceId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type SessionRefreshed struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	DeviceID  string `json:"deviceId"`
}

type SessionRevoked struct {
	SessionID string `json:"sessionId,omitempty"`
	UserID    string `json:"userId"`
	Reason    string `json:"reason"`
	Count     int64  `json:"count,omitempty"`
}

type UserLogin struct {
	UserID      string   `json:"userId"`
	DeviceID    string   `json:"deviceId"`
	IP          string   `json:"ipAddress"`
	LoginMethod string   `json:"loginMethod"`
	Suspicious  []string `json:"suspiciousReasons,omitempty"`
}

type UserLogout struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
	DeviceID  string `json:"deviceId,omitempty"`
}

type DeviceRegistered struct {
	UserID     string `json:"userId"`
	DeviceID   string `json:"deviceId"`
	DeviceType string `json:"deviceType"`
}
