package devices

import (
	"time"

	"github.com/jrsteele09/go-otp-auth/internal/persistence"
	"github.com/jrsteele09/go-otp-auth/internal/utils"
)

type DeviceType string

const (
	TypeMobile  DeviceType = "mobile"
	TypeTablet  DeviceType = "tablet"
	TypeDesktop DeviceType = "desktop"
	TypeUnknown DeviceType = "unknown"
)

// Device is a client a user has signed in from, keyed by the client supplied DeviceID.
type Device struct {
	persistence.Record
	DeviceID      string
	UserID        string
	Name          string
	Fingerprint   string
	DeviceType    DeviceType
	OS            string
	Browser       string
	UserAgent     string
	IP            string
	IsTrusted     bool
	IsBlocked     bool
	BlockedReason string
	FirstSeenAt   time.Time
	LastSeenAt    time.Time
	LoginCount    int
}

func (d *Device) Clone() *Device {
	cp := *d
	cp.DeletedAt = utils.Copy(d.DeletedAt)
	return &cp
}

// View is the client-facing shape of a device.
type View struct {
	DeviceID    string     `json:"deviceId"`
	Name        string     `json:"deviceName,omitempty"`
	DeviceType  DeviceType `json:"deviceType"`
	OS          string     `json:"os,omitempty"`
	Browser     string     `json:"browser,omitempty"`
	IP          string     `json:"ipAddress,omitempty"`
	IsTrusted   bool       `json:"isTrusted"`
	IsBlocked   bool       `json:"isBlocked"`
	FirstSeenAt time.Time  `json:"firstSeenAt"`
	LastSeenAt  time.Time  `json:"lastSeenAt"`
	LoginCount  int        `json:"loginCount"`
}

func (d *Device) View() View {
	return View{
		DeviceID:    d.DeviceID,
		Name:        d.Name,
		DeviceType:  d.DeviceType,
		OS:          d.OS,
		Browser:     d.Browser,
		IP:          d.IP,
		IsTrusted:   d.IsTrusted,
		IsBlocked:   d.IsBlocked,
		FirstSeenAt: d.FirstSeenAt,
		LastSeenAt:  d.LastSeenAt,
		LoginCount:  d.LoginCount,
	}
}

const (
	ReasonNewDevice   = "NEW_DEVICE"
	ReasonIPChanged   = "IP_CHANGED"
	ReasonMultipleIPs = "MULTIPLE_IPS"
)

// Assessment is advisory. Nothing is blocked because of it.
type Assessment struct {
	IsSuspicious bool     `json:"isSuspicious"`
	Reasons      []string `json:"reasons"`
}
