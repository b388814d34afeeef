package devices

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint is the hex BLAKE2b-256 digest of "userAgent:ip".
func Fingerprint(userAgent, ip string) string {
	sum := blake2b.Sum256([]byte(userAgent + ":" + ip))
	return hex.EncodeToString(sum[:])
}

// Client is a best-effort reading of a User-Agent header. It is only used for
// display and must not drive security decisions.
type Client struct {
	DeviceType DeviceType
	OS         string
	Browser    string
}

func ParseUserAgent(userAgent string) Client {
	if strings.TrimSpace(userAgent) == "" {
		return Client{DeviceType: TypeUnknown}
	}
	ua := strings.ToLower(userAgent)
	return Client{
		DeviceType: deviceType(ua),
		OS:         operatingSystem(ua),
		Browser:    browser(ua),
	}
}

func deviceType(ua string) DeviceType {
	switch {
	case containsAny(ua, "ipad", "tablet"):
		return TypeTablet
	case containsAny(ua, "mobile", "android", "iphone"):
		return TypeMobile
	default:
		return TypeDesktop
	}
}

// Order matters: iOS and Android agents also mention "mac os x" and "linux".
func operatingSystem(ua string) string {
	switch {
	case strings.Contains(ua, "android"):
		return "Android"
	case containsAny(ua, "iphone", "ipad", "ios"):
		return "iOS"
	case strings.Contains(ua, "windows"):
		return "Windows"
	case strings.Contains(ua, "mac"):
		return "macOS"
	case strings.Contains(ua, "linux"):
		return "Linux"
	default:
		return ""
	}
}

// Edge carries "chrome" and Chrome carries "safari", so check the narrower tokens first.
func browser(ua string) string {
	switch {
	case containsAny(ua, "edg/", "edge"):
		return "Edge"
	case strings.Contains(ua, "firefox"):
		return "Firefox"
	case strings.Contains(ua, "chrome"):
		return "Chrome"
	case strings.Contains(ua, "safari"):
		return "Safari"
	default:
		return ""
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
