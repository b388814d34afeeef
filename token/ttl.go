package token

import (
	"strconv"
	"time"
)

const defaultTTLSeconds int64 = 24 * 60 * 60

// ParseTTL converts strings such as "900s", "15m", "24h" or "7d" to seconds.
// Anything it does not recognise is treated as one day.
func ParseTTL(ttl string) int64 {
	if len(ttl) < 2 {
		return defaultTTLSeconds
	}
	value, err := strconv.ParseInt(ttl[:len(ttl)-1], 10, 64)
	if err != nil || value <= 0 {
		return defaultTTLSeconds
	}
	switch ttl[len(ttl)-1] {
	case 's':
		return value
	case 'm':
		return value * 60
	case 'h':
		return value * 60 * 60
	case 'd':
		return value * 24 * 60 * 60
	default:
		return defaultTTLSeconds
	}
}

// TTLDuration is ParseTTL as a time.Duration.
func TTLDuration(ttl string) time.Duration {
	return time.Duration(ParseTTL(ttl)) * time.Second
}
