package devices_test

import (
	"testing"

	"github.com/jrsteele09/go-otp-auth/devices"
	"github.com/stretchr/testify/require"
)

func TestParseUserAgent(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want devices.Client
	}{
		{
			name: "empty",
			ua:   "",
			want: devices.Client{DeviceType: devices.TypeUnknown},
		},
		{
			name: "iphone safari",
			ua:   iPhoneUA,
			want: devices.Client{DeviceType: devices.TypeMobile, OS: "iOS", Browser: "Safari"},
		},
		{
			name: "ipad",
			ua:   "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Mobile/15E148 Safari/604.1",
			want: devices.Client{DeviceType: devices.TypeTablet, OS: "iOS", Browser: "Safari"},
		},
		{
			name: "android chrome",
			ua:   "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Mobile Safari/537.36",
			want: devices.Client{DeviceType: devices.TypeMobile, OS: "Android", Browser: "Chrome"},
		},
		{
			name: "windows edge",
			ua:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36 Edg/124.0",
			want: devices.Client{DeviceType: devices.TypeDesktop, OS: "Windows", Browser: "Edge"},
		},
		{
			name: "mac firefox",
			ua:   "Mozilla/5.0 (Macintosh; Intel Mac OS X 14.4; rv:125.0) Gecko/20100101 Firefox/125.0",
			want: devices.Client{DeviceType: devices.TypeDesktop, OS: "macOS", Browser: "Firefox"},
		},
		{
			name: "linux chrome",
			ua:   "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
			want: devices.Client{DeviceType: devices.TypeDesktop, OS: "Linux", Browser: "Chrome"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, devices.ParseUserAgent(tt.ua))
		})
	}
}

func TestFingerprint(t *testing.T) {
	a := devices.Fingerprint(iPhoneUA, "203.0.113.10")
	require.Len(t, a, 64)
	require.Equal(t, a, devices.Fingerprint(iPhoneUA, "203.0.113.10"))
	require.NotEqual(t, a, devices.Fingerprint(iPhoneUA, "203.0.113.11"))
}
