package server

// Route path constants
const (
	// Verification codes
	RouteSendCode   = "/auth/otp/send"
	RouteVerifyCode = "/auth/otp/verify"

	// Sessions
	RouteLogin     = "/auth/login"
	RouteRefresh   = "/auth/refresh"
	RouteLogout    = "/auth/logout"
	RouteSessions  = "/auth/sessions"
	RouteRevokeAll = "/auth/sessions/revoke-all"

	// Devices
	RouteDevices = "/auth/devices"
	RouteDevice  = "/auth/devices/{deviceId}"

	// Internal administration, guarded by the internal API key
	RouteInternalBlock = "/internal/devices/{deviceId}/block"
	RouteInternalTrust = "/internal/devices/{deviceId}/trust"

	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)
