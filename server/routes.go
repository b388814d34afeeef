package server

import (
	"net/http"
)

func (s *Server) initRoutes() {
	// Public login flow
	s.RegisterRouteHandler("POST "+RouteSendCode, ChainMiddleware(s.SendCodeHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteVerifyCode, ChainMiddleware(s.VerifyCodeHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))

	// Bearer-protected session and device management
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteHandler("GET "+RouteSessions, ChainMiddleware(s.ListSessionsHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteHandler("POST "+RouteRevokeAll, ChainMiddleware(s.RevokeAllHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteHandler("GET "+RouteDevices, ChainMiddleware(s.ListDevicesHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteHandler("DELETE "+RouteDevice, ChainMiddleware(s.RemoveDeviceHandler(), s.APIMiddleware(s.RequireAuth)...))

	// Service-to-service
	s.RegisterRouteHandler("POST "+RouteInternalBlock, ChainMiddleware(s.BlockDeviceHandler(), s.APIMiddleware(s.RequireInternalKey)...))
	s.RegisterRouteHandler("POST "+RouteInternalTrust, ChainMiddleware(s.TrustDeviceHandler(), s.APIMiddleware(s.RequireInternalKey)...))

	// CORS preflight for every route
	s.RegisterRouteHandler("OPTIONS /", ChainMiddleware(s.notFoundHandler(), s.APIMiddleware()...))

	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	if s.metricsHandler != nil {
		s.RegisterRouteHandler("GET "+RouteMetrics, s.metricsHandler)
	}
}

func (s *Server) notFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{Message: "not found"})
	}
}
