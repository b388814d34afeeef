package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/go-otp-auth/internal/errors"
	"github.com/jrsteele09/go-otp-auth/login"
	"github.com/jrsteele09/go-otp-auth/verification"
)

// identity accepts either an explicit identifier or the phone/email fields
// mobile clients send.
type identity struct {
	Identifier     string            `json:"identifier"`
	IdentifierType verification.Kind `json:"identifierType"`
	Phone          string            `json:"phone"`
	Email          string            `json:"email"`
}

func (i identity) resolve() (string, verification.Kind) {
	kind := i.IdentifierType
	if kind == "" {
		switch {
		case i.Phone != "":
			kind = verification.KindPhone
		case i.Email != "":
			kind = verification.KindEmail
		}
	}
	if i.Identifier != "" {
		return i.Identifier, kind
	}
	switch kind {
	case verification.KindPhone:
		return i.Phone, kind
	case verification.KindEmail:
		return i.Email, kind
	}
	return "", kind
}

type sendCodeBody struct {
	identity
	Purpose  verification.Purpose `json:"purpose"`
	DeviceID string               `json:"deviceId"`
}

type verifyCodeBody struct {
	identity
	Code     string               `json:"code"`
	Purpose  verification.Purpose `json:"purpose"`
	DeviceID string               `json:"deviceId"`
}

type loginBody struct {
	identity
	DeviceID          string               `json:"deviceId"`
	VerificationToken string               `json:"verificationToken"`
	Purpose           verification.Purpose `json:"purpose"`
	DeviceName        string               `json:"deviceName"`
}

type logoutBody struct {
	SessionID string `json:"sessionId"`
}

type blockBody struct {
	Reason string `json:"reason"`
}

func (s *Server) SendCodeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body sendCodeBody
		if err := decodeJSON(w, r, &body); err != nil {
			s.writeError(w, r, err)
			return
		}
		identifier, kind := body.resolve()

		resp, err := s.auth.RequestCode(r.Context(), login.CodeRequest{
			Identifier: identifier,
			Kind:       kind,
			Purpose:    body.Purpose,
			DeviceID:   body.DeviceID,
			IP:         clientIP(r),
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusOK, "verification code sent", resp)
	}
}

func (s *Server) VerifyCodeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body verifyCodeBody
		if err := decodeJSON(w, r, &body); err != nil {
			s.writeError(w, r, err)
			return
		}
		identifier, kind := body.resolve()

		resp, err := s.auth.VerifyCode(r.Context(), login.VerifyRequest{
			Identifier: identifier,
			Kind:       kind,
			Code:       strings.TrimSpace(body.Code),
			Purpose:    body.Purpose,
			DeviceID:   body.DeviceID,
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusOK, "verification successful", resp)
	}
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body loginBody
		if err := decodeJSON(w, r, &body); err != nil {
			s.writeError(w, r, err)
			return
		}
		identifier, kind := body.resolve()

		resp, err := s.auth.Login(r.Context(), login.Request{
			Identifier:        identifier,
			Kind:              kind,
			DeviceID:          body.DeviceID,
			VerificationToken: body.VerificationToken,
			Purpose:           body.Purpose,
			DeviceName:        body.DeviceName,
			IP:                clientIP(r),
			UserAgent:         r.UserAgent(),
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusOK, "login successful", resp)
	}
}

func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body login.RefreshRequest
		if err := decodeJSON(w, r, &body); err != nil {
			s.writeError(w, r, err)
			return
		}
		tokens, err := s.auth.Refresh(r.Context(), body)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusOK, "token refreshed", tokens)
	}
}

// LogoutHandler ends the session named in the body, or the caller's own
// session when the body is empty.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			s.writeError(w, r, errors.New(errors.ErrUnauthorized, "unauthorized"))
			return
		}

		var body logoutBody
		if r.ContentLength > 0 {
			if err := decodeJSON(w, r, &body); err != nil {
				s.writeError(w, r, err)
				return
			}
		}
		if body.SessionID == "" {
			body.SessionID = claims.SessionID
		}

		err := s.auth.Logout(r.Context(), login.LogoutRequest{
			UserID:    claims.Subject,
			SessionID: body.SessionID,
			DeviceID:  claims.DeviceID,
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusOK, "logged out", nil)
	}
}

type sessionsView struct {
	Current  string `json:"currentSessionId"`
	Sessions any    `json:"sessions"`
}

func (s *Server) ListSessionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := ClaimsFromContext(r.Context())
		list, err := s.auth.ListSessions(r.Context(), claims.Subject)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusOK, "", sessionsView{Current: claims.SessionID, Sessions: list})
	}
}

func (s *Server) RevokeAllHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := ClaimsFromContext(r.Context())
		n, err := s.auth.RevokeAllSessions(r.Context(), claims.Subject)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusOK, "all sessions revoked", map[string]int64{"revoked": n})
	}
}

func (s *Server) ListDevicesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := ClaimsFromContext(r.Context())
		list, err := s.auth.ListDevices(r.Context(), claims.Subject)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusOK, "", list)
	}
}

func (s *Server) RemoveDeviceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := ClaimsFromContext(r.Context())
		if err := s.auth.RemoveDevice(r.Context(), claims.Subject, r.PathValue("deviceId")); err != nil {
			s.writeError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusOK, "device removed", nil)
	}
}

func (s *Server) BlockDeviceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body blockBody
		if r.ContentLength > 0 {
			if err := decodeJSON(w, r, &body); err != nil {
				s.writeError(w, r, err)
				return
			}
		}
		if err := s.auth.BlockDevice(r.Context(), r.PathValue("deviceId"), body.Reason); err != nil {
			s.writeError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusOK, "device blocked", nil)
	}
}

func (s *Server) TrustDeviceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.auth.TrustDevice(r.Context(), r.PathValue("deviceId")); err != nil {
			s.writeError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusOK, "device trusted", nil)
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeSuccess(w, http.StatusOK, "", map[string]string{"status": "ok"})
	}
}
