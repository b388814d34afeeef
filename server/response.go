package server

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/jrsteele09/go-otp-auth/internal/errors"
)

const (
	internalErrorMessage = "internal server error"
	maxBodyBytes         = 1 << 20
)

// envelope is the body of every JSON response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

var statusByKind = map[error]int{
	errors.ErrValidation:       http.StatusBadRequest,
	errors.ErrNotFound:         http.StatusNotFound,
	errors.ErrAlreadyUsed:      http.StatusConflict,
	errors.ErrRateLimited:      http.StatusTooManyRequests,
	errors.ErrExpired:          http.StatusGone,
	errors.ErrAttemptsExceeded: http.StatusTooManyRequests,
	errors.ErrMismatch:         http.StatusBadRequest,
	errors.ErrUnauthorized:     http.StatusUnauthorized,
	errors.ErrUnavailable:      http.StatusServiceUnavailable,
}

// StatusFor maps an error kind onto an HTTP status code.
func StatusFor(err error) int {
	if status, ok := statusByKind[errors.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

// writeError responds with the caller-safe message of err. Errors outside
// the taxonomy are logged and replaced with a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	message := err.Error()
	if errors.KindOf(err) == nil {
		message = internalErrorMessage
	}

	var rateErr *errors.RateLimitError
	if errors.As(err, &rateErr) {
		seconds := int(math.Ceil(rateErr.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(max(seconds, 1)))
	}

	event := s.logger.Debug()
	if status >= http.StatusInternalServerError {
		event = s.logger.Error()
		var typed *errors.Error
		if errors.As(err, &typed) && typed.Cause() != nil {
			event = event.AnErr("cause", typed.Cause())
		}
	}
	event.Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")

	writeJSON(w, status, envelope{Message: message})
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Wrap(errors.ErrValidation, "invalid request body", err)
	}
	return nil
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the peer address.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
