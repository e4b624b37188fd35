package web

// errors.go provides unified error response handling for the web layer.
//
// Service errors are mapped via core.MapError to a user-facing message and
// code, logged with the request ID, and written as JSON.

import (
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/importexport/internal/core"
	"github.com/JonMunkholm/importexport/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError maps err to a status code and user-friendly message. The
// technical error is only logged.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	userMsg := core.MapError(err)
	status := statusFor(err, userMsg.Code)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	writeJSONStatus(w, status, ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}

// writeError writes a JSON error for failures detected in the handler itself,
// such as malformed input.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	logging.FromContext(r.Context()).Warn("request rejected",
		"path", r.URL.Path,
		"status", status,
		"reason", message,
	)
	writeJSONStatus(w, status, ErrorResponse{
		Error:   message,
		Message: message,
		Code:    http.StatusText(status),
	})
}

// statusFor picks the HTTP status for a mapped service error.
func statusFor(err error, code string) int {
	switch {
	case errors.Is(err, core.ErrJobNotFound):
		return http.StatusNotFound
	case strings.HasPrefix(code, "QUE"):
		return http.StatusServiceUnavailable
	case strings.HasPrefix(code, "JOB"), strings.HasPrefix(code, "FMT"), strings.HasPrefix(code, "FILE"):
		return http.StatusBadRequest
	case code == "REQ002":
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
