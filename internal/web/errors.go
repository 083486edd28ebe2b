package web

// errors.go turns core and codec errors into JSON error responses.
//
// The full error is logged with the request id; the client gets the
// core.MapError message, action and code. Request validation failures use
// REQ001 and never reach the core.

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/JonMunkholm/gridedit/internal/codec"
	"github.com/JonMunkholm/gridedit/internal/core"
	"github.com/JonMunkholm/gridedit/internal/logging"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for err. The order matters: an IOError
// matches both its kind and its cause, and the cause is more specific.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNoDocument),
		errors.Is(err, core.ErrNothingToUndo),
		errors.Is(err, core.ErrNothingToRedo),
		errors.Is(err, core.ErrLastSheet):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyIO):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrNoSnapshotStore):
		return http.StatusNotImplemented
	case errors.Is(err, codec.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, codec.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, fs.ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, core.ErrLoadFailed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes its user-facing form.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)

	log := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if status >= 500 {
		log.Error("request error", args...)
	} else {
		log.Warn("request error", args...)
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	writeJSON(w, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// badRequest rejects a malformed request before it reaches the workbook.
func badRequest(w http.ResponseWriter, r *http.Request, detail string) {
	logging.FromContext(r.Context()).Warn("bad request",
		"path", r.URL.Path,
		"method", r.Method,
		"detail", detail,
	)
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   detail,
		Message: "Invalid request",
		Action:  "Check the request parameters and try again",
		Code:    "REQ001",
	})
}
