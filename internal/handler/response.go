package handler

// RESPONSE HELPERS:
// Every endpoint answers through writeJSON or writeError, so all responses
// share one content type and every error has one shape:
//
//	{"error": "Bad Request: empty request not allowed"}
//
// The part before the colon names the category, the rest is the detail.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/recordkeeper/internal/apperror"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON sends data as JSON with the given status. Headers must be set
// before WriteHeader, and WriteHeader before the body.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// category maps an error to its status code and display name.
func category(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, "Payload Too Large"
	case errors.Is(err, apperror.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType, "Unsupported Media Type"
	case errors.Is(err, apperror.ErrBadRequest):
		return http.StatusBadRequest, "Bad Request"
	case errors.Is(err, apperror.ErrUnknown):
		return http.StatusInternalServerError, "Unknown Error"
	}
	return http.StatusInternalServerError, "Internal Server Error"
}

// writeError renders err in the standard error shape. Errors that carry no
// category never reach here from the dispatcher; if one does, its text is
// withheld because nothing vetted it for clients.
func writeError(w http.ResponseWriter, err error) {
	status, name := category(err)

	detail := "an internal error occurred"
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		detail = appErr.Message
	}

	writeJSON(w, status, ErrorResponse{Error: name + ": " + detail})
}
