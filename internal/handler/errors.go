package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/pkordes/tabinico/internal/domain"
	"github.com/pkordes/tabinico/internal/upload"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable machine code and a human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps sentinel errors to status codes. Anything unrecognised is
// logged and reported as a 500 without leaking details.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not_found", unwrapMessage(err, domain.ErrNotFound)))
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, validationBody(err))
	case isTooLarge(err):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("payload_too_large", "file is too large"))
	case errors.Is(err, domain.ErrUpload):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody("upload_failed", unwrapMessage(err, domain.ErrUpload)))
	case errors.Is(err, domain.ErrNoActiveTrip):
		writeJSON(w, http.StatusConflict, errorBody("no_active_trip", "create or join a trip first"))
	case errors.Is(err, domain.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, errorBody("unauthenticated", "sign in first"))
	default:
		s.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal_error", "internal server error"))
	}
}

// isTooLarge reports an oversized file or request body.
func isTooLarge(err error) bool {
	var tooBig *http.MaxBytesError
	return errors.Is(err, upload.ErrTooLarge) || errors.As(err, &tooBig)
}

func errorBody(code, message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}
}

// validationBody returns an ErrorResponse for a domain validation failure.
// The message is extracted from the wrapped domain.ErrValidation error.
func validationBody(err error) ErrorResponse {
	return errorBody("validation_error", unwrapMessage(err, domain.ErrValidation))
}

// unwrapMessage extracts the human-readable part after a wrapped sentinel.
// e.g. "store.Store.AddExpense: validation error: amount must be positive" → "amount must be positive"
func unwrapMessage(err, sentinel error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	prefix := sentinel.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return msg
}

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
