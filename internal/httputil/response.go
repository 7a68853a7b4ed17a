package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"syncactivity/internal/model"
)

// Error codes used by responses that are not backed by a domain error.
const (
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// maxJSONBody bounds request bodies decoded by DecodeJSON.
const maxJSONBody = 1 << 20

// ErrorResponse represents the standard error response format
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error code and message
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MessageResponse is the body of actions that return no resource.
type MessageResponse struct {
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent
			slog.Warn("Failed to encode response", "error", err)
		}
	}
}

// WriteMessage writes {"message": message} with the given status.
func WriteMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, MessageResponse{Message: message})
}

// WriteError writes an error response:
// {"error": {"code": "ERROR_CODE", "message": "Human readable message"}}
func WriteError(w http.ResponseWriter, status int, code string, message string) {
	WriteJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// WriteBadRequest writes a 400 Bad Request error
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// WriteUnauthorized writes a 401 Unauthorized error
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// WriteNotFound writes a 404 Not Found error
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// WriteInternalError writes a 500 Internal Server Error
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// StatusForKind maps a domain error kind to its HTTP status.
// Conflicts are reported as 400 to match the public API.
func StatusForKind(kind model.ErrorKind) int {
	switch kind {
	case model.KindValidation, model.KindConflict:
		return http.StatusBadRequest
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindForbidden:
		return http.StatusForbidden
	case model.KindUnauthorized:
		return http.StatusUnauthorized
	case model.KindUpstreamFailure:
		return http.StatusBadGateway
	case model.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteDomainError writes err with the status of its kind. Errors that are not
// domain errors are logged and reported as a generic 500.
func WriteDomainError(w http.ResponseWriter, r *http.Request, err error) {
	de, ok := model.AsDomainError(err)
	if !ok {
		slog.Error("Unhandled error",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		WriteInternalError(w, "Internal server error")
		return
	}

	status := StatusForKind(de.Kind)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "path", r.URL.Path, "code", de.Code, "error", err)
	}
	WriteError(w, status, de.Code, de.Message)
}

// DecodeJSON decodes a bounded JSON body into dst. Decode failures come back
// as validation errors.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return model.NewValidationError("Request body is required")
		}
		return model.NewValidationError("Invalid request body")
	}
	return nil
}
