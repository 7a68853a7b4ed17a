package model

import "errors"

// ErrorKind is the category a domain error falls into. The HTTP layer maps each
// kind to a status code.
type ErrorKind string

const (
	KindValidation      ErrorKind = "VALIDATION"
	KindNotFound        ErrorKind = "NOT_FOUND"
	KindConflict        ErrorKind = "CONFLICT"
	KindForbidden       ErrorKind = "FORBIDDEN"
	KindUnauthorized    ErrorKind = "UNAUTHORIZED"
	KindUpstreamFailure ErrorKind = "UPSTREAM_FAILURE"
	KindUnavailable     ErrorKind = "UNAVAILABLE"
)

// DomainError is an error the caller is expected to see. Code is a stable
// machine-readable identifier, Message is safe to show to users.
type DomainError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func newError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: message}
}

// NewValidationError builds a one-off validation error for a malformed payload.
func NewValidationError(message string) *DomainError {
	return newError(KindValidation, "BAD_REQUEST", message)
}

// ErrFeatureDisabled is returned by optional features whose backing service is
// not configured.
var ErrFeatureDisabled = newError(KindUnavailable, "FEATURE_DISABLED", "This feature is not enabled")

// AsDomainError extracts the DomainError from err's chain.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// KindOf returns the kind of err, or "" if err is not a domain error.
func KindOf(err error) ErrorKind {
	if de, ok := AsDomainError(err); ok {
		return de.Kind
	}
	return ""
}
