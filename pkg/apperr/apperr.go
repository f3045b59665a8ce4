// Package apperr defines the application error taxonomy shared by all
// handlers and middleware. Every failure surfaced to a client is one of
// these codes; pkg/response translates codes to HTTP statuses.
package apperr

import (
	"errors"
	"fmt"
)

// Code classifies an application error.
type Code string

const (
	// CodeUnauthenticated: no recognized credential, or a credential that
	// failed verification (including stale/forged JWTs).
	CodeUnauthenticated Code = "unauthenticated"
	// CodeAccountDisabled: credential verified but the user or organization
	// is deactivated.
	CodeAccountDisabled Code = "account_disabled"
	// CodeOwnerRequired: an organization-level context called an endpoint
	// that needs a concrete user subject.
	CodeOwnerRequired Code = "owner_required"
	// CodeForbidden: authenticated but structurally not allowed (e.g. role).
	CodeForbidden Code = "forbidden"
	// CodeNotFound: resource missing, including any tenancy-scope mismatch.
	CodeNotFound Code = "not_found"
	// CodeInvalidQuery: bad pagination, sort, filter, or request input.
	CodeInvalidQuery Code = "invalid_query"
	// CodeRateLimited: request counter exceeded the window maximum.
	CodeRateLimited Code = "rate_limited"
	// CodeInternal: unexpected persistence or internal fault.
	CodeInternal Code = "internal"
)

// Error is a typed application error carrying a taxonomy code, a
// client-safe message, and an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a typed error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a typed error with an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Unauthenticated builds a 401-class error.
func Unauthenticated(message string) *Error { return New(CodeUnauthenticated, message) }

// AccountDisabled builds a 401-class error for deactivated accounts.
func AccountDisabled(message string) *Error { return New(CodeAccountDisabled, message) }

// OwnerRequired builds a 403-class error for org-level contexts on
// subject-only endpoints.
func OwnerRequired(message string) *Error { return New(CodeOwnerRequired, message) }

// Forbidden builds a 403-class error.
func Forbidden(message string) *Error { return New(CodeForbidden, message) }

// NotFound builds a 404-class error. Used for genuine misses and for
// tenancy mismatches alike so existence is never confirmed cross-tenant.
func NotFound(message string) *Error { return New(CodeNotFound, message) }

// InvalidQuery builds a 400-class error.
func InvalidQuery(message string) *Error { return New(CodeInvalidQuery, message) }

// RateLimited builds a 429-class error.
func RateLimited(message string) *Error { return New(CodeRateLimited, message) }

// Internal builds a 500-class error wrapping the fault.
func Internal(message string, cause error) *Error {
	return Wrap(CodeInternal, message, cause)
}

// CodeOf extracts the taxonomy code from err, or CodeInternal when err is
// not a typed application error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// MessageOf extracts the client-safe message from err. Untyped errors get
// a generic message so internal details never leak.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
