// Package domainerrors provides coded domain errors shared across cardgen
// services. Codes form a closed set so transports and callers can branch on
// failure class without string matching.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a failure class.
type Code string

const (
	// Transport-level codes.
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "not_found"
	CodeInternal     Code = "internal"

	// Metering codes.
	CodeInsufficientCredits Code = "insufficient_credits"
	CodeDebitRejected       Code = "debit_rejected"
	CodeCompensationFailed  Code = "compensation_failed"

	// Render codes.
	CodeCapacityExceeded       Code = "capacity_exceeded"
	CodeUnsupportedEncoding    Code = "unsupported_encoding"
	CodeInvalidRenderParameter Code = "invalid_render_parameter"
	CodeRenderFailure          Code = "render_failure"

	// Collaborator timeout, kept distinct from business rejections.
	CodeTimeout Code = "timeout"
)

// Error is a domain error carrying a stable code, a human-readable message,
// and an optional wrapped cause.
type Error struct {
	ErrCode Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.ErrCode, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.ErrCode, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{ErrCode: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{ErrCode: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message while preserving the cause for
// errors.Is/As chains.
func Wrap(err error, code Code, message string) *Error {
	return &Error{ErrCode: code, Message: message, Cause: err}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.ErrCode == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// non-domain errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.ErrCode
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to the HTTP status used by the JSON error envelope.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInsufficientCredits:
		return http.StatusPaymentRequired
	case CodeDebitRejected:
		return http.StatusConflict
	case CodeCapacityExceeded, CodeUnsupportedEncoding:
		return http.StatusUnprocessableEntity
	case CodeInvalidRenderParameter:
		return http.StatusInternalServerError
	case CodeRenderFailure:
		return http.StatusBadGateway
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeCompensationFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
