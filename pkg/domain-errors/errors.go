// Package domainerrors provides coded errors for boundary translation.
//
// Services return sentinel or wrapped errors; the transport layer translates
// them into coded errors so responses carry a stable machine-readable code
// without leaking internals.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable, machine-readable error classification.
type Code string

const (
	CodeInvalidInput          Code = "invalid_input"
	CodeConsentRequired       Code = "consent_required"
	CodeKeyInit               Code = "key_init"
	CodeEncryptionUnavailable Code = "encryption_unavailable"
	CodeDecryptionFailed      Code = "decryption_failed"
	CodeIntegrityViolation    Code = "integrity_violation"
	CodeBudgetExhausted       Code = "budget_exhausted"
	CodeAuditWriteFailed      Code = "audit_write_failed"
	CodeUnauthorized          Code = "unauthorized"
	CodeUnavailable           Code = "unavailable"
	CodeInternal              Code = "internal"
)

// Error is a coded domain error. Construct via New or Wrap.
type Error struct {
	code Code
	msg  string
	err  error
}

// New creates a coded error with a caller-facing message.
func New(code Code, msg string) *Error {
	return &Error{code: code, msg: msg}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(code Code, msg string, err error) *Error {
	return &Error{code: code, msg: msg, err: err}
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.err
}

// Is matches another coded error with the same code and message, so tests
// can compare against a freshly constructed expectation.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.code == other.code && e.msg == other.msg
}

// Code returns the classification of this error.
func (e *Error) Code() Code {
	return e.code
}

// Message returns the caller-facing message without the wrapped cause.
func (e *Error) Message() string {
	return e.msg
}

// CodeOf extracts the code from an error chain. Unclassified errors report
// CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.code
	}
	return CodeInternal
}

// HTTPStatus maps a code to the HTTP status the transport layer should send.
func HTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeConsentRequired:
		return http.StatusForbidden
	case CodeBudgetExhausted:
		return http.StatusTooManyRequests
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
