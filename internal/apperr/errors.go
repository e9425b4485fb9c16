// Package apperr carries the error taxonomy shared by the assessment engine.
// Callers classify with Is/KindOf and map kinds to transport status codes.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindAccessDenied         Kind = "access_denied"
	KindAttemptLimitExceeded Kind = "attempt_limit_exceeded"
	KindNotFound             Kind = "not_found"
	KindForbidden            Kind = "forbidden"
	KindExpiredAttempt       Kind = "expired_attempt"
	KindDataIntegrity        Kind = "data_integrity"
)

// Error is a kinded error. Reason is a machine-readable token the
// presentation layer can switch on (e.g. "lessons_required").
type Error struct {
	Kind   Kind
	Reason string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches two apperr.Errors by kind so errors.Is(err, apperr.E(kind))
// works without comparing messages.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && (t.Reason == "" || t.Reason == e.Reason)
}

// E builds a kinded error from a kind and optional message.
func E(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Denied builds an AccessDenied error with a machine-readable reason.
func Denied(reason, msg string) *Error {
	return &Error{Kind: KindAccessDenied, Reason: reason, Msg: msg}
}

// Wrap annotates err with a kind, preserving the chain.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind from err, or "" when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ReasonOf extracts the machine-readable reason, if any.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}
