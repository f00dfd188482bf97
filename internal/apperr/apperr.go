// Package apperr classifies the failures a calendar session can surface.
//
// Controllers catch every remote failure at their boundary and hand the
// render side an *Error; callers branch on the kind with errors.Is:
//
//	if errors.Is(err, apperr.ErrInvalidShareToken) {
//	    // render the "invalid or expired link" page
//	}
package apperr

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable failure class.
type Kind string

const (
	KindAuth              Kind = "AUTH_FAILURE"
	KindValidation        Kind = "VALIDATION_FAILURE"
	KindNetwork           Kind = "NETWORK_OR_SERVER_FAILURE"
	KindInvalidShareToken Kind = "INVALID_SHARE_TOKEN"
	KindReadOnly          Kind = "READ_ONLY"
)

// Sentinels for errors.Is.
var (
	ErrAuth              = &Error{Kind: KindAuth}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrNetwork           = &Error{Kind: KindNetwork}
	ErrInvalidShareToken = &Error{Kind: KindInvalidShareToken}
	ErrReadOnly          = &Error{Kind: KindReadOnly}
)

// Error is a classified failure with a user-facing message.
type Error struct {
	Kind    Kind
	Message string
	// Fields holds per-field messages for validation failures.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the package sentinels work
// with errors.Is regardless of message or cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" if
// there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func Auth(msg string, err error) error {
	return &Error{Kind: KindAuth, Message: msg, Err: err}
}

func Validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

func ValidationWithFields(msg string, fields map[string]string) error {
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

func Network(msg string, err error) error {
	return &Error{Kind: KindNetwork, Message: msg, Err: err}
}

func InvalidShareToken(msg string, err error) error {
	return &Error{Kind: KindInvalidShareToken, Message: msg, Err: err}
}

func ReadOnly(msg string) error {
	return &Error{Kind: KindReadOnly, Message: msg}
}
