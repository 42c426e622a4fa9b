// Package apperr defines the coded errors that cross service boundaries.
// Handlers map each code to a fixed user-facing reply.
package apperr

import (
	"errors"
	"fmt"
)

// Code classifies a failure for replies and logs.
type Code string

const (
	// UnknownChoiceToken marks a callback token that the current stage does not offer.
	UnknownChoiceToken Code = "UNKNOWN_CHOICE_TOKEN"
	// EmptyContentPool marks a known term (or whole pool) without links.
	EmptyContentPool Code = "EMPTY_CONTENT_POOL"
	// StoreUnavailable marks a failed session or content store call.
	StoreUnavailable Code = "STORE_UNAVAILABLE"
	// BestEffortUIFailure marks a failed keyboard retraction.
	BestEffortUIFailure Code = "BEST_EFFORT_UI_FAILURE"
	// SendFailed marks an outbound message Telegram did not accept.
	SendFailed Code = "SEND_FAILED"
)

// Error is an error carrying a Code and the operation that produced it.
type Error struct {
	code Code
	op   string
	err  error
}

// New wraps err with code and op. A nil err still yields an error.
func New(code Code, op string, err error) *Error {
	return &Error{code: code, op: op, err: err}
}

// Errorf builds a coded error from a format string.
func Errorf(code Code, op, format string, args ...any) *Error {
	return &Error{code: code, op: op, err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.err == nil {
		return fmt.Sprintf("%s: %s", e.op, e.code)
	}
	return fmt.Sprintf("%s: %v", e.op, e.err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.err }

// Code returns the error code as a string.
func (e *Error) Code() string { return string(e.code) }

// CodeOf returns the code of the first coded error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return ""
}

// Is reports whether err carries code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
