// Package domainerrors provides coded errors shared by all services. Codes
// classify failures for callers and transports without string matching.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	CodeNotFound      Code = "not_found"
	CodeInvalidState  Code = "invalid_state"
	CodeValidation    Code = "validation"
	CodeConflict      Code = "conflict"
	CodeLedgerFailure Code = "ledger_failure"
	CodeTimeout       Code = "timeout"
	CodeInternal      Code = "internal"
)

// Error carries a code, a human-readable message, and an optional cause.
type Error struct {
	code  Code
	msg   string
	cause error
}

// New builds a domain error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{code: code, msg: msg}
}

// Newf builds a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, msg: fmt.Sprintf(format, args...)}
}

// Wrap annotates an existing error with a code and message. The cause remains
// reachable through errors.Is/errors.As.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{code: code, msg: msg, cause: err}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.cause }

// Code returns the classification of this error.
func (e *Error) Code() Code { return e.code }

// Message returns the message without the cause chain.
func (e *Error) Message() string { return e.msg }

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if errors.As(err, &de) {
			if de.code == code {
				return true
			}
			err = de.cause
			continue
		}
		return false
	}
	return false
}

// CodeOf returns the code of the outermost domain error in the chain, or
// CodeInternal when the error is not a domain error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.code
	}
	return CodeInternal
}
