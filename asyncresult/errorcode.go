// Package asyncresult defines the three-state Result[T] value and the stable
// ErrorCode taxonomy shared by every other package in this module: apartment,
// asyncctx, future, and flow all complete their work as a Result.
package asyncresult

import (
	"errors"
	"fmt"
)

// ErrorCode is a stable, comparable outcome classification. Zero is reserved
// for Success so a zero-value CodedError never aliases a real failure.
type ErrorCode uint32

const (
	Success ErrorCode = iota
	Cancelled
	Timeout
	Terminated
	Interrupted
	EOF
	Unexpected
)

func (c ErrorCode) String() string {
	switch c {
	case Success:
		return "success"
	case Cancelled:
		return "cancelled"
	case Timeout:
		return "timeout"
	case Terminated:
		return "terminated"
	case Interrupted:
		return "interrupted"
	case EOF:
		return "eof"
	case Unexpected:
		return "unexpected"
	default:
		return fmt.Sprintf("errorcode(%d)", uint32(c))
	}
}

// CodedError is the error type every combinator in this module produces.
// It carries a stable Code plus an optional cause and source location hint,
// following the teacher's own error-tagging idiom (error_tagging.go's
// TaskMetaError) rather than a bespoke exception hierarchy.
type CodedError struct {
	Code     ErrorCode
	Message  string
	Cause    error
	Location string // "dir/file.go:123", captured by New/Wrap via runtime.Caller
}

func (e *CodedError) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.Cause != nil && e.Message != "":
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Cause)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	default:
		return e.Code.String()
	}
}

func (e *CodedError) Unwrap() error { return e.Cause }

// Is makes errors.Is(err, Cancelled-shaped-error) match on Code alone, so
// callers can write errors.Is(err, asyncresult.New(asyncresult.Cancelled, ""))
// or, more idiomatically, asyncresult.CodeOf(err) == asyncresult.Cancelled.
func (e *CodedError) Is(target error) bool {
	other, ok := target.(*CodedError)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

// New builds a *CodedError with the given code and message, capturing the
// caller's location for diagnostics.
func New(code ErrorCode, message string) *CodedError {
	return &CodedError{Code: code, Message: message, Location: caller(2)}
}

// Wrap builds a *CodedError that chains an underlying cause.
func Wrap(code ErrorCode, cause error, message string) *CodedError {
	return &CodedError{Code: code, Message: message, Cause: cause, Location: caller(2)}
}

// CodeOf extracts the ErrorCode from err, defaulting to Unexpected for any
// error that did not originate from this package (including nil, which maps
// to Success).
func CodeOf(err error) ErrorCode {
	if err == nil {
		return Success
	}
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return Unexpected
}
