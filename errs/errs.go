// Package errs classifies conversion failures.
//
// Every error that leaves a strategy or a tier carries one of four kinds so
// that callers can decide between "try the next tier" and "report to the
// user" without string matching:
//
//	err := errs.New(errs.UnsupportedFormat, "unsupported file type: %s", ext)
//	if errs.Is(err, errs.UnsupportedFormat) {
//	    // 415
//	}
package errs

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	UnsupportedFormat    Kind = "UNSUPPORTED_FORMAT"
	IOError              Kind = "IO_ERROR"
	UpstreamServiceError Kind = "UPSTREAM_SERVICE_ERROR"
	ProcessingError      Kind = "PROCESSING_ERROR"
)

// Error is a classified error with an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies cause under kind. A nil cause returns nil.
func Wrap(kind Kind, cause error, format string, args ...any) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether any error in err's chain has the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// KindOf returns the kind of the first classified error in err's chain,
// or "" when err is unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Message returns the user facing message without the cause chain.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
