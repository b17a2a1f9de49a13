// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package tablebridge

import (
	"fmt"
)

// ErrBridge is a sentinel for use with errors.Is to check whether any error
// in a chain is a bridge *Error.
var ErrBridge = &Error{}

// Kind classifies a bridge failure. Every failure observable by a caller
// belongs to exactly one of these classes.
type Kind int

const (
	// KindIO covers missing or unreadable files and output stream failures.
	KindIO Kind = iota
	// KindFormat covers malformed files, schema mismatches, and type
	// mismatches in a requested column.
	KindFormat
	// KindArgument covers out-of-range indices, negative slice parameters,
	// unknown type tags, and use of a closed streaming reader.
	KindArgument
	// KindInternal covers any other failure surfaced by the underlying
	// Arrow library, including recovered panics.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindFormat:
		return "format"
	case KindArgument:
		return "argument"
	default:
		return "internal"
	}
}

// maxMessageLen bounds the error message copied onto the failure path so a
// pathological library error cannot force an unbounded allocation there.
const maxMessageLen = 256

// Error is the single failure representation of the bridge. All entry
// points return *Error values regardless of whether the underlying failure
// was an explicit error return, an argument-validation check, or a panic
// inside the wrapped library.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is supports errors.Is by matching any *Error target.
func (e *Error) Is(target error) bool {
	_, ok := target.(*Error)
	return ok
}

// newError builds an *Error with the message truncated to maxMessageLen.
func newError(kind Kind, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	if len(msg) > maxMessageLen {
		msg = msg[:maxMessageLen]
	}
	return &Error{Kind: kind, Message: msg}
}

func ioErrorf(format string, args ...interface{}) *Error {
	return newError(KindIO, format, args...)
}

func formatErrorf(format string, args ...interface{}) *Error {
	return newError(KindFormat, format, args...)
}

func argErrorf(format string, args ...interface{}) *Error {
	return newError(KindArgument, format, args...)
}

func internalErrorf(format string, args ...interface{}) *Error {
	return newError(KindInternal, format, args...)
}

// normalize funnels an arbitrary error into the bridge error channel.
// Errors already carrying a Kind pass through unchanged.
func normalize(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	if be, ok := err.(*Error); ok {
		return be
	}
	return newError(kind, "%s: %v", op, err)
}

// guard recovers a panic raised while operating on the Arrow library and
// converts it into the unified error channel. Deferred at every entry
// point whose body calls into arrow-go, so callers see one failure
// mechanism no matter how the library fails.
func guard(op string, err *error) {
	if rv := recover(); rv != nil {
		*err = newError(KindInternal, "%s: %v", op, rv)
	}
}
