// Package errors is the single import for error handling in tasktracker.
// Sentinel comparison goes through the standard library; wrapping goes through
// pkg/errors so that internal failures keep a stack trace for the logs.
package errors

import (
	stderrors "errors"

	pkgerrors "github.com/pkg/errors"
)

func New(text string) error {
	return stderrors.New(text)
}

func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// Find returns the first error in err's tree of type T.
func Find[T error](err error) (T, bool) {
	var target T
	if stderrors.As(err, &target) {
		return target, true
	}

	return target, false
}

func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

// Wrap annotates err with a stack trace and message. A nil err stays nil.
func Wrap(err error, message string) error {
	return pkgerrors.Wrap(err, message)
}

func Wrapf(err error, format string, args ...any) error {
	return pkgerrors.Wrapf(err, format, args...)
}

func WithStack(err error) error {
	return pkgerrors.WithStack(err)
}

// Errorf formats a new error carrying a stack trace.
func Errorf(format string, args ...any) error {
	return pkgerrors.Errorf(format, args...)
}
