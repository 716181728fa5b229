package errors

import (
	"errors"
	"fmt"
)

// Wrapf wraps a plain error with formatted context, for call sites that
// don't need a typed AppError (internal helpers, not HTTP boundaries).
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// As is a thin re-export so callers working in this package's vocabulary
// don't need a second import just to unwrap an AppError.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// KindOf returns the Kind of err if it is (or wraps) an AppError, else
// KindInternalError.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternalError
}

// StatusCodeOf returns the HTTP status for err, defaulting to 500.
func StatusCodeOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	return 500
}
