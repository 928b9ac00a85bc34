// Package werror is the plain wrap-with-message error for call sites
// that have nothing to add beyond a message. Errors that should carry
// structured fields use cerr instead.
package werror

import "fmt"

var _ error = WError{}
var _ interface{ Unwrap() error } = WError{}

type WError struct {
	// public so embedders can inspect them
	Message string
	Cause   error
}

func WrapError(message string, cause error) WError {
	return WError{
		Message: message,
		Cause:   cause,
	}
}

func (w WError) Unwrap() error {
	return w.Cause
}

func (w WError) Error() string {
	if w.Cause == nil {
		return w.Message
	}

	return fmt.Sprintf("%s: %s", w.Message, w.Cause.Error())
}
