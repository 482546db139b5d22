package errors

import (
	"errors"
	"fmt"
)

// New returns an error with the given message.
func New(msg string) error {
	return errors.New(msg)
}

// contextError annotates an underlying error with information about the
// operation that failed. The full chain of context is included in the error
// message, and the original error stays reachable through RootCause.
type contextError struct {
	context string
	cause   error
}

func (err contextError) Error() string {
	return fmt.Sprintf("%s: %s", err.context, err.cause)
}

// WithContext wraps err with a description of the operation that failed.
func WithContext(err error, context string) error {
	return contextError{context: context, cause: err}
}

// RootCause returns the innermost error in a chain of contextErrors.
func RootCause(err error) error {
	for {
		ctxErr, ok := err.(contextError)
		if !ok {
			return err
		}
		err = ctxErr.cause
	}
}

// A FriendlyError is an error whose message is meant to be shown to the user
// directly, without any wrapping context.
type FriendlyError interface {
	FriendlyMessage() string
}

type friendlyError struct {
	message string
}

func (err friendlyError) Error() string {
	return err.message
}

func (err friendlyError) FriendlyMessage() string {
	return err.message
}

// NewFriendlyError creates an error that is printed to the user as-is.
func NewFriendlyError(format string, args ...interface{}) error {
	return friendlyError{message: fmt.Sprintf(format, args...)}
}

// GetFriendlyMessage returns the user-facing message for err if it has one.
// The message may be attached at any point in the context chain.
func GetFriendlyMessage(err error) (string, bool) {
	for {
		if friendly, ok := err.(FriendlyError); ok {
			return friendly.FriendlyMessage(), true
		}

		ctxErr, ok := err.(contextError)
		if !ok {
			return "", false
		}
		err = ctxErr.cause
	}
}
