// Package errkind defines the error taxonomy every bounded context reports through.
// Concrete errors are created with New and unwrap to exactly one kind, so callers
// can branch on errors.Is(err, errkind.ErrStateConflict) without knowing the cause.
package errkind

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrStateConflict   = errors.New("state conflict")
	ErrValueTooLow     = errors.New("value too low")
	ErrTransferFailed  = errors.New("transfer failed")
	ErrUnavailable     = errors.New("unavailable")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// New returns a sentinel error of the given kind.
func New(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

type transferError struct {
	cause error
}

func (e *transferError) Error() string {
	return fmt.Sprintf("transfer failed: %v", e.cause)
}

func (e *transferError) Unwrap() []error {
	return []error{ErrTransferFailed, e.cause}
}

// Transfer marks err as a collaborator transfer failure while keeping the cause
// reachable through errors.Is / errors.As. A nil err stays nil.
func Transfer(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTransferFailed) {
		return err
	}
	return &transferError{cause: err}
}

// Of returns the kind err belongs to, or nil when it carries none.
func Of(err error) error {
	for _, kind := range []error{ErrTransferFailed, ErrNotFound, ErrInvalidArgument, ErrStateConflict, ErrValueTooLow, ErrUnavailable} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
