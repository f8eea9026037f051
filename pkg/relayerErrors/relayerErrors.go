// Package relayerErrors defines the error kinds surfaced by the relayer.
// Every failure returned by the signing core is wrapped in an *Error carrying
// the operation name, so callers can branch on the kind with errors.Is while
// still getting enough context to diagnose the failing request.
package relayerErrors

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks missing or unreadable key material and unloaded signers.
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation marks malformed requests rejected before any cryptographic work.
	ErrValidation = errors.New("validation error")
	// ErrLookup marks a public key that is not held by the keystore.
	ErrLookup = errors.New("lookup error")
	// ErrPrecondition marks operations requested without the capability they need.
	ErrPrecondition = errors.New("precondition error")
)

// Error ties an error kind to the operation that produced it.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func newError(kind error, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Configuration returns an ErrConfiguration error for op.
func Configuration(op string, format string, args ...any) *Error {
	return newError(ErrConfiguration, op, format, args...)
}

// Validation returns an ErrValidation error for op.
func Validation(op string, format string, args ...any) *Error {
	return newError(ErrValidation, op, format, args...)
}

// Lookup returns an ErrLookup error for op.
func Lookup(op string, format string, args ...any) *Error {
	return newError(ErrLookup, op, format, args...)
}

// Precondition returns an ErrPrecondition error for op.
func Precondition(op string, format string, args ...any) *Error {
	return newError(ErrPrecondition, op, format, args...)
}
