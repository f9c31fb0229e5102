package rcu

import (
	"fmt"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Pointer is the interface shared by all container variants in this
// package. It covers the uniform part of the container surface; Clone
// (shared models) and Set (exclusive models) return concrete types and
// are therefore not part of the interface.
type Pointer[T any] interface {
	// Deref returns a pointer to the current value. The returned value
	// is never mutated in place by later updates, so the pointer stays
	// valid and keeps observing the value it was obtained for.
	// Dereferencing marks this handle as borrowing until the next Clean.
	Deref() *T
	// Update clones the current value and returns a guard exposing the
	// clone for mutation. Releasing the guard publishes the clone as the
	// new current value and retires the displaced one.
	Update() *Guard[T]
	// Clean reclaims retired values when no handle holds an outstanding
	// borrow. When borrows remain the call is a silent no-op and must be
	// retried after the borrowing handles have called Clean themselves.
	// The caller must hold the handle exclusively.
	Clean()
	// Retired reports how many superseded values are currently retained.
	Retired() int
}

// CloneFunc duplicates a value during Update. The returned pointer must
// reference freshly allocated memory that shares no mutable state with
// the argument.
type CloneFunc[T any] func(*T) *T

// RetireFunc is invoked for every superseded value at the moment it is
// reclaimed, exactly once per value. It is the observable equivalent of
// freeing the value.
type RetireFunc[T any] func(*T)

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// Option configures a container during construction.
type Option[T any] func(*config[T])

type config[T any] struct {
	clone    CloneFunc[T]
	onRetire RetireFunc[T]
}

// WithClone sets the duplication function used by Update. The default
// performs a shallow value copy, which is sufficient for value types
// without interior pointers.
func WithClone[T any](fn CloneFunc[T]) Option[T] {
	return func(c *config[T]) {
		c.clone = fn
	}
}

// WithOnRetire registers a hook invoked once per superseded value when
// it is reclaimed by Clean (never for the current value).
func WithOnRetire[T any](fn RetireFunc[T]) Option[T] {
	return func(c *config[T]) {
		c.onRetire = fn
	}
}

func newConfig[T any](opts []Option[T]) config[T] {
	cfg := config[T]{clone: shallowClone[T]}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func shallowClone[T any](p *T) *T {
	cp := *p
	return &cp
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message. Violations of the update protocol are raised by
// panicking with an *Error: they indicate a broken invariant, never a
// condition to retry.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message
}

// Error implements the error interface.
func (e *Error) Error() string {
	errorCode := ""
	switch e.Code {
	case RetCConcurrentUpdate:
		errorCode = "ConcurrentUpdate"
	case RetCDomainClosed:
		errorCode = "DomainClosed"
	case RetCGraceReleased:
		errorCode = "GraceReleased"
	default:
		errorCode = "Unknown"
	}

	return fmt.Sprintf("RCUError (code %s): %s", errorCode, e.Msg)
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

// RetCode identifies the class of a protocol violation.
type RetCode int

const (
	// RetCConcurrentUpdate is raised when a second update is started on a
	// version-chain container that already has an unreleased guard. The
	// single-writer invariant of the chain makes the second mutation
	// undefined, so the operation fails fatally.
	RetCConcurrentUpdate RetCode = iota + 1
	// RetCDomainClosed is raised when a grace token is requested from a
	// reclamation domain that has been closed.
	RetCDomainClosed
	// RetCGraceReleased is raised when a read is attempted through a
	// grace token that has already been released.
	RetCGraceReleased
)
