package db

import (
	"errors"
	"fmt"
)

// Error kinds returned by store operations. Callers match them with
// errors.Is.
var (
	// ErrValidation marks malformed or out-of-range input, caught before
	// any store access.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a referenced id or name that does not resolve to a
	// live, non-deleted entity.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks an operation that would violate a uniqueness or
	// dependency constraint.
	ErrConflict = errors.New("conflict")

	// ErrCycle marks a parent assignment that would make an entity its own
	// ancestor.
	ErrCycle = errors.New("cycle detected")

	// ErrStructural marks a violated invariant that should be unreachable
	// in correct operation, such as a parent chain deeper than the guard.
	ErrStructural = errors.New("structural invariant violated")

	// ErrStore marks a persistence-layer failure. Never retried here;
	// retry policy belongs to the caller.
	ErrStore = errors.New("store failure")
)

// Error wraps an operation failure with its kind.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *Error) Unwrap() error { return e.Kind }

func validationf(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Msg: fmt.Sprintf(format, args...)}
}

func cyclef(format string, args ...any) error {
	return &Error{Kind: ErrCycle, Msg: fmt.Sprintf(format, args...)}
}

func structuralf(format string, args ...any) error {
	return &Error{Kind: ErrStructural, Msg: fmt.Sprintf(format, args...)}
}

func storef(format string, args ...any) error {
	return &Error{Kind: ErrStore, Msg: fmt.Sprintf(format, args...)}
}
