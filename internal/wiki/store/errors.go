package store

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is returned when a mutating call carries no identity.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrNotFound is returned when an operation references an unknown page id.
	ErrNotFound = errors.New("page not found")
	// ErrDuplicatePath is returned when a page already lives at the requested path.
	ErrDuplicatePath = errors.New("a page with this path already exists")
	// ErrInvalidPath is returned when a path fails the segment grammar.
	ErrInvalidPath = errors.New("path must only contain letters, numbers, and forward slashes")
	// ErrInvalidTitle is returned when a page is created without a title.
	ErrInvalidTitle = errors.New("title is required")
	// ErrPersistence matches every *PersistenceError.
	ErrPersistence = errors.New("persistence failure")
)

// PersistenceError reports a failed durable load or save. For saves the
// in-memory mutation has already been applied and stays applied.
type PersistenceError struct {
	Op     string // "load" or "save"
	Record string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s %s: %v", e.Op, e.Record, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// IsPersistenceFailure reports whether err only signals lost durability.
func IsPersistenceFailure(err error) bool {
	return errors.Is(err, ErrPersistence)
}
