package database

import (
	"errors"
	"fmt"
)

// CategoryLookup marks errors from key-based NEO lookups.
const CategoryLookup = "lookup"

// ErrNotFound is returned when a lookup matches no near-Earth object.
var ErrNotFound = errors.New("not found")

// DatabaseError represents a categorized database error with context.
//
//nolint:revive // DatabaseError is a clear, descriptive name that doesn't stutter in practice
type DatabaseError struct {
	Category    string // Error category (lookup)
	Operation   string // Operation that failed (get_by_designation, get_by_name)
	Message     string // User-friendly error message
	Key         string // The lookup key that caused the error ("" if none)
	OriginalErr error  // The underlying error
}

func (e *DatabaseError) Error() string {
	var msg string
	if e.Key != "" {
		msg = fmt.Sprintf("database %s error in %s: %s (%q)", e.Category, e.Operation, e.Message, e.Key)
	} else {
		msg = fmt.Sprintf("database %s error: %s", e.Category, e.Message)
	}
	if e.OriginalErr != nil && !errors.Is(e.OriginalErr, ErrNotFound) {
		msg += fmt.Sprintf(" (original: %v)", e.OriginalErr)
	}
	return msg
}

func (e *DatabaseError) Unwrap() error {
	return e.OriginalErr
}

// newLookupError creates a lookup error for a key that matched nothing.
// The error wraps ErrNotFound so callers can test with errors.Is.
func newLookupError(operation, kind, key string) *DatabaseError {
	return &DatabaseError{
		Category:    CategoryLookup,
		Operation:   operation,
		Message:     fmt.Sprintf("no NEO with %s", kind),
		Key:         key,
		OriginalErr: ErrNotFound,
	}
}

// IsNotFound checks if the error indicates a lookup that matched nothing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
