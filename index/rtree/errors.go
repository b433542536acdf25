package rtree

import (
	"errors"
	"fmt"

	"github.com/hupe1980/spatialknn/model"
)

var (
	// ErrObjectNotFound is returned when no leaf entry matches an object id and
	// point. It indicates that the index and its relation went out of sync, or
	// that the tree is corrupt.
	ErrObjectNotFound = errors.New("object not found")

	// ErrPageNotFound is returned by page stores for unknown page ids.
	ErrPageNotFound = errors.New("page not found")

	// ErrNotEmpty is returned when bulk loading into a non-empty tree.
	ErrNotEmpty = errors.New("tree is not empty")

	// ErrInvalidOptions is returned for inconsistent tree options.
	ErrInvalidOptions = errors.New("invalid options")

	// ErrCorrupt is returned by Validate when an invariant does not hold.
	ErrCorrupt = errors.New("tree invariant violated")
)

// ErrDimensionMismatch is a named error type for dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int // Expected dimensions
	Actual   int // Actual dimensions
}

// Error returns the error message for dimension mismatch.
func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ObjectNotFoundError reports the object FindPathToObject could not locate.
type ObjectNotFoundError struct {
	ID    model.ObjectID
	Point model.Vector
}

func (e *ObjectNotFoundError) Error() string {
	return fmt.Sprintf("object %d at %v not found in index", e.ID, e.Point)
}

func (e *ObjectNotFoundError) Unwrap() error { return ErrObjectNotFound }

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}
