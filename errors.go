package spatialknn

import (
	"errors"
	"fmt"

	"github.com/hupe1980/spatialknn/index/rtree"
	"github.com/hupe1980/spatialknn/query"
	"github.com/hupe1980/spatialknn/relation"
)

var (
	// ErrNotFound is returned when an object id is not stored.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when inserting an id that is already stored.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrInvalidEpsilon is returned for a negative range radius.
	ErrInvalidEpsilon = errors.New("epsilon must not be negative")

	// ErrInvalidOperation is returned when an operation does not fit the index
	// configuration, e.g. Neighbors without a KNN cache.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrCorrupt is returned when the tree and the relation disagree or a tree
	// invariant is violated.
	ErrCorrupt = errors.New("index corrupt")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("index closed")
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Not found unification.
	if errors.Is(err, relation.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if errors.Is(err, relation.ErrDuplicate) {
		return fmt.Errorf("%w: %w", ErrAlreadyExists, err)
	}

	// An object the relation knows but the tree does not is an inconsistency.
	if errors.Is(err, rtree.ErrObjectNotFound) || errors.Is(err, rtree.ErrCorrupt) {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	var dm *rtree.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}

	if errors.Is(err, query.ErrInvalidK) {
		return fmt.Errorf("%w: %w", ErrInvalidK, err)
	}
	if errors.Is(err, query.ErrInvalidEpsilon) {
		return fmt.Errorf("%w: %w", ErrInvalidEpsilon, err)
	}

	return err
}
