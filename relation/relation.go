package relation

import (
	"errors"
	"fmt"

	"github.com/hupe1980/spatialknn/model"
)

var (
	// ErrNotFound is returned for unknown object ids.
	ErrNotFound = errors.New("object not found in relation")

	// ErrDuplicate is returned when inserting an id that is already stored.
	ErrDuplicate = errors.New("object already exists in relation")

	// ErrDimensionMismatch is returned when a vector does not match the relation's dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")
)

// Relation maps object ids to vectors.
type Relation interface {
	// Get returns the vector of id. The returned vector must not be modified.
	Get(id model.ObjectID) (model.Vector, error)
	// Scan calls fn for every object. It stops at the first error fn returns.
	Scan(fn func(id model.ObjectID, v model.Vector) error) error
	// Len returns the number of objects.
	Len() (int, error)
	// Dimension returns the vector dimension, or 0 while the relation is empty
	// and no dimension was configured.
	Dimension() int
}

// Mutable is a relation that can be changed.
type Mutable interface {
	Relation
	// Insert stores v under id. It fails with ErrDuplicate if id is present.
	Insert(id model.ObjectID, v model.Vector) error
	// Delete removes id and returns its vector. It fails with ErrNotFound if id
	// is absent.
	Delete(id model.ObjectID) (model.Vector, error)
}

// IDs returns all object ids of r in scan order.
func IDs(r Relation) ([]model.ObjectID, error) {
	n, err := r.Len()
	if err != nil {
		return nil, err
	}
	ids := make([]model.ObjectID, 0, n)
	err = r.Scan(func(id model.ObjectID, _ model.Vector) error {
		ids = append(ids, id)
		return nil
	})
	return ids, err
}

// Vectors resolves ids to their vectors.
func Vectors(r Relation, ids []model.ObjectID) ([]model.Vector, error) {
	out := make([]model.Vector, len(ids))
	for i, id := range ids {
		v, err := r.Get(id)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func checkDim(dim int, v model.Vector) error {
	if len(v) == 0 || (dim != 0 && len(v) != dim) {
		return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, dim, len(v))
	}
	return nil
}

func notFound(id model.ObjectID) error {
	return fmt.Errorf("%w: %d", ErrNotFound, id)
}
