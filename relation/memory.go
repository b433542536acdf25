package relation

import (
	"fmt"

	"github.com/hupe1980/spatialknn/model"
)

// Memory is an in-memory relation.
//
// Concurrent reads are safe; mutation must not run concurrently with anything else.
type Memory struct {
	dim  int
	ids  []model.ObjectID
	vecs []model.Vector
	pos  map[model.ObjectID]int
}

var _ Mutable = (*Memory)(nil)

// NewMemory returns an empty relation. dim 0 infers the dimension from the first
// inserted vector.
func NewMemory(dim int) *Memory {
	return &Memory{dim: dim, pos: make(map[model.ObjectID]int)}
}

// Get returns the vector of id.
func (m *Memory) Get(id model.ObjectID) (model.Vector, error) {
	i, ok := m.pos[id]
	if !ok {
		return nil, notFound(id)
	}
	return m.vecs[i], nil
}

// Scan calls fn for every object in insertion order (modulo deletions).
func (m *Memory) Scan(fn func(id model.ObjectID, v model.Vector) error) error {
	for i, id := range m.ids {
		if err := fn(id, m.vecs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) Len() (int, error) { return len(m.ids), nil }

func (m *Memory) Dimension() int { return m.dim }

// Insert stores a copy of v under id.
func (m *Memory) Insert(id model.ObjectID, v model.Vector) error {
	if err := checkDim(m.dim, v); err != nil {
		return err
	}
	if _, ok := m.pos[id]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicate, id)
	}
	if m.dim == 0 {
		m.dim = len(v)
	}
	m.pos[id] = len(m.ids)
	m.ids = append(m.ids, id)
	m.vecs = append(m.vecs, v.Clone())
	return nil
}

// Delete removes id. The last object takes the freed slot.
func (m *Memory) Delete(id model.ObjectID) (model.Vector, error) {
	i, ok := m.pos[id]
	if !ok {
		return nil, notFound(id)
	}
	v := m.vecs[i]
	last := len(m.ids) - 1
	if i != last {
		m.ids[i] = m.ids[last]
		m.vecs[i] = m.vecs[last]
		m.pos[m.ids[i]] = i
	}
	m.ids = m.ids[:last]
	m.vecs[last] = nil
	m.vecs = m.vecs[:last]
	delete(m.pos, id)
	return v, nil
}
