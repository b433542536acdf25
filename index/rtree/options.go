package rtree

import (
	"fmt"
	"log/slog"
)

// Options contains configuration options for the tree.
type Options struct {
	// Dimension is the fixed point dimensionality. 0 infers it from the first
	// inserted point.
	Dimension int

	// LeafCapacity is the maximum number of entries in a leaf node.
	LeafCapacity int

	// DirCapacity is the maximum number of entries in a directory node.
	DirCapacity int

	// MinFillRatio determines the minimum fill of non-root nodes as a fraction of
	// their capacity. The resulting minimum is clamped to [1, capacity/2].
	MinFillRatio float64

	// Logger receives structural events (root splits, height changes, bulk loads).
	Logger *slog.Logger
}

// DefaultOptions contains the default configuration options for the tree.
var DefaultOptions = Options{
	Dimension:    0,
	LeafCapacity: 32,
	DirCapacity:  32,
	MinFillRatio: 0.4,
}

func (o *Options) validate() error {
	if o.Dimension < 0 {
		return fmt.Errorf("%w: dimension %d", ErrInvalidOptions, o.Dimension)
	}
	if o.LeafCapacity < 3 {
		return fmt.Errorf("%w: leaf capacity %d < 3", ErrInvalidOptions, o.LeafCapacity)
	}
	if o.DirCapacity < 3 {
		return fmt.Errorf("%w: directory capacity %d < 3", ErrInvalidOptions, o.DirCapacity)
	}
	if o.MinFillRatio <= 0 || o.MinFillRatio > 0.5 {
		return fmt.Errorf("%w: min fill ratio %g not in (0, 0.5]", ErrInvalidOptions, o.MinFillRatio)
	}
	return nil
}

func minFill(capacity int, ratio float64) int {
	m := int(float64(capacity) * ratio)
	if m < 1 {
		m = 1
	}
	if m > capacity/2 {
		m = capacity / 2
	}
	return m
}
