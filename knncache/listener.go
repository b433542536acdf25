package knncache

import (
	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/spatialknn/model"
)

// EventKind tells which maintenance operation produced a ChangeEvent.
type EventKind int

const (
	Inserted EventKind = iota
	Deleted
)

func (k EventKind) String() string {
	if k == Inserted {
		return "Inserted"
	}
	return "Deleted"
}

// ChangeEvent describes one Insert or Delete.
type ChangeEvent struct {
	Kind EventKind
	// Objects are the inserted or deleted ids.
	Objects []model.ObjectID
	// Updated holds the remaining objects whose lists changed.
	Updated *roaring64.Bitmap
}

// Listener is notified after every Insert and Delete on a materialized cache.
type Listener func(ev ChangeEvent)

// AddListener registers l.
func (c *Cache[D]) AddListener(l Listener) {
	c.listeners = append(c.listeners, l)
}

func (c *Cache[D]) notify(ev ChangeEvent) {
	for _, l := range c.listeners {
		l(ev)
	}
}
