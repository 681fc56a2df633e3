package index

import (
	"sync"

	"github.com/tidwall/btree"

	"github.com/yantra-mind/memoryd/core/ident"
)

// accessItem orders nodes by last-access time, then id for uniqueness.
type accessItem struct {
	atMS int64
	id   ident.ID
}

func accessLess(a, b accessItem) bool {
	if a.atMS != b.atMS {
		return a.atMS < b.atMS
	}
	return lessID(a.id, b.id)
}

// Access is an ordered index over tau_accessed, so time-windowed queries
// (the recency timeline) read only the window instead of scanning every
// node.
type Access struct {
	mu      sync.Mutex
	tree    *btree.BTreeG[accessItem]
	current map[ident.ID]int64
}

// NewAccess creates an empty access-time index.
func NewAccess() *Access {
	return &Access{
		tree:    btree.NewBTreeG(accessLess),
		current: make(map[ident.ID]int64),
	}
}

// Touch records id's latest access time, replacing any previous entry.
func (a *Access) Touch(id ident.ID, atMS int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if prev, ok := a.current[id]; ok {
		a.tree.Delete(accessItem{atMS: prev, id: id})
	}
	a.current[id] = atMS
	a.tree.Set(accessItem{atMS: atMS, id: id})
}

// Remove drops id from the index.
func (a *Access) Remove(id ident.ID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	prev, ok := a.current[id]
	if !ok {
		return
	}
	delete(a.current, id)
	a.tree.Delete(accessItem{atMS: prev, id: id})
}

// Since returns every id accessed at or after fromMS, most recent first.
func (a *Access) Since(fromMS int64) []ident.ID {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []ident.ID
	a.tree.Descend(accessItem{atMS: 1<<63 - 1, id: maxID}, func(item accessItem) bool {
		if item.atMS < fromMS {
			return false
		}
		out = append(out, item.id)
		return true
	})
	return out
}

var maxID = ident.ID{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
