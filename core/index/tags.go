package index

import (
	"sync"

	"github.com/RoaringBitmap/roaring"

	"github.com/yantra-mind/memoryd/core/ident"
)

// Tags is a compressed-bitmap index from tag name to the set of nodes
// carrying it, used for the tagged-subset filters recall() and resonate()
// accept.
type Tags struct {
	mu      sync.RWMutex
	idToNum map[ident.ID]uint32
	numToID []ident.ID
	bitmaps map[string]*roaring.Bitmap
}

// NewTags creates an empty tag index.
func NewTags() *Tags {
	return &Tags{
		idToNum: make(map[ident.ID]uint32),
		bitmaps: make(map[string]*roaring.Bitmap),
	}
}

// numFor returns id's internal roaring-compatible uint32, assigning a new
// one on first use. Numbers are never reused even after RemoveNode, so a
// stale bitmap reference can never resolve to a different node.
func (t *Tags) numFor(id ident.ID) uint32 {
	if n, ok := t.idToNum[id]; ok {
		return n
	}
	n := uint32(len(t.numToID))
	t.idToNum[id] = n
	t.numToID = append(t.numToID, id)
	return n
}

// Add files id under tag.
func (t *Tags) Add(id ident.ID, tag string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.numFor(id)
	bm, ok := t.bitmaps[tag]
	if !ok {
		bm = roaring.New()
		t.bitmaps[tag] = bm
	}
	bm.Add(n)
}

// Remove unfiles id from tag.
func (t *Tags) Remove(id ident.ID, tag string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.idToNum[id]
	if !ok {
		return
	}
	if bm, ok := t.bitmaps[tag]; ok {
		bm.Remove(n)
	}
}

// RemoveNode unfiles id from every tag, used on forget().
func (t *Tags) RemoveNode(id ident.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.idToNum[id]
	if !ok {
		return
	}
	for _, bm := range t.bitmaps {
		bm.Remove(n)
	}
}

// Contains reports whether id is filed under tag.
func (t *Tags) Contains(id ident.ID, tag string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.idToNum[id]
	if !ok {
		return false
	}
	bm, ok := t.bitmaps[tag]
	return ok && bm.Contains(n)
}

// And returns the ids carrying every tag in tags.
func (t *Tags) And(tags []string) []ident.ID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(tags) == 0 {
		return nil
	}
	var acc *roaring.Bitmap
	for _, tag := range tags {
		bm, ok := t.bitmaps[tag]
		if !ok {
			return nil
		}
		if acc == nil {
			acc = bm.Clone()
		} else {
			acc.And(bm)
		}
	}
	return t.resolve(acc)
}

// Or returns the ids carrying at least one tag in tags.
func (t *Tags) Or(tags []string) []ident.ID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	acc := roaring.New()
	for _, tag := range tags {
		if bm, ok := t.bitmaps[tag]; ok {
			acc.Or(bm)
		}
	}
	return t.resolve(acc)
}

func (t *Tags) resolve(bm *roaring.Bitmap) []ident.ID {
	if bm == nil {
		return nil
	}
	out := make([]ident.ID, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		n := it.Next()
		if int(n) < len(t.numToID) {
			out = append(out, t.numToID[n])
		}
	}
	return out
}
