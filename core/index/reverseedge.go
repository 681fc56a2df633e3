package index

import (
	"sync"

	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/model"
)

// ReverseEdge is one incoming edge recorded against its target.
type ReverseEdge struct {
	Source ident.ID
	Type   model.EdgeType
	Weight float64
}

// ReverseIndex answers "who points at this node", the inverse of the
// forward edge lists stored on each Node — needed for causal-chain
// backward traversal and for collecting a node's inbound neighbors on
// forget().
type ReverseIndex struct {
	mu sync.RWMutex
	m  map[ident.ID][]ReverseEdge
}

// NewReverseIndex creates an empty reverse-edge index.
func NewReverseIndex() *ReverseIndex {
	return &ReverseIndex{m: make(map[ident.ID][]ReverseEdge)}
}

// Add records that source -> target exists with the given type/weight.
func (r *ReverseIndex) Add(source, target ident.ID, t model.EdgeType, weight float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	edges := r.m[target]
	for i, e := range edges {
		if e.Source == source && e.Type == t {
			edges[i].Weight = weight
			return
		}
	}
	r.m[target] = append(edges, ReverseEdge{Source: source, Type: t, Weight: weight})
}

// Remove deletes the source -> target edge of the given type.
func (r *ReverseIndex) Remove(source, target ident.ID, t model.EdgeType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	edges := r.m[target]
	for i, e := range edges {
		if e.Source == source && e.Type == t {
			r.m[target] = append(edges[:i], edges[i+1:]...)
			return
		}
	}
}

// RemoveNode deletes every reverse edge pointing at or originating from id,
// used on forget().
func (r *ReverseIndex) RemoveNode(id ident.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, id)
	for target, edges := range r.m {
		filtered := edges[:0]
		for _, e := range edges {
			if e.Source != id {
				filtered = append(filtered, e)
			}
		}
		r.m[target] = filtered
	}
}

// Incoming returns the edges pointing at target.
func (r *ReverseIndex) Incoming(target ident.ID) []ReverseEdge {
	r.mu.RLock()
	defer r.mu.RUnlock()
	edges := r.m[target]
	out := make([]ReverseEdge, len(edges))
	copy(out, edges)
	return out
}
