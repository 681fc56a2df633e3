package model

import "github.com/yantra-mind/memoryd/core/ident"

// EdgeType distinguishes the semantic role of a directed edge between
// two nodes.
type EdgeType string

const (
	EdgeMentions    EdgeType = "mentions"
	EdgeCauses      EdgeType = "causes"
	EdgeIsA         EdgeType = "is_a"
	EdgePartOf      EdgeType = "part_of"
	EdgeSupports    EdgeType = "supports"
	EdgeContradicts EdgeType = "contradicts"
	EdgeRelated     EdgeType = "related"
	EdgeHebbian     EdgeType = "hebbian"
)

// Edge is a directed, typed, weighted connection from its owning node to
// Target. Edge order within a node is insertion order, not semantic order.
type Edge struct {
	Target ident.ID `json:"target"`
	Type   EdgeType `json:"type"`
	Weight float64  `json:"weight"`
}

// ClampWeight returns w clamped into [0, 1], the valid edge weight range.
func ClampWeight(w float64) float64 {
	if w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}

// FindEdge returns the index of the first edge to target of the given
// type, or -1 if none exists.
func FindEdge(edges []Edge, target ident.ID, t EdgeType) int {
	for i, e := range edges {
		if e.Target == target && e.Type == t {
			return i
		}
	}
	return -1
}
