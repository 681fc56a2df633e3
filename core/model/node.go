// Package model defines the node/edge record types, the confidence
// posterior, and the small kind-predicate functions the rest of the engine
// dispatches on.
package model

import (
	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/vector"
)

// Kind tags what role a node plays in memory. Kinds are a closed
// enumeration, not a class hierarchy: behavior that depends on kind is
// expressed as predicate functions below, not virtual methods.
type Kind string

const (
	KindEpisode   Kind = "episode"
	KindWisdom    Kind = "wisdom"
	KindBelief    Kind = "belief"
	KindFailure   Kind = "failure"
	KindQuestion  Kind = "question"
	KindGap       Kind = "gap"
	KindInvariant Kind = "invariant"
	KindIntention Kind = "intention"
	KindThread    Kind = "story_thread"
	KindTerm      Kind = "term"
	KindEntity    Kind = "entity"
	KindSymbol    Kind = "symbol"
)

// Tier is the storage tier a node currently lives in. Exactly one tier
// owns a node at any instant.
type Tier int

const (
	TierHot Tier = iota
	TierWarm
	TierCold
)

func (t Tier) String() string {
	switch t {
	case TierHot:
		return "hot"
	case TierWarm:
		return "warm"
	case TierCold:
		return "cold"
	default:
		return "unknown"
	}
}

// Provenance records where a node came from, when present.
type Provenance struct {
	Source    string `json:"source,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Realm     string `json:"realm,omitempty"`
}

// Node is a unit of memory: text payload, embedding, confidence posterior,
// tags, and outgoing edges.
type Node struct {
	ID      ident.ID `json:"id"`
	Kind    Kind     `json:"kind"`
	Payload []byte   `json:"payload"`

	Embedding        vector.Vector          `json:"embedding,omitempty"`
	EmbeddingQuant   vector.QuantizedVector `json:"embedding_quant,omitempty"`
	EmbeddingFlagged bool                   `json:"embedding_flagged,omitempty"` // zero vector, needs regeneration

	Confidence Confidence `json:"confidence"`
	Epsilon    float64    `json:"epsilon"`
	Delta      float64    `json:"delta"` // per-node decay rate

	TauCreated  int64 `json:"tau_created"`
	TauAccessed int64 `json:"tau_accessed"`

	Tier Tier `json:"tier"`

	Tags map[string]bool `json:"-"`

	Edges []Edge `json:"edges"`

	Provenance *Provenance `json:"provenance,omitempty"`

	// Quarantined marks a node that failed an integrity check and has
	// been removed from the live set pending investigation.
	Quarantined bool `json:"quarantined,omitempty"`
}

// TagList returns the node's tags as a sorted-free slice (order not
// significant), for JSON serialization and display.
func (n *Node) TagList() []string {
	out := make([]string, 0, len(n.Tags))
	for t := range n.Tags {
		out = append(out, t)
	}
	return out
}

// Text returns the decoded textual view of the node's raw payload bytes.
func (n *Node) Text() string {
	return string(n.Payload)
}

// HasTag reports whether the node carries tag t.
func (n *Node) HasTag(t string) bool {
	_, ok := n.Tags[t]
	return ok
}

// AddTag adds t to the node's tag set. Adding a tag already present is a
// no-op.
func (n *Node) AddTag(t string) {
	if n.Tags == nil {
		n.Tags = make(map[string]bool)
	}
	n.Tags[t] = true
}

// RemoveTag removes t from the node's tag set, if present.
func (n *Node) RemoveTag(t string) {
	delete(n.Tags, t)
}

// EffectiveEmbedding returns the best available float32 view of the
// node's embedding regardless of tier: Hot nodes carry a full vector,
// Warm nodes carry only the quantized form.
func (n *Node) EffectiveEmbedding() vector.Vector {
	if len(n.Embedding) > 0 {
		return n.Embedding
	}
	if n.EmbeddingQuant.Dim() > 0 {
		return n.EmbeddingQuant.ToFloat()
	}
	return nil
}

// NewNode constructs a fresh node with default confidence in the Hot
// tier, where every node starts.
func NewNode(kind Kind, payload []byte, nowMS int64) *Node {
	return &Node{
		ID:          ident.New(),
		Kind:        kind,
		Payload:     payload,
		Confidence:  DefaultConfidence(),
		Epsilon:     0,
		Delta:       DefaultDelta,
		TauCreated:  nowMS,
		TauAccessed: nowMS,
		Tier:        TierHot,
		Tags:        make(map[string]bool),
	}
}

// DefaultDelta is the default per-node decay rate applied when none is
// specified at creation.
const DefaultDelta = 0.02
