package dynamics

import (
	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/model"
	"github.com/yantra-mind/memoryd/core/vector"
)

const (
	// attractorMinConfidence and attractorMinDegree qualify a node as an
	// attractor: high effective confidence plus a dense local
	// neighborhood.
	attractorMinConfidence = 0.8
	attractorMinDegree     = 4

	// basinSimilarity is the minimum cosine between a neighbor and the
	// attractor for the neighbor to count as part of its basin.
	basinSimilarity = 0.6

	// basinLimit bounds basin size so a hub node cannot drag the whole
	// store toward itself in one settle pass.
	basinLimit = 32

	// maxSettleStep caps the L2 norm of one settle step per member.
	maxSettleStep = 0.05
)

// Attractor is a high-confidence, well-connected node together with the
// basin of similar neighbors it pulls on.
type Attractor struct {
	ID    ident.ID
	Basin []ident.ID
}

// FindAttractors scans live nodes for attractor candidates and computes
// each one's basin: graph neighbors (either direction) whose embedding
// cosine against the attractor is at least basinSimilarity.
func (c *Cycle) FindAttractors() []Attractor {
	type candidate struct {
		id  ident.ID
		n   *model.Node
		emb vector.Vector
	}
	var candidates []candidate
	c.store.Range(func(id ident.ID, n *model.Node) {
		emb := n.EffectiveEmbedding()
		if len(emb) == 0 {
			return
		}
		degree := len(n.Edges) + len(c.store.Indices.ReverseEdge.Incoming(id))
		if n.Confidence.Effective() >= attractorMinConfidence && degree >= attractorMinDegree {
			candidates = append(candidates, candidate{id: id, n: n, emb: emb})
		}
	})

	out := make([]Attractor, 0, len(candidates))
	for _, cand := range candidates {
		basin := c.basinOf(cand.id, cand.n, cand.emb)
		out = append(out, Attractor{ID: cand.id, Basin: basin})
	}
	return out
}

func (c *Cycle) basinOf(id ident.ID, n *model.Node, emb vector.Vector) []ident.ID {
	seen := map[ident.ID]struct{}{id: {}}
	var basin []ident.ID

	consider := func(nbID ident.ID) {
		if len(basin) >= basinLimit {
			return
		}
		if _, ok := seen[nbID]; ok {
			return
		}
		seen[nbID] = struct{}{}
		nb, err := c.store.Get(nbID)
		if err != nil || nb.Quarantined {
			return
		}
		nbEmb := nb.EffectiveEmbedding()
		if len(nbEmb) != len(emb) {
			return
		}
		if emb.Cosine(nbEmb) >= basinSimilarity {
			basin = append(basin, nbID)
		}
	}

	for _, e := range n.Edges {
		consider(e.Target)
	}
	for _, in := range c.store.Indices.ReverseEdge.Incoming(id) {
		consider(in.Source)
	}
	return basin
}

// RunAttractorDynamics pulls every attractor's basin members a fraction
// settleStrength of the way toward the attractor's embedding, with each
// member's step capped at maxSettleStep in L2 norm. Only invoked
// explicitly, never as part of the periodic cycle. Returns the number of
// member embeddings moved.
func (c *Cycle) RunAttractorDynamics(settleStrength float64) int {
	if settleStrength <= 0 {
		return 0
	}
	if settleStrength > 1 {
		settleStrength = 1
	}

	moved := 0
	for _, att := range c.FindAttractors() {
		attNode, err := c.store.Get(att.ID)
		if err != nil {
			continue
		}
		attEmb := attNode.EffectiveEmbedding()
		if len(attEmb) == 0 {
			continue
		}
		for _, memberID := range att.Basin {
			member, err := c.store.Get(memberID)
			if err != nil || len(member.Embedding) != len(attEmb) {
				continue // only full-precision (Hot) embeddings settle
			}
			s := settleStrength
			if dist := attEmb.L2(member.Embedding); dist > 0 && s*dist > maxSettleStep {
				s = maxSettleStep / dist
			}
			blended := member.Embedding.Scale(float32(1 - s)).Add(attEmb.Scale(float32(s)))
			if err := c.store.ApplyEmbedding(memberID, blended); err == nil {
				moved++
			}
		}
	}
	return moved
}
