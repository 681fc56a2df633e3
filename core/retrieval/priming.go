package retrieval

import "github.com/yantra-mind/memoryd/core/vector"

// applyPriming adds a small boost to candidates semantically close to the
// current session context's priming vector (intentions, recent
// observations, goal basin), capped at primingBoostCap.
func (p *Pipeline) applyPriming(candidates []Recall, queryVec vector.Vector) {
	if p.session == nil {
		return
	}
	dim := len(queryVec)
	if dim == 0 && len(candidates) > 0 {
		dim = len(candidates[0].Node.EffectiveEmbedding())
	}
	priming := p.session.PrimingVector(dim)
	if priming == nil {
		return
	}
	for i := range candidates {
		emb := candidates[i].Node.EffectiveEmbedding()
		if len(emb) != dim {
			continue
		}
		cos := priming.Cosine(emb)
		if cos <= 0 {
			continue
		}
		candidates[i].Relevance += primingBoostCap * cos
	}
}
