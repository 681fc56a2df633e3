package retrieval

import "github.com/yantra-mind/memoryd/core/vector"

// applyLateralInhibition runs a small fixed number of competition passes
// over the candidate set: each pass, every candidate suppresses the
// lower-ranked candidates that are too similar to it, by
// rel_j -= strength * cosine(v_i, v_j) * rel_i when the pairwise cosine
// clears the similarity threshold. Candidates about unrelated topics do
// not compete. After each pass, anything whose relevance falls below
// inhibitionFloor of the current leader is dropped.
const (
	inhibitionPasses   = 3
	inhibitionFloor    = 0.05
	inhibitionStrength = 0.1

	// inhibitionSimilarityThreshold is the minimum pairwise cosine for
	// two candidates to count as competing for the same slot.
	inhibitionSimilarityThreshold = 0.7
)

func (p *Pipeline) applyLateralInhibition(candidates []Recall) []Recall {
	if len(candidates) < 2 {
		return candidates
	}

	for pass := 0; pass < inhibitionPasses; pass++ {
		sortByRelevance(candidates)
		top := candidates[0].Relevance
		if top <= 0 {
			break
		}
		for i := 0; i < len(candidates)-1; i++ {
			vi := candidateEmbedding(candidates[i])
			relI := candidates[i].Relevance
			if len(vi) == 0 || relI <= 0 {
				continue
			}
			for j := i + 1; j < len(candidates); j++ {
				vj := candidateEmbedding(candidates[j])
				if len(vj) != len(vi) {
					continue
				}
				cos := vi.Cosine(vj)
				if cos < inhibitionSimilarityThreshold {
					continue
				}
				candidates[j].Relevance -= inhibitionStrength * cos * relI
				if candidates[j].Relevance < 0 {
					candidates[j].Relevance = 0
				}
			}
		}
		floor := top * inhibitionFloor
		kept := candidates[:0]
		for _, c := range candidates {
			if c.Relevance >= floor {
				kept = append(kept, c)
			}
		}
		candidates = kept
		if len(candidates) < 2 {
			break
		}
	}
	return candidates
}

func candidateEmbedding(r Recall) vector.Vector {
	if r.Node == nil {
		return nil
	}
	return r.Node.EffectiveEmbedding()
}
