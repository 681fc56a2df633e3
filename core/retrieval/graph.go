package retrieval

import (
	"github.com/yantra-mind/memoryd/core/graphalgo"
	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/model"
	"github.com/yantra-mind/memoryd/core/vector"
)

// PPR runs personalized PageRank seeded at the given node weights and
// returns the top k nodes by mass.
func (p *Pipeline) PPR(seeds map[ident.ID]float64, alpha, epsilon float64, k int) []graphalgo.PPRResult {
	return graphalgo.LocalPushPPR(p.store, seeds, alpha, epsilon, k)
}

// HawkesTimeline scores nodes in the last `hours` window by recency
// using a self-exciting exponential kernel. The access-time index hands
// back only the window, so cost scales with the window's population, not
// the store.
func (p *Pipeline) HawkesTimeline(nowMS int64, hours, limit int) []graphalgo.TimelineResult {
	if hours <= 0 {
		hours = 24
	}
	fromMS := nowMS - int64(hours)*3_600_000
	ids := p.store.Indices.Access.Since(fromMS)
	nodes := make([]*model.Node, 0, len(ids))
	for _, id := range ids {
		if n, err := p.store.Get(id); err == nil && !n.Quarantined {
			nodes = append(nodes, n)
		}
	}
	return graphalgo.HawkesTimeline(nodes, nowMS, hours, limit)
}

// FindCausalChains walks backward from effectID along Causes/Supports
// edges, returning ranked simple paths.
func (p *Pipeline) FindCausalChains(effectID ident.ID, maxDepth int, minConfidence float64) ([]graphalgo.CausalChain, error) {
	return graphalgo.FindCausalChains(p.store.Indices.ReverseEdge, p.store, effectID, maxDepth, minConfidence)
}

// LSHFindSimilar returns candidate near-duplicate node ids sharing an
// LSH bucket with v, for the lsh_find_similar operation:
// an approximate pre-filter, not a ranked result, so callers typically
// re-score candidates with exact cosine before presenting them.
func (p *Pipeline) LSHFindSimilar(v vector.Vector) []ident.ID {
	return p.store.Indices.LSH.Candidates(v)
}
