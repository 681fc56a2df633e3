package retrieval

import "github.com/yantra-mind/memoryd/core/ident"

// applySpreading propagates activation from the top-S current candidates
// along their outgoing edges, bounded depth and per-hop decay: seeds are the spreadingSeeds highest-relevance candidates so
// far. Activation reaching a node already among candidates adds to its
// relevance; activation reaching a node not yet present introduces it as
// a new candidate (a node can be recalled purely through graph proximity
// to a strong dense/sparse hit).
func (p *Pipeline) applySpreading(candidates []Recall, hopDecay float64) []Recall {
	if len(candidates) == 0 {
		return candidates
	}
	sortByRelevance(candidates)
	seedCount := spreadingSeeds
	if seedCount > len(candidates) {
		seedCount = len(candidates)
	}

	byID := make(map[ident.ID]int, len(candidates))
	for i, c := range candidates {
		byID[c.ID] = i
	}

	type frontierNode struct {
		id         ident.ID
		activation float64
	}
	frontier := make([]frontierNode, seedCount)
	for i := 0; i < seedCount; i++ {
		frontier[i] = frontierNode{id: candidates[i].ID, activation: candidates[i].Relevance}
	}

	visited := make(map[ident.ID]struct{}, seedCount)
	for _, f := range frontier {
		visited[f.id] = struct{}{}
	}

	for depth := 0; depth < spreadingDepth && len(frontier) > 0; depth++ {
		var next []frontierNode
		for _, f := range frontier {
			n, err := p.store.Get(f.id)
			if err != nil {
				continue
			}
			hopActivation := f.activation * hopDecay
			if hopActivation <= 0 {
				continue
			}
			for _, e := range n.Edges {
				contribution := hopActivation * e.Weight
				if idx, ok := byID[e.Target]; ok {
					candidates[idx].Relevance += contribution
				} else if _, seen := visited[e.Target]; !seen {
					target, err := p.store.Get(e.Target)
					if err != nil || target.Quarantined {
						continue
					}
					candidates = append(candidates, Recall{ID: e.Target, Node: target, Relevance: contribution})
					byID[e.Target] = len(candidates) - 1
				}
				if _, seen := visited[e.Target]; !seen {
					visited[e.Target] = struct{}{}
					next = append(next, frontierNode{id: e.Target, activation: contribution})
				}
			}
		}
		frontier = next
	}

	return candidates
}
