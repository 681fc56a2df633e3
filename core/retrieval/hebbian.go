package retrieval

import (
	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/model"
)

// applyHebbian strengthens pairwise Hebbian edges among the first
// min(hebbianSeedCount, len(results)) candidates: nodes recalled together
// are nodes that fire together.
// Edges are symmetric and created if absent, clamped at weight 1.0.
func (p *Pipeline) applyHebbian(results []Recall, delta float64) {
	n := hebbianSeedCount
	if n > len(results) {
		n = len(results)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			p.strengthenHebbian(results[i].ID, results[j].ID, delta)
			p.strengthenHebbian(results[j].ID, results[i].ID, delta)
		}
	}
}

func (p *Pipeline) strengthenHebbian(source, target ident.ID, delta float64) {
	current := 0.0
	if n, err := p.store.Get(source); err == nil {
		if i := model.FindEdge(n.Edges, target, model.EdgeHebbian); i >= 0 {
			current = n.Edges[i].Weight
		}
	}
	_ = p.store.Connect(source, target, model.EdgeHebbian, current+delta)
}
