// Package graphalgo implements the graph-shaped queries: approximate
// personalized PageRank via local push over forward edges, a
// Hawkes-weighted recency timeline, and causal-chain backward BFS over
// the reverse-edge index. None of these own node data; they read nodes
// (and, for causal chains, the reverse-edge index) and return ids plus
// scores.
package graphalgo

import (
	"github.com/emirpasic/gods/v2/queues/priorityqueue"

	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/model"
)

// PPRResult is one node's share of personalized PageRank mass.
type PPRResult struct {
	ID   ident.ID
	Mass float64
}

// NodeLookup resolves an id to its live edges, the minimal contract PPR
// and causal-chain search need from the store without depending on the
// store package directly (keeps graphalgo reusable/testable in
// isolation).
type NodeLookup interface {
	Get(id ident.ID) (*model.Node, error)
}

// LocalPushPPR runs the Anderson-Chung-Lang local-push approximation of
// personalized PageRank seeded at seeds (weights should sum to ~1),
// walking forward along each node's outgoing edges. alpha is the
// teleport probability back to the seed distribution; push stops once
// every node's residual mass is below epsilon.
func LocalPushPPR(lookup NodeLookup, seeds map[ident.ID]float64, alpha, epsilon float64, k int) []PPRResult {
	if alpha <= 0 {
		alpha = 0.15
	}
	if epsilon <= 0 {
		epsilon = 1e-6
	}

	p := make(map[ident.ID]float64, len(seeds))
	r := make(map[ident.ID]float64, len(seeds))
	for id, w := range seeds {
		r[id] = w
	}

	// outDegree is approximated via each node's own forward edge list,
	// fetched lazily and cached, since local push walks forward along
	// out-edges from whichever node currently holds residual mass.
	outWeight := make(map[ident.ID]float64)
	outWeightOf := func(id ident.ID) float64 {
		if w, ok := outWeight[id]; ok {
			return w
		}
		n, err := lookup.Get(id)
		w := 0.0
		if err == nil {
			for _, e := range n.Edges {
				w += e.Weight
			}
		}
		outWeight[id] = w
		return w
	}

	for {
		var pushID ident.ID
		maxResidual := epsilon
		found := false
		for id, res := range r {
			if res > maxResidual {
				maxResidual = res
				pushID = id
				found = true
			}
		}
		if !found {
			break
		}

		res := r[pushID]
		p[pushID] += alpha * res
		remaining := (1 - alpha) * res
		r[pushID] = 0

		n, err := lookup.Get(pushID)
		if err != nil || len(n.Edges) == 0 {
			continue
		}
		total := outWeightOf(pushID)
		if total == 0 {
			continue
		}
		for _, e := range n.Edges {
			r[e.Target] += remaining * (e.Weight / total)
		}
	}

	pq := priorityqueue.NewWith[PPRResult](func(a, b PPRResult) int {
		switch {
		case a.Mass > b.Mass:
			return -1
		case a.Mass < b.Mass:
			return 1
		default:
			return 0
		}
	})
	for id, mass := range p {
		if mass > 0 {
			pq.Enqueue(PPRResult{ID: id, Mass: mass})
		}
	}

	out := make([]PPRResult, 0, k)
	for !pq.Empty() && len(out) < k {
		v, _ := pq.Dequeue()
		out = append(out, v)
	}
	return out
}
