package graphalgo

import (
	"math"

	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/index"
	"github.com/yantra-mind/memoryd/core/model"
)

// CausalChain is one simple path of Causes/Supports edges ending at the
// query's effect node, ranked by the geometric mean of its edge weights.
type CausalChain struct {
	// Path runs source-to-effect: Path[0] is the earliest cause,
	// Path[len-1] is the effect node passed to FindCausalChains.
	Path       []ident.ID
	Confidence float64
}

// isCausalEdge reports whether a causal chain may traverse an edge of
// type t.
func isCausalEdge(t model.EdgeType) bool {
	return t == model.EdgeCauses || t == model.EdgeSupports
}

// FindCausalChains walks backward from effectID along Causes/Supports
// reverse edges, up to maxDepth hops, yielding the maximal simple paths
// whose geometric-mean edge weight is >= minConfidence and whose node
// order respects temporal order (source.tau_created <= target.tau_created),
// ranked by path confidence descending. A path is emitted only when the
// backward walk cannot extend it further — a prefix of a longer
// qualifying chain is subsumed by that chain, not reported alongside it.
func FindCausalChains(rev *index.ReverseIndex, lookup NodeLookup, effectID ident.ID, maxDepth int, minConfidence float64) ([]CausalChain, error) {
	effect, err := lookup.Get(effectID)
	if err != nil {
		return nil, err
	}

	var chains []CausalChain
	var walk func(current ident.ID, currentCreated int64, path []ident.ID, weights []float64, depth int)
	walk = func(current ident.ID, currentCreated int64, path []ident.ID, weights []float64, depth int) {
		extended := false
		if depth < maxDepth {
			for _, in := range rev.Incoming(current) {
				if !isCausalEdge(in.Type) {
					continue
				}
				if onPath(path, in.Source) {
					continue // no cycles in a simple path
				}
				src, err := lookup.Get(in.Source)
				if err != nil {
					continue
				}
				if src.TauCreated > currentCreated {
					continue // violates temporal order
				}

				nextWeights := append(append([]float64(nil), weights...), in.Weight)
				if geometricMean(nextWeights) < minConfidence {
					continue // pruned; the current path stays maximal
				}

				extended = true
				nextPath := append(append([]ident.ID(nil), path...), in.Source)
				walk(in.Source, src.TauCreated, nextPath, nextWeights, depth+1)
			}
		}
		if extended || len(weights) == 0 {
			return
		}
		conf := geometricMean(weights)
		if conf < minConfidence {
			return
		}
		full := make([]ident.ID, len(path))
		for i, id := range path {
			full[len(path)-1-i] = id
		}
		chains = append(chains, CausalChain{Path: full, Confidence: conf})
	}

	walk(effectID, effect.TauCreated, []ident.ID{effectID}, nil, 0)

	sortChainsByConfidence(chains)
	return chains, nil
}

func onPath(path []ident.ID, id ident.ID) bool {
	for _, p := range path {
		if p == id {
			return true
		}
	}
	return false
}

func geometricMean(weights []float64) float64 {
	if len(weights) == 0 {
		return 0
	}
	product := 1.0
	for _, w := range weights {
		if w <= 0 {
			return 0
		}
		product *= w
	}
	return math.Pow(product, 1/float64(len(weights)))
}

func sortChainsByConfidence(chains []CausalChain) {
	for i := 1; i < len(chains); i++ {
		for j := i; j > 0 && chains[j].Confidence > chains[j-1].Confidence; j-- {
			chains[j], chains[j-1] = chains[j-1], chains[j]
		}
	}
}
