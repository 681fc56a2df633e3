package engine

import (
	"context"

	"github.com/yantra-mind/memoryd/core/apperr"
	"github.com/yantra-mind/memoryd/core/dynamics"
	"github.com/yantra-mind/memoryd/core/graphalgo"
	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/retrieval"
	"github.com/yantra-mind/memoryd/core/vector"
)

// pprSeedCount is how many ANN hits seed the personalization vector of a
// PPR query.
const pprSeedCount = 8

// Recall runs the hybrid retrieval pipeline.
func (e *Engine) Recall(ctx context.Context, query string, opts retrieval.Options) ([]retrieval.Recall, error) {
	return e.pipeline.Recall(ctx, query, opts)
}

// Resonate is recall with priming off and spreading strength exposed.
func (e *Engine) Resonate(ctx context.Context, query string, k int, spreadStrength float64, learn bool, hebbianDelta float64) ([]retrieval.Recall, error) {
	return e.pipeline.Resonate(ctx, query, k, spreadStrength, learn, hebbianDelta)
}

// FullResonate runs priming, spreading, competition, and Hebbian learning
// in one pass.
func (e *Engine) FullResonate(ctx context.Context, query string, k int, spreadStrength, hebbianDelta float64, excludeTags []string) ([]retrieval.Recall, error) {
	return e.pipeline.FullResonate(ctx, query, k, spreadStrength, hebbianDelta, excludeTags)
}

// PPRQuery embeds the query, seeds a personalization vector from the
// closest nodes, and runs approximate personalized PageRank to top-k.
func (e *Engine) PPRQuery(ctx context.Context, query string, k int, epsilon float64) ([]graphalgo.PPRResult, error) {
	qv, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	hits := e.store.Indices.ANN.Search(qv, pprSeedCount, 0)
	if len(hits) == 0 {
		return nil, nil
	}
	var total float64
	for _, h := range hits {
		if h.Cosine > 0 {
			total += h.Cosine
		}
	}
	if total == 0 {
		return nil, nil
	}
	seeds := make(map[ident.ID]float64, len(hits))
	for _, h := range hits {
		if h.Cosine > 0 {
			seeds[h.ID] = h.Cosine / total
		}
	}
	return e.pipeline.PPR(seeds, 0, epsilon, k), nil
}

// HawkesTimeline scores recently accessed nodes by a self-exciting
// recency kernel over the last hours.
func (e *Engine) HawkesTimeline(hours, limit int) []graphalgo.TimelineResult {
	return e.pipeline.HawkesTimeline(e.clock.NowMS(), hours, limit)
}

// FindCausalChains walks backward from an effect along causal edges.
func (e *Engine) FindCausalChains(effectID ident.ID, maxDepth int, minConfidence float64) ([]graphalgo.CausalChain, error) {
	return e.pipeline.FindCausalChains(effectID, maxDepth, minConfidence)
}

// LSHFindSimilar returns candidate near-duplicates of v, re-scored with
// exact cosine and trimmed to k.
func (e *Engine) LSHFindSimilar(v vector.Vector, k int) ([]retrieval.Recall, error) {
	if err := vector.ValidateDim(v, e.store.Dim()); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err, "query vector rejected")
	}
	var out []retrieval.Recall
	for _, id := range e.pipeline.LSHFindSimilar(v) {
		n, err := e.store.Get(id)
		if err != nil || n.Quarantined {
			continue
		}
		emb := n.EffectiveEmbedding()
		if len(emb) != len(v) {
			continue
		}
		out = append(out, retrieval.Recall{ID: id, Node: n, Relevance: v.Cosine(emb)})
	}
	sortRecalls(out)
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func sortRecalls(in []retrieval.Recall) {
	for i := 1; i < len(in); i++ {
		for j := i; j > 0 && in[j].Relevance > in[j-1].Relevance; j-- {
			in[j], in[j-1] = in[j-1], in[j]
		}
	}
}

// RunAttractorDynamics pulls attractor basins toward their attractors by
// the given settle strength. Explicit-invocation only.
func (e *Engine) RunAttractorDynamics(settleStrength float64) (int, error) {
	if err := e.ensureWritable(); err != nil {
		return 0, err
	}
	return e.cycle.RunAttractorDynamics(settleStrength), nil
}

// RunCycle executes one full dynamics cycle immediately, outside the
// background schedule.
func (e *Engine) RunCycle(ctx context.Context) (dynamics.Report, error) {
	if err := e.ensureWritable(); err != nil {
		return dynamics.Report{}, err
	}
	return e.cycle.Run(ctx), nil
}
