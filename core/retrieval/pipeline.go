// Package retrieval implements the hybrid semantic/lexical/graph
// retrieval pipeline: dense + sparse search with RRF fusion,
// priming from session context, spreading activation, lateral
// inhibition, and Hebbian co-activation strengthening. It also owns
// forget(), since cascade/rewire is the retrieval-adjacent "remove a
// node and repair the graph around it" operation. One method per named
// sub-step, run in a fixed order under the store's lock discipline.
package retrieval

import (
	"context"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/yantra-mind/memoryd/core/embedding"
	"github.com/yantra-mind/memoryd/core/feedback"
	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/model"
	"github.com/yantra-mind/memoryd/core/session"
	"github.com/yantra-mind/memoryd/core/store"
	"github.com/yantra-mind/memoryd/core/vector"
)

// Mode selects which half(s) of hybrid search a recall call uses.
type Mode string

const (
	ModeDense  Mode = "dense"
	ModeSparse Mode = "sparse"
	ModeHybrid Mode = "hybrid"
)

// rrfK0 is the standard reciprocal-rank-fusion rank offset.
const rrfK0 = 60

// primingBoostCap is the maximum score addition priming may contribute to
// a candidate.
const primingBoostCap = 0.15

// Spreading activation starts from the spreadingSeeds highest-ranked
// candidates and walks edges to spreadingDepth hops, attenuating by
// spreadingHopDecay per hop.
const (
	spreadingSeeds     = 5
	spreadingDepth     = 2
	spreadingHopDecay  = 0.5
)

// Hebbian learning strengthens pairwise edges among the first
// min(hebbianSeedCount, returned) results by hebbianDelta per
// co-retrieval.
const (
	hebbianSeedCount = 5
	hebbianDelta     = 0.04
)

// Recall is one scored hit returned from the retrieval pipeline.
type Recall struct {
	ID        ident.ID
	Node      *model.Node
	Relevance float64
}

// Options configures a single recall()/resonate()/full_resonate() call.
type Options struct {
	Limit     int
	Threshold float64
	Mode      Mode
	Zoom      int // selects the ANN fanout multiplier, fanout in [3,10]
	Tag       string
	Primed    bool
	Learn     bool
	Compete   bool
	ExcludeTags []string

	// SpreadStrength overrides the per-hop activation decay; zero keeps
	// the default. HebbianDelta overrides the per-co-retrieval edge
	// strengthening; zero keeps the default.
	SpreadStrength float64
	HebbianDelta   float64
}

func (o Options) spreadStrength() float64 {
	if o.SpreadStrength > 0 {
		return o.SpreadStrength
	}
	return spreadingHopDecay
}

func (o Options) hebbianDelta() float64 {
	if o.HebbianDelta > 0 {
		return o.HebbianDelta
	}
	return hebbianDelta
}

// Pipeline wires the store, embedder, and session context together into
// the retrieval operations.
type Pipeline struct {
	store    *store.Store
	embedder *embedding.Embedder
	session  *session.Context
	feedback *feedback.Queue
	clock    ident.Clock
}

// New builds a retrieval Pipeline over the given components.
func New(st *store.Store, emb *embedding.Embedder, sess *session.Context, fb *feedback.Queue, clock ident.Clock) *Pipeline {
	return &Pipeline{store: st, embedder: emb, session: sess, feedback: fb, clock: clock}
}

// fanoutFor maps a zoom level to the ANN candidate-fanout multiplier:
// zoom<=0 is the tightest (fanout 3), zoom>=4 the widest (fanout 10).
func fanoutFor(zoom int) int {
	switch {
	case zoom <= 0:
		return 3
	case zoom == 1:
		return 4
	case zoom == 2:
		return 6
	case zoom == 3:
		return 8
	default:
		return 10
	}
}

// Recall is the core hybrid retrieval operation.
func (p *Pipeline) Recall(ctx context.Context, queryText string, opts Options) ([]Recall, error) {
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	k := opts.Limit * fanoutFor(opts.Zoom)

	var queryVec vector.Vector
	if opts.Mode != ModeSparse {
		v, err := p.embedder.Embed(ctx, queryText)
		if err == nil {
			queryVec = v
		}
		// An embedder failure degrades Hybrid/Dense gracefully to the
		// sparse half rather than failing the whole recall.
	}

	scores := make(map[ident.ID]float64)
	switch opts.Mode {
	case ModeSparse:
		p.addSparse(queryText, k, scores)
	case ModeDense:
		p.addDense(queryVec, k, opts.Threshold, scores)
	default: // ModeHybrid and zero-value
		denseRank := p.rankDense(queryVec, k, opts.Threshold)
		sparseRank := p.rankSparse(queryText, k)
		fuseRRF(denseRank, sparseRank, scores)
	}

	candidates := p.materialize(scores)
	if opts.Tag != "" {
		candidates = filterByTag(candidates, opts.Tag)
	}
	if p.session != nil {
		if realm := p.session.Realm(); realm != "" {
			candidates = filterByRealm(candidates, realm)
		}
	}
	if len(opts.ExcludeTags) > 0 {
		candidates = excludeTags(candidates, opts.ExcludeTags)
	}

	if opts.Primed {
		p.applyPriming(candidates, queryVec)
	}

	candidates = p.applySpreading(candidates, opts.spreadStrength())

	sortByRelevance(candidates)

	if opts.Compete {
		candidates = p.applyLateralInhibition(candidates)
	}

	sortByRelevance(candidates)
	candidates = aboveThreshold(candidates, opts.Threshold)
	if len(candidates) > opts.Limit {
		candidates = candidates[:opts.Limit]
	}

	p.recordAccess(candidates)
	if opts.Learn {
		p.applyHebbian(candidates, opts.hebbianDelta())
	}

	return candidates, nil
}

func (p *Pipeline) addDense(query vector.Vector, k int, threshold float64, scores map[ident.ID]float64) {
	if query == nil {
		return
	}
	for _, r := range p.store.Indices.ANN.Search(query, k, threshold) {
		scores[r.ID] = r.Cosine
	}
}

func (p *Pipeline) addSparse(queryText string, k int, scores map[ident.ID]float64) {
	for _, r := range p.store.Indices.BM25.Search(queryText, k) {
		scores[r.ID] = r.Score
	}
}

func (p *Pipeline) rankDense(query vector.Vector, k int, threshold float64) []ident.ID {
	if query == nil {
		return nil
	}
	res := p.store.Indices.ANN.Search(query, k, threshold)
	out := make([]ident.ID, len(res))
	for i, r := range res {
		out[i] = r.ID
	}
	return out
}

func (p *Pipeline) rankSparse(queryText string, k int) []ident.ID {
	res := p.store.Indices.BM25.Search(queryText, k)
	out := make([]ident.ID, len(res))
	for i, r := range res {
		out[i] = r.ID
	}
	return out
}

// fuseRRF combines the dense and sparse rankings with reciprocal-rank
// fusion: score = sum 1/(k0 + rank_i) across whichever ranked lists a
// candidate appears in.
func fuseRRF(dense, sparse []ident.ID, scores map[ident.ID]float64) {
	for rank, id := range dense {
		scores[id] += 1.0 / float64(rrfK0+rank+1)
	}
	for rank, id := range sparse {
		scores[id] += 1.0 / float64(rrfK0+rank+1)
	}
}

func (p *Pipeline) materialize(scores map[ident.ID]float64) []Recall {
	out := make([]Recall, 0, len(scores))
	for id, score := range scores {
		n, err := p.store.Get(id)
		if err != nil || n.Quarantined {
			continue
		}
		out = append(out, Recall{ID: id, Node: n, Relevance: score})
	}
	return out
}

func filterByTag(in []Recall, tag string) []Recall {
	out := in[:0]
	for _, r := range in {
		if r.Node.HasTag(tag) {
			out = append(out, r)
		}
	}
	return out
}

// filterByRealm keeps candidates with no realm provenance (shared
// memory) and candidates whose realm matches the session's scope; nodes
// provenanced to a different realm are excluded.
func filterByRealm(in []Recall, realm string) []Recall {
	out := in[:0]
	for _, r := range in {
		if p := r.Node.Provenance; p == nil || p.Realm == "" || p.Realm == realm {
			out = append(out, r)
		}
	}
	return out
}

func excludeTags(in []Recall, exclude []string) []Recall {
	ex := mapset.NewSet(exclude...)
	out := in[:0]
	for _, r := range in {
		nodeTags := mapset.NewSet(r.Node.TagList()...)
		if nodeTags.Intersect(ex).Cardinality() == 0 {
			out = append(out, r)
		}
	}
	return out
}

func sortByRelevance(in []Recall) {
	sort.Slice(in, func(i, j int) bool { return in[i].Relevance > in[j].Relevance })
}

func aboveThreshold(in []Recall, threshold float64) []Recall {
	out := in[:0]
	for _, r := range in {
		if r.Relevance >= threshold {
			out = append(out, r)
		}
	}
	return out
}

// recordAccess advances tau_accessed for every returned result *after*
// scoring and queues a Used
// feedback event per result for the next dynamics cycle to fold in.
func (p *Pipeline) recordAccess(results []Recall) {
	now := p.clock.NowMS()
	for _, r := range results {
		p.store.Touch(r.ID, now)
		p.feedback.Push(feedback.Event{ID: r.ID, Kind: feedback.KindUsed, Magnitude: feedback.DefaultMagnitude(feedback.KindUsed)})
	}
}
