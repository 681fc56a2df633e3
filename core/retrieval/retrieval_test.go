package retrieval

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yantra-mind/memoryd/core/embedding"
	"github.com/yantra-mind/memoryd/core/feedback"
	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/model"
	"github.com/yantra-mind/memoryd/core/session"
	"github.com/yantra-mind/memoryd/core/store"
	"github.com/yantra-mind/memoryd/core/vector"
)

const testDim = 4

// stubProvider returns a deterministic unit vector per distinct input
// text, so cosine similarity between "cat" and "cats" is high and between
// "cat" and "rocket" is low, without pulling in a real model.
type stubProvider struct{}

func (stubProvider) Dim() int { return testDim }

func (stubProvider) Embed(_ context.Context, text string) (vector.Vector, error) {
	v := vector.New(testDim)
	switch {
	case len(text) > 0 && (text[0] == 'c'):
		v[0], v[1] = 1, 0.2
	default:
		v[2], v[3] = 1, 0.2
	}
	return v.Normalize(), nil
}

func newTestPipeline(t *testing.T) (*Pipeline, *store.Store, *ident.FakeClock) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "memoryd"), store.Options{Dim: testDim})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	emb := embedding.New(stubProvider{}, 0)
	sess := session.New(10)
	clock := ident.NewFakeClock(1_000_000)
	fb := feedback.New(16)
	return New(st, emb, sess, fb, clock), st, clock
}

func remember(t *testing.T, st *store.Store, emb *embedding.Embedder, clock *ident.FakeClock, text string) *model.Node {
	t.Helper()
	n := model.NewNode(model.KindEpisode, []byte(text), clock.NowMS())
	v, err := emb.Embed(context.Background(), text)
	require.NoError(t, err)
	n.Embedding = v
	require.NoError(t, st.Remember(n))
	return n
}

func TestRecallHybridFusesRankings(t *testing.T) {
	p, st, clock := newTestPipeline(t)
	emb := embedding.New(stubProvider{}, 0)

	cat := remember(t, st, emb, clock, "cat cat cat")
	rocket := remember(t, st, emb, clock, "rocket launch")
	_ = rocket

	results, err := p.Recall(context.Background(), "cat", Options{Limit: 5, Mode: ModeHybrid})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, cat.ID, results[0].ID)
}

func TestRecallRespectsTagFilter(t *testing.T) {
	p, st, clock := newTestPipeline(t)
	emb := embedding.New(stubProvider{}, 0)

	cat := remember(t, st, emb, clock, "cat napping")
	cat.AddTag("animal")
	require.NoError(t, st.AddTag(cat.ID, "animal"))
	remember(t, st, emb, clock, "cat shaped rocket")

	results, err := p.Recall(context.Background(), "cat", Options{Limit: 5, Mode: ModeHybrid, Tag: "animal"})
	require.NoError(t, err)
	for _, r := range results {
		assert.True(t, r.Node.HasTag("animal"))
	}
}

func TestApplyHebbianStrengthensPairwiseEdges(t *testing.T) {
	p, st, clock := newTestPipeline(t)
	emb := embedding.New(stubProvider{}, 0)

	a := remember(t, st, emb, clock, "cat a")
	b := remember(t, st, emb, clock, "cat b")

	p.applyHebbian([]Recall{{ID: a.ID}, {ID: b.ID}}, hebbianDelta)

	na, err := st.Get(a.ID)
	require.NoError(t, err)
	idx := model.FindEdge(na.Edges, b.ID, model.EdgeHebbian)
	require.GreaterOrEqual(t, idx, 0)
	assert.InDelta(t, hebbianDelta, na.Edges[idx].Weight, 1e-9)

	// A second co-activation strengthens the same edge further rather
	// than duplicating it.
	p.applyHebbian([]Recall{{ID: a.ID}, {ID: b.ID}}, hebbianDelta)
	na, err = st.Get(a.ID)
	require.NoError(t, err)
	idx = model.FindEdge(na.Edges, b.ID, model.EdgeHebbian)
	require.GreaterOrEqual(t, idx, 0)
	assert.InDelta(t, 2*hebbianDelta, na.Edges[idx].Weight, 1e-9)
}

func TestApplyLateralInhibitionDropsWeakCandidates(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	candidates := []Recall{
		{ID: ident.New(), Relevance: 1.0},
		{ID: ident.New(), Relevance: 0.9},
		{ID: ident.New(), Relevance: 0.001},
	}
	out := p.applyLateralInhibition(candidates)
	assert.LessOrEqual(t, len(out), len(candidates))
	for _, c := range out {
		assert.Greater(t, c.Relevance, 0.0)
	}
}

func TestApplyLateralInhibitionGatesOnSimilarity(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	withEmb := func(emb vector.Vector, rel float64) Recall {
		n := &model.Node{ID: ident.New(), Embedding: emb}
		return Recall{ID: n.ID, Node: n, Relevance: rel}
	}
	leader := withEmb(vector.Vector{1, 0, 0, 0}, 1.0)
	similar := withEmb(vector.Vector{1, 0.05, 0, 0}, 0.9)
	unrelated := withEmb(vector.Vector{0, 1, 0, 0}, 0.9)

	out := p.applyLateralInhibition([]Recall{leader, similar, unrelated})

	rel := make(map[ident.ID]float64, len(out))
	for _, c := range out {
		rel[c.ID] = c.Relevance
	}
	require.Contains(t, rel, similar.ID)
	require.Contains(t, rel, unrelated.ID)
	assert.Less(t, rel[similar.ID], 0.9, "a near-duplicate of the leader is suppressed")
	assert.InDelta(t, 0.9, rel[unrelated.ID], 1e-9, "an unrelated candidate keeps its relevance")
}

func TestForgetCascadeAndRewire(t *testing.T) {
	p, st, clock := newTestPipeline(t)
	emb := embedding.New(stubProvider{}, 0)

	a := remember(t, st, emb, clock, "cat cause")
	b := remember(t, st, emb, clock, "cat middle")
	c := remember(t, st, emb, clock, "cat effect")

	require.NoError(t, st.Connect(a.ID, b.ID, model.EdgeCauses, 0.9))
	require.NoError(t, st.Connect(b.ID, c.ID, model.EdgeCauses, 0.8))

	require.NoError(t, p.Forget(b.ID, ForgetOptions{Cascade: true, Rewire: true, CascadeStrength: 0.2}))

	_, err := st.Get(b.ID)
	assert.Error(t, err)

	na, err := st.Get(a.ID)
	require.NoError(t, err)
	idx := model.FindEdge(na.Edges, c.ID, model.EdgeHebbian)
	assert.GreaterOrEqual(t, idx, 0, "rewire should bridge a -> c after b is forgotten")
}
