package engine

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yantra-mind/memoryd/core/apperr"
	"github.com/yantra-mind/memoryd/core/config"
	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/model"
	"github.com/yantra-mind/memoryd/core/retrieval"
	"github.com/yantra-mind/memoryd/core/vector"
)

const testDim = 16

// bagProvider embeds text as a normalized bag-of-words vector with a
// trivial plural stem, so related phrases land close together without a
// real model.
type bagProvider struct{}

func (bagProvider) Dim() int { return testDim }

func (bagProvider) Embed(_ context.Context, text string) (vector.Vector, error) {
	v := vector.New(testDim)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.TrimSuffix(w, "s")
		h := 0
		for _, r := range w {
			h = h*31 + int(r)
		}
		v[((h%testDim)+testDim)%testDim]++
	}
	return v.Normalize(), nil
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := config.Defaults()
	cfg.StorePath = filepath.Join(t.TempDir(), "memoryd")
	e, err := New(cfg, Options{
		Provider: bagProvider{},
		Clock:    ident.NewFakeClock(1_000_000),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Stop() })
	return e
}

func TestStoreAndRecall(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	n, err := e.Remember(ctx, RememberInput{Kind: model.KindWisdom, Payload: []byte("Always validate inputs")})
	require.NoError(t, err)

	results, err := e.Recall(ctx, "validate input", retrieval.Options{Limit: 3, Mode: retrieval.ModeDense})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, n.ID, results[0].ID)
	assert.GreaterOrEqual(t, results[0].Relevance, 0.5)
}

func TestHebbianCoActivation(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	a, err := e.Remember(ctx, RememberInput{Kind: model.KindEpisode, Payload: []byte("unit tests catch regressions")})
	require.NoError(t, err)
	b, err := e.Remember(ctx, RememberInput{Kind: model.KindEpisode, Payload: []byte("CI runs unit tests")})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := e.Recall(ctx, "testing unit tests", retrieval.Options{Limit: 5, Mode: retrieval.ModeDense, Learn: true})
		require.NoError(t, err)
	}

	na, err := e.Get(a.ID)
	require.NoError(t, err)
	idx := model.FindEdge(na.Edges, b.ID, model.EdgeHebbian)
	require.GreaterOrEqual(t, idx, 0, "co-retrieval must create a Hebbian edge")
	assert.Greater(t, na.Edges[idx].Weight, 0.05)
}

func TestForgetCascadeRewire(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	mk := func(text string) *model.Node {
		n, err := e.Remember(ctx, RememberInput{Kind: model.KindEpisode, Payload: []byte(text)})
		require.NoError(t, err)
		return n
	}
	a, b, c, d, x := mk("a"), mk("b"), mk("c"), mk("d"), mk("e")

	require.NoError(t, e.Connect(a.ID, c.ID, model.EdgeRelated, 0.8))
	require.NoError(t, e.Connect(b.ID, c.ID, model.EdgeRelated, 0.8))
	require.NoError(t, e.Connect(c.ID, d.ID, model.EdgeRelated, 0.8))
	require.NoError(t, e.Connect(c.ID, x.ID, model.EdgeRelated, 0.8))

	require.NoError(t, e.Forget(c.ID, true, true, 0.2))

	_, err := e.Get(c.ID)
	assert.Error(t, err)

	for _, src := range []*model.Node{a, b} {
		n, err := e.Get(src.ID)
		require.NoError(t, err)
		for _, tgt := range []*model.Node{d, x} {
			idx := model.FindEdge(n.Edges, tgt.ID, model.EdgeHebbian)
			require.GreaterOrEqual(t, idx, 0, "rewire bridges inbound to outbound")
			assert.InDelta(t, 0.1, n.Edges[idx].Weight, 1e-9)
		}
	}
}

func TestConnectMissingTargetMutatesNothing(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	a, err := e.Remember(ctx, RememberInput{Kind: model.KindEpisode, Payload: []byte("a")})
	require.NoError(t, err)

	err = e.Connect(a.ID, ident.New(), model.EdgeRelated, 0.5)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	got, err := e.Get(a.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Edges)
}

func TestRememberRejectsDimensionMismatch(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Remember(context.Background(), RememberInput{
		Kind:      model.KindEpisode,
		Payload:   []byte("bad vector"),
		Embedding: vector.New(testDim + 1),
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestEntityLinkAndFuzzyResolve(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	target, err := e.Remember(ctx, RememberInput{Kind: model.KindTerm, Payload: []byte("the scheduler subsystem")})
	require.NoError(t, err)

	_, err = e.LinkEntity(ctx, "Scheduler", target.ID)
	require.NoError(t, err)

	got, err := e.ResolveEntity("scheduler")
	require.NoError(t, err)
	assert.Equal(t, target.ID, got.ID)

	// A one-character typo still resolves through the fuzzy path.
	got, err = e.ResolveEntity("scheduier")
	require.NoError(t, err)
	assert.Equal(t, target.ID, got.ID)

	_, err = e.ResolveEntity("completely different")
	assert.Error(t, err)
}

func TestLedgerSaveLoadList(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.SaveLedger(ctx, "session-1", "refactored the parser")
	require.NoError(t, err)

	clock := e.Clock().(*ident.FakeClock)
	clock.Advance(1000)
	_, err = e.SaveLedger(ctx, "session-1", "added parser tests")
	require.NoError(t, err)

	got, err := e.LoadLedger("session-1")
	require.NoError(t, err)
	assert.Equal(t, "added parser tests", got.Summary, "load returns the newest generation")

	ledgers := e.ListLedgers()
	require.Len(t, ledgers, 1)
	assert.Equal(t, "session-1", ledgers[0].Name)

	_, err = e.LoadLedger("never-saved")
	assert.Error(t, err)
}

func TestStatsOnEmptyStore(t *testing.T) {
	e := newTestEngine(t)
	s := e.Stats(false)
	assert.Equal(t, 0, s.Nodes)
	assert.Equal(t, 0, s.Edges)
	assert.Equal(t, 1.0, s.Health.Capacity)
	assert.Equal(t, 1.0, s.Health.Semantic)
}

func TestRegenerateEmbeddingsWithoutProviderFails(t *testing.T) {
	cfg := config.Defaults()
	cfg.StorePath = filepath.Join(t.TempDir(), "memoryd")
	// No provider: remember falls back to a flagged zero vector.
	e, err := New(cfg, Options{Clock: ident.NewFakeClock(1_000_000)})
	require.NoError(t, err)
	defer e.Stop()

	n, err := e.Remember(context.Background(), RememberInput{Kind: model.KindEpisode, Payload: []byte("flag me")})
	require.NoError(t, err)
	assert.True(t, n.EmbeddingFlagged)

	_, err = e.RegenerateEmbeddings(context.Background())
	assert.Error(t, err, "still no provider configured")
}

func TestDuplicateTagIsNoOp(t *testing.T) {
	e := newTestEngine(t)
	n, err := e.Remember(context.Background(), RememberInput{Kind: model.KindEpisode, Payload: []byte("tagged")})
	require.NoError(t, err)

	require.NoError(t, e.AddTag(n.ID, "x"))
	require.NoError(t, e.AddTag(n.ID, "x"))

	got, err := e.Get(n.ID)
	require.NoError(t, err)
	assert.Len(t, got.TagList(), 1)
}
