package dynamics

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yantra-mind/memoryd/core/feedback"
	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/model"
	"github.com/yantra-mind/memoryd/core/store"
	"github.com/yantra-mind/memoryd/core/vector"
)

const testDim = 4

func newTestCycle(t *testing.T, opts Options) (*Cycle, *store.Store, *feedback.Queue, *ident.FakeClock) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "memoryd"), store.Options{Dim: testDim})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	clock := ident.NewFakeClock(1_000_000)
	fb := feedback.New(64)
	if opts.DecayIntervalMS == 0 {
		opts.DecayIntervalMS = 1000
	}
	return New(st, fb, clock, opts), st, fb, clock
}

func addNode(t *testing.T, st *store.Store, clock *ident.FakeClock, kind model.Kind, text string, emb vector.Vector) *model.Node {
	t.Helper()
	n := model.NewNode(kind, []byte(text), clock.NowMS())
	n.Embedding = emb
	require.NoError(t, st.Remember(n))
	return n
}

func TestDecayReducesConfidence(t *testing.T) {
	c, st, _, clock := newTestCycle(t, Options{DecayIntervalMS: 1000, PruneThreshold: 0.01})
	n := addNode(t, st, clock, model.KindEpisode, "fading", vector.Vector{1, 0, 0, 0})
	// An old access keeps the recent-use damping out of the picture.
	muBefore := n.Confidence.Mu

	clock.Advance(10_000)
	rep := c.Run(context.Background())
	assert.Greater(t, rep.Decayed, 0)

	got, err := st.Get(n.ID)
	require.NoError(t, err)
	assert.Less(t, got.Confidence.Mu, muBefore)
}

func TestDecayThenPruneRemovesWeakNode(t *testing.T) {
	c, st, _, clock := newTestCycle(t, Options{DecayIntervalMS: 1000, PruneThreshold: 0.1})

	weak := model.NewNode(model.KindEpisode, []byte("barely believed"), clock.NowMS())
	weak.Confidence = model.Confidence{Mu: 0.2, Sigma2: 0.01, N: 10}
	weak.Delta = 0.5
	require.NoError(t, st.Remember(weak))

	for i := 0; i < 3; i++ {
		clock.Advance(2000)
		c.Run(context.Background())
	}

	_, err := st.Get(weak.ID)
	assert.Error(t, err, "node below the prune threshold must be removed")
}

func TestPruneSparesPinnedKinds(t *testing.T) {
	c, st, _, clock := newTestCycle(t, Options{DecayIntervalMS: 1000, PruneThreshold: 0.5})

	belief := model.NewNode(model.KindBelief, []byte("core belief"), clock.NowMS())
	belief.Confidence = model.Confidence{Mu: 0.1, Sigma2: 0.01, N: 10}
	require.NoError(t, st.Remember(belief))

	clock.Advance(2000)
	c.Run(context.Background())

	_, err := st.Get(belief.ID)
	assert.NoError(t, err, "pinned kinds survive regardless of confidence")
}

func TestFeedbackFlushAggregatesPerNode(t *testing.T) {
	c, st, fb, clock := newTestCycle(t, Options{DecayIntervalMS: 1000, PruneThreshold: 0.01})
	n := addNode(t, st, clock, model.KindEpisode, "useful", vector.Vector{1, 0, 0, 0})
	muBefore := n.Confidence.Mu

	fb.Push(feedback.Event{ID: n.ID, Kind: feedback.KindHelpful, Magnitude: 0.1})
	fb.Push(feedback.Event{ID: n.ID, Kind: feedback.KindHelpful, Magnitude: 0.1})

	flushed := c.runFeedbackFlush()
	assert.Equal(t, 1, flushed, "two events against one node fold into one update")

	got, err := st.Get(n.ID)
	require.NoError(t, err)
	assert.NotEqual(t, muBefore, got.Confidence.Mu)
}

func TestWisdomSynthesisCondensesCluster(t *testing.T) {
	c, st, _, clock := newTestCycle(t, Options{
		DecayIntervalMS: 1000,
		PruneThreshold:  0.01,
		Summarizer: func(texts []string) string {
			return "summary of cluster"
		},
	})

	emb := vector.Vector{1, 0.01, 0, 0}
	for i := 0; i < 3; i++ {
		n := model.NewNode(model.KindEpisode, []byte("same lesson"), clock.NowMS())
		n.Embedding = emb
		n.AddTag("testing")
		require.NoError(t, st.Remember(n))
	}

	written := c.runWisdomSynthesis(clock.NowMS())
	require.Equal(t, 1, written)

	var wisdomNode *model.Node
	st.Range(func(id ident.ID, n *model.Node) {
		if n.Kind == model.KindWisdom {
			wisdomNode = n
		}
	})
	require.NotNil(t, wisdomNode)
	assert.Equal(t, "summary of cluster", wisdomNode.Text())
	assert.True(t, wisdomNode.HasTag("testing"))
	assert.Len(t, wisdomNode.Edges, 3)

	// A second pass must not condense the same members again.
	assert.Equal(t, 0, c.runWisdomSynthesis(clock.NowMS()))
}

func TestFindAttractorsAndSettle(t *testing.T) {
	c, st, _, clock := newTestCycle(t, Options{DecayIntervalMS: 1000, PruneThreshold: 0.01})

	hub := model.NewNode(model.KindWisdom, []byte("hub"), clock.NowMS())
	hub.Embedding = vector.Vector{1, 0, 0, 0}
	hub.Confidence = model.Confidence{Mu: 0.95, Sigma2: 0.001, N: 100}
	require.NoError(t, st.Remember(hub))

	var members []*model.Node
	for i := 0; i < 4; i++ {
		m := addNode(t, st, clock, model.KindEpisode, "spoke", vector.Vector{0.9, 0.1, 0, 0})
		require.NoError(t, st.Connect(hub.ID, m.ID, model.EdgeRelated, 0.8))
		members = append(members, m)
	}

	attractors := c.FindAttractors()
	require.NotEmpty(t, attractors)
	found := false
	for _, a := range attractors {
		if a.ID == hub.ID {
			found = true
			assert.NotEmpty(t, a.Basin)
		}
	}
	require.True(t, found, "the hub qualifies as an attractor")

	before := members[0].Embedding.Cosine(hub.Embedding)
	moved := c.RunAttractorDynamics(0.5)
	assert.Greater(t, moved, 0)

	got, err := st.Get(members[0].ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got.Embedding.Cosine(hub.Embedding), before,
		"settling pulls members toward the attractor")
}

func TestCycleCheckpointsOnSchedule(t *testing.T) {
	c, _, _, clock := newTestCycle(t, Options{
		DecayIntervalMS:      1000,
		CheckpointIntervalMS: 5000,
		PruneThreshold:       0.01,
	})

	rep := c.Run(context.Background())
	assert.False(t, rep.Checkpointed, "not yet due")

	clock.Advance(6000)
	rep = c.Run(context.Background())
	assert.True(t, rep.Checkpointed)
}
