package graphalgo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yantra-mind/memoryd/core/apperr"
	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/index"
	"github.com/yantra-mind/memoryd/core/model"
)

type fakeLookup map[ident.ID]*model.Node

func (f fakeLookup) Get(id ident.ID) (*model.Node, error) {
	n, ok := f[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "not found")
	}
	return n, nil
}

func newTestNode(kind model.Kind, createdMS int64) *model.Node {
	n := model.NewNode(kind, []byte("n"), createdMS)
	return n
}

// TestFindCausalChainsSimplePath: A ->Causes(0.9)-> B
// ->Causes(0.8)-> C should yield exactly one chain A,B,C with
// confidence ~= sqrt(0.9*0.8).
func TestFindCausalChainsSimplePath(t *testing.T) {
	a := newTestNode(model.KindEpisode, 100)
	b := newTestNode(model.KindEpisode, 200)
	c := newTestNode(model.KindEpisode, 300)

	rev := index.NewReverseIndex()
	rev.Add(a.ID, b.ID, model.EdgeCauses, 0.9)
	rev.Add(b.ID, c.ID, model.EdgeCauses, 0.8)

	lookup := fakeLookup{a.ID: a, b.ID: b, c.ID: c}

	chains, err := FindCausalChains(rev, lookup, c.ID, 3, 0.5)
	require.NoError(t, err)
	require.Len(t, chains, 1)
	assert.Equal(t, []ident.ID{a.ID, b.ID, c.ID}, chains[0].Path)
	assert.InDelta(t, 0.8485, chains[0].Confidence, 0.01)
}

func TestFindCausalChainsRespectsTemporalOrder(t *testing.T) {
	a := newTestNode(model.KindEpisode, 500) // created after b: violates order
	b := newTestNode(model.KindEpisode, 100)

	rev := index.NewReverseIndex()
	rev.Add(a.ID, b.ID, model.EdgeCauses, 0.9)

	lookup := fakeLookup{a.ID: a, b.ID: b}

	chains, err := FindCausalChains(rev, lookup, b.ID, 3, 0.1)
	require.NoError(t, err)
	assert.Empty(t, chains)
}

func TestFindCausalChainsPrunesBelowMinConfidence(t *testing.T) {
	a := newTestNode(model.KindEpisode, 100)
	b := newTestNode(model.KindEpisode, 200)

	rev := index.NewReverseIndex()
	rev.Add(a.ID, b.ID, model.EdgeCauses, 0.2)

	lookup := fakeLookup{a.ID: a, b.ID: b}

	chains, err := FindCausalChains(rev, lookup, b.ID, 3, 0.5)
	require.NoError(t, err)
	assert.Empty(t, chains)
}

func TestHawkesTimelineOrdersByRecency(t *testing.T) {
	older := newTestNode(model.KindEpisode, 0)
	older.TauAccessed = 0
	newer := newTestNode(model.KindEpisode, 0)
	newer.TauAccessed = 3_600_000 // accessed at nowMS below; older is 1 hour before

	nowMS := int64(3_600_000)
	results := HawkesTimeline([]*model.Node{older, newer}, nowMS, 24, 10)
	require.Len(t, results, 2)
	assert.Equal(t, newer.ID, results[0].ID)
}

func TestLocalPushPPRConcentratesOnSeed(t *testing.T) {
	a := newTestNode(model.KindEpisode, 0)
	b := newTestNode(model.KindEpisode, 0)
	a.Edges = append(a.Edges, model.Edge{Target: b.ID, Type: model.EdgeRelated, Weight: 1.0})

	lookup := fakeLookup{a.ID: a, b.ID: b}
	results := LocalPushPPR(lookup, map[ident.ID]float64{a.ID: 1.0}, 0.15, 1e-6, 5)
	require.NotEmpty(t, results)
	assert.Equal(t, a.ID, results[0].ID)
}
