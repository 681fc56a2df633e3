package wisdom

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yantra-mind/memoryd/core/model"
	"github.com/yantra-mind/memoryd/core/store"
	"github.com/yantra-mind/memoryd/core/vector"
)

const testDim = 4

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "memoryd"), store.Options{Dim: testDim})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func addTagged(t *testing.T, st *store.Store, emb vector.Vector, tags ...string) *model.Node {
	t.Helper()
	n := model.NewNode(model.KindEpisode, []byte("lesson"), 1000)
	n.Embedding = emb
	for _, tag := range tags {
		n.AddTag(tag)
	}
	require.NoError(t, st.Remember(n))
	return n
}

func TestMeanPairwiseCosine(t *testing.T) {
	same := vector.Vector{1, 0, 0, 0}
	assert.InDelta(t, 1.0, MeanPairwiseCosine([]vector.Vector{same, same, same}), 1e-6)
	assert.Equal(t, 0.0, MeanPairwiseCosine([]vector.Vector{same}))

	orthogonal := []vector.Vector{{1, 0, 0, 0}, {0, 1, 0, 0}}
	assert.InDelta(t, 0.0, MeanPairwiseCosine(orthogonal), 1e-6)
}

func TestFindClustersRequiresSharedTags(t *testing.T) {
	st := openTestStore(t)
	emb := vector.Vector{1, 0.01, 0, 0}

	addTagged(t, st, emb, "alpha")
	addTagged(t, st, emb, "beta")
	addTagged(t, st, emb, "gamma")

	clusters := FindClusters(st, ClusterParams{})
	assert.Empty(t, clusters, "mutual similarity without a shared tag is not a cluster")
}

func TestFindClustersDetectsCohesiveGroup(t *testing.T) {
	st := openTestStore(t)
	emb := vector.Vector{1, 0.01, 0, 0}

	addTagged(t, st, emb, "testing")
	addTagged(t, st, emb, "testing")
	addTagged(t, st, emb, "testing")
	// A dissimilar node with the same tag must stay out of the cluster.
	addTagged(t, st, vector.Vector{0, 0, 1, 0}, "testing")

	clusters := FindClusters(st, ClusterParams{})
	require.Len(t, clusters, 1)
	assert.Len(t, clusters[0].Members, 3)
	assert.GreaterOrEqual(t, clusters[0].Cohesion, DefaultMinCohesion)
	assert.Contains(t, clusters[0].SharedTags, "testing")
}

func TestFindClustersSkipsTaggedMembers(t *testing.T) {
	st := openTestStore(t)
	emb := vector.Vector{1, 0.01, 0, 0}

	for i := 0; i < 3; i++ {
		n := addTagged(t, st, emb, "testing")
		require.NoError(t, st.AddTag(n.ID, "done"))
	}

	clusters := FindClusters(st, ClusterParams{SkipTag: "done"})
	assert.Empty(t, clusters)
}

func TestMetricsUpdateTracksHistory(t *testing.T) {
	st := openTestStore(t)
	addTagged(t, st, vector.Vector{1, 0, 0, 0}, "a")

	m := NewMetrics()
	m.Update(st, 1000)
	first := m.Read()
	assert.Greater(t, first.Breadth, 0.0)

	addTagged(t, st, vector.Vector{0, 1, 0, 0}, "b")
	m.Update(st, 2000)
	second := m.Read()
	assert.Greater(t, second.Breadth, first.Breadth)
	assert.Equal(t, int64(2000), second.AtMS)
}
