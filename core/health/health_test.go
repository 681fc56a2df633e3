package health

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yantra-mind/memoryd/core/ident"
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

func addNode(t *testing.T, st *store.Store, atMS int64) *model.Node {
	t.Helper()
	n := model.NewNode(model.KindEpisode, []byte("n"), atMS)
	n.Embedding = vector.Vector{1, 0, 0, 0}
	require.NoError(t, st.Remember(n))
	return n
}

func TestEmptyStoreIsPerfectlyHealthy(t *testing.T) {
	st := openTestStore(t)
	s := Evaluate(st, 1000, 100, 100)
	assert.Equal(t, 1.0, s.Structural)
	assert.Equal(t, 1.0, s.Semantic)
	assert.Equal(t, 1.0, s.Temporal)
	assert.Equal(t, 1.0, s.Capacity)
	assert.Equal(t, 1.0, s.Overall)
	assert.Equal(t, StatusNormal, s.Status())
	assert.False(t, s.Critical())
}

func TestDanglingEdgeDegradesStructural(t *testing.T) {
	st := openTestStore(t)
	n := addNode(t, st, 1000)
	require.NoError(t, st.Connect(n.ID, ident.New(), model.EdgeRelated, 0.5))

	s := Evaluate(st, 1000, 100, 100)
	assert.Less(t, s.Structural, 1.0)
}

func TestStatusThresholds(t *testing.T) {
	assert.Equal(t, StatusNormal, Scores{Overall: 0.96}.Status())
	assert.Equal(t, StatusScheduleBackup, Scores{Overall: 0.85}.Status())
	assert.Equal(t, StatusForceRepair, Scores{Overall: 0.70}.Status())
	assert.Equal(t, StatusEmergency, Scores{Overall: 0.50}.Status())

	assert.True(t, Scores{Overall: 0.5}.Critical())
	assert.True(t, Scores{Overall: 0.9, Structural: 0.4}.Critical())
	assert.False(t, Scores{Overall: 0.9, Structural: 0.9}.Critical())
}

func TestNeedsBackup(t *testing.T) {
	healthy := Scores{Overall: 0.95}
	assert.True(t, healthy.NeedsBackup(0, 3_600_001))
	assert.False(t, healthy.NeedsBackup(0, 1000), "too soon")
	assert.False(t, Scores{Overall: 0.5}.NeedsBackup(0, 3_600_001), "too unhealthy to trust a backup")
}

func TestCheckFindsDanglingEdgeAndRepairDropsIt(t *testing.T) {
	st := openTestStore(t)
	n := addNode(t, st, 1000)
	ghost := ident.New()
	require.NoError(t, st.Connect(n.ID, ghost, model.EdgeRelated, 0.5))

	checker := NewChecker(st)
	rep := checker.Check()
	require.Len(t, rep.DanglingEdges, 1)
	assert.Equal(t, ghost, rep.DanglingEdges[0].Target)
	assert.False(t, rep.Clean())

	recovery := checker.Repair(2)
	assert.Equal(t, 1, recovery.EdgesDropped)

	assert.True(t, checker.Check().Clean())
}

func TestRepairQuarantinesCorruptNode(t *testing.T) {
	st := openTestStore(t)
	n := addNode(t, st, 1000)
	// Invalid posterior: evidence count below one.
	got, err := st.Get(n.ID)
	require.NoError(t, err)
	got.Confidence.N = 0

	checker := NewChecker(st)
	rep := checker.Repair(2)
	require.Len(t, rep.Quarantined, 1)
	assert.Equal(t, n.ID, rep.Quarantined[0])
	assert.True(t, rep.IndicesRebuilt)

	_, err = st.Get(n.ID)
	assert.Error(t, err, "quarantined nodes leave the live set")
}
