package store

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/model"
	"github.com/yantra-mind/memoryd/core/vector"
)

const testDim = 4

func openTestStore(t *testing.T, dir string) *Store {
	t.Helper()
	st, err := Open(filepath.Join(dir, "memoryd"), Options{Dim: testDim, HotCapacity: 100, WarmCapacity: 100})
	require.NoError(t, err)
	return st
}

func testNode(text string, atMS int64) *model.Node {
	n := model.NewNode(model.KindEpisode, []byte(text), atMS)
	n.Embedding = vector.Vector{1, 0, 0, 0}
	return n
}

func TestRememberThenGetRoundTrips(t *testing.T) {
	st := openTestStore(t, t.TempDir())
	defer st.Close()

	n := testNode("hello", 1000)
	n.AddTag("greeting")
	require.NoError(t, st.Remember(n))

	got, err := st.Get(n.ID)
	require.NoError(t, err)
	assert.Equal(t, n.Payload, got.Payload)
	assert.Equal(t, n.Kind, got.Kind)
	assert.True(t, got.HasTag("greeting"))
}

func TestWALRecoveryAfterCrash(t *testing.T) {
	dir := t.TempDir()
	st := openTestStore(t, dir)

	var ids []ident.ID
	for i := 0; i < 100; i++ {
		n := testNode("node", int64(1000+i))
		require.NoError(t, st.Remember(n))
		ids = append(ids, n.ID)
	}
	// Simulate a crash: no checkpoint, no graceful close beyond
	// releasing the file handles. Every Remember already fsynced its
	// WAL frame.
	require.NoError(t, st.Close())

	recovered := openTestStore(t, dir)
	for _, id := range ids {
		_, err := recovered.Get(id)
		assert.NoError(t, err)
	}
	count1 := recovered.Len()
	require.NoError(t, recovered.Close())

	// Replay is idempotent: a second restart leaves state unchanged.
	again := openTestStore(t, dir)
	defer again.Close()
	assert.Equal(t, count1, again.Len())
}

func TestCheckpointTruncatesWALAndRecovers(t *testing.T) {
	dir := t.TempDir()
	st := openTestStore(t, dir)

	before := testNode("before checkpoint", 1000)
	before.AddTag("keep")
	require.NoError(t, st.Remember(before))
	require.NoError(t, st.Checkpoint(2))

	after := testNode("after checkpoint", 2000)
	require.NoError(t, st.Remember(after))
	require.NoError(t, st.Close())

	recovered := openTestStore(t, dir)
	defer recovered.Close()

	gotBefore, err := recovered.Get(before.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(before.Payload, gotBefore.Payload); diff != "" {
		t.Fatalf("snapshot-recovered payload mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, gotBefore.HasTag("keep"))

	_, err = recovered.Get(after.ID)
	assert.NoError(t, err, "WAL suffix after the snapshot must replay")
}

func TestDemoteToWarmQuantizesEmbedding(t *testing.T) {
	st := openTestStore(t, t.TempDir())
	defer st.Close()

	n := testNode("warm me", 1000)
	require.NoError(t, st.Remember(n))
	require.NoError(t, st.DemoteToWarm(n.ID))

	got, err := st.Get(n.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TierWarm, got.Tier)
	assert.Nil(t, got.Embedding)
	assert.Equal(t, testDim, got.EmbeddingQuant.Dim())

	tier, err := st.Tier(n.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TierWarm, tier)
}

func TestDemoteToColdAndPromoteBack(t *testing.T) {
	st := openTestStore(t, t.TempDir())
	defer st.Close()

	n := testNode("cold me", 1000)
	n.AddTag("frozen")
	require.NoError(t, st.Remember(n))
	require.NoError(t, st.DemoteToWarm(n.ID))
	require.NoError(t, st.DemoteToCold(n.ID))

	tier, err := st.Tier(n.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TierCold, tier)

	got, err := st.Get(n.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Embedding, "cold tier keeps no embedding")
	assert.True(t, got.HasTag("frozen"))

	back, err := st.PromoteFromCold(n.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TierHot, back.Tier)
}

func TestForgetRemovesFromAllIndices(t *testing.T) {
	st := openTestStore(t, t.TempDir())
	defer st.Close()

	n := testNode("doomed", 1000)
	n.AddTag("gone")
	require.NoError(t, st.Remember(n))
	require.NoError(t, st.Forget(n.ID))

	_, err := st.Get(n.ID)
	assert.Error(t, err)
	assert.Empty(t, st.Indices.Tags.Or([]string{"gone"}))
	assert.Empty(t, st.Indices.ANN.Search(vector.Vector{1, 0, 0, 0}, 10, 0.99))
}

func TestTouchNeverDecreases(t *testing.T) {
	st := openTestStore(t, t.TempDir())
	defer st.Close()

	n := testNode("touched", 1000)
	require.NoError(t, st.Remember(n))

	st.Touch(n.ID, 5000)
	st.Touch(n.ID, 3000) // older: must be ignored

	got, err := st.Get(n.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), got.TauAccessed)
}

func TestCapacityOverflowDemotes(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(filepath.Join(dir, "memoryd"), Options{Dim: testDim, HotCapacity: 2, WarmCapacity: 100})
	require.NoError(t, err)
	defer st.Close()

	for i := 0; i < 4; i++ {
		require.NoError(t, st.Remember(testNode("n", int64(1000+i))))
	}
	st.TickPolicy()

	hot, warm, _ := st.TierCounts()
	assert.LessOrEqual(t, hot, 2)
	assert.Equal(t, 4, hot+warm)
}

func TestUpgradeReportsCurrentLayout(t *testing.T) {
	dir := t.TempDir()
	st := openTestStore(t, dir)
	require.NoError(t, st.Remember(testNode("n", 1000)))
	require.NoError(t, st.Checkpoint(2))
	require.NoError(t, st.Close())

	migrated, err := Upgrade(filepath.Join(dir, "memoryd"))
	require.NoError(t, err)
	assert.False(t, migrated)
}
