package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yantra-mind/memoryd/core/vector"
)

func TestPrimingVectorAveragesObservations(t *testing.T) {
	c := New(10)
	c.Observe(vector.Vector{1, 0, 0, 0})
	c.Observe(vector.Vector{0, 1, 0, 0})

	p := c.PrimingVector(4)
	require.NotNil(t, p)
	// Equal mix of two orthogonal observations, normalized.
	assert.InDelta(t, p[0], p[1], 0.01)
	assert.InDelta(t, 1.0, p.Norm(), 0.01)
}

func TestPrimingVectorEmptyContext(t *testing.T) {
	c := New(10)
	assert.Nil(t, c.PrimingVector(4))
}

func TestObservationRingEvictsOldest(t *testing.T) {
	c := New(2)
	c.Observe(vector.Vector{1, 0, 0, 0})
	c.Observe(vector.Vector{0, 1, 0, 0})
	c.Observe(vector.Vector{0, 0, 1, 0})

	p := c.PrimingVector(4)
	require.NotNil(t, p)
	assert.InDelta(t, 0.0, float64(p[0]), 0.01, "oldest observation evicted from the ring")
}

func TestGoalBasinBlendsIntoPriming(t *testing.T) {
	c := New(10)
	c.SetGoalBasin(vector.Vector{0, 0, 0, 1})

	p := c.PrimingVector(4)
	require.NotNil(t, p)
	assert.InDelta(t, 1.0, float64(p[3]), 0.01)
}

func TestIntentionsCopyOnRead(t *testing.T) {
	c := New(10)
	c.SetIntentions([]string{"ship it"})
	got := c.Intentions()
	got[0] = "mutated"
	assert.Equal(t, []string{"ship it"}, c.Intentions())
}
