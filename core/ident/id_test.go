package ident

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDRoundTrip(t *testing.T) {
	id := New()
	s := id.String()
	back, err := Parse(s)
	require.NoError(t, err)
	assert.Equal(t, id, back)
}

func TestIDUniqueness(t *testing.T) {
	seen := make(map[ID]bool, 1000)
	for i := 0; i < 1000; i++ {
		id := New()
		assert.False(t, seen[id], "id collision at iteration %d", i)
		seen[id] = true
	}
}

func TestNilID(t *testing.T) {
	assert.True(t, Nil.IsNil())
	assert.False(t, New().IsNil())
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse("not-an-id")
	assert.Error(t, err)
}

func TestHashDeterministic(t *testing.T) {
	id := New()
	assert.Equal(t, id.Hash(), id.Hash())
}

func TestSystemClockMonotonic(t *testing.T) {
	c := NewSystemClock()
	a := c.NowMS()
	b := c.NowMS()
	assert.GreaterOrEqual(t, b, a)
}

func TestFakeClockAdvance(t *testing.T) {
	c := NewFakeClock(1000)
	assert.Equal(t, int64(1000), c.NowMS())
	assert.Equal(t, int64(1500), c.Advance(500))
	assert.Equal(t, int64(1500), c.NowMS())
}
