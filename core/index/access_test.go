package index

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yantra-mind/memoryd/core/ident"
)

func TestAccessSinceReturnsWindowNewestFirst(t *testing.T) {
	a := NewAccess()
	old := ident.New()
	mid := ident.New()
	recent := ident.New()

	a.Touch(old, 1000)
	a.Touch(mid, 2000)
	a.Touch(recent, 3000)

	got := a.Since(1500)
	assert.Equal(t, []ident.ID{recent, mid}, got)
}

func TestAccessTouchReplacesPreviousEntry(t *testing.T) {
	a := NewAccess()
	id := ident.New()

	a.Touch(id, 1000)
	a.Touch(id, 5000)

	assert.Empty(t, a.Since(6000))
	got := a.Since(2000)
	assert.Equal(t, []ident.ID{id}, got, "only the latest access time remains")
}

func TestAccessRemove(t *testing.T) {
	a := NewAccess()
	id := ident.New()
	a.Touch(id, 1000)
	a.Remove(id)
	assert.Empty(t, a.Since(0))
}
