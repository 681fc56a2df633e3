package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/model"
)

func vec(dim int, fill func(i int) float32) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = fill(i)
	}
	return v
}

func TestANNSearchFindsExactMatch(t *testing.T) {
	idx := New(8)
	a, b := ident.New(), ident.New()
	idx.ANN.Insert(a, vec(8, func(i int) float32 { return float32(i) }))
	idx.ANN.Insert(b, vec(8, func(i int) float32 { return -float32(i) }))

	results := idx.ANN.Search(vec(8, func(i int) float32 { return float32(i) }), 5, 0.5)
	require.NotEmpty(t, results)
	assert.Equal(t, a, results[0].ID)
	assert.InDelta(t, 1.0, results[0].Cosine, 1e-6)
}

func TestANNRemove(t *testing.T) {
	idx := New(4)
	a := ident.New()
	idx.ANN.Insert(a, vec(4, func(i int) float32 { return 1 }))
	require.Equal(t, 1, idx.ANN.Len())
	idx.ANN.Remove(a)
	assert.Equal(t, 0, idx.ANN.Len())
}

func TestBM25RanksMoreRelevantHigher(t *testing.T) {
	b := NewBM25()
	a1, a2 := ident.New(), ident.New()
	b.Index(a1, "the quick brown fox jumps over the lazy dog")
	b.Index(a2, "completely unrelated text about cooking recipes")

	results := b.Search("quick fox", 5)
	require.NotEmpty(t, results)
	assert.Equal(t, a1, results[0].ID)
}

func TestBM25Remove(t *testing.T) {
	b := NewBM25()
	a := ident.New()
	b.Index(a, "hello world")
	b.Remove(a)
	assert.Empty(t, b.Search("hello", 5))
}

func TestTagsAndOr(t *testing.T) {
	tags := NewTags()
	a, b, c := ident.New(), ident.New(), ident.New()
	tags.Add(a, "go")
	tags.Add(a, "memory")
	tags.Add(b, "go")
	tags.Add(c, "memory")

	goAndMemory := tags.And([]string{"go", "memory"})
	assert.ElementsMatch(t, []ident.ID{a}, goAndMemory)

	goOrMemory := tags.Or([]string{"go", "memory"})
	assert.ElementsMatch(t, []ident.ID{a, b, c}, goOrMemory)
}

func TestTagsRemoveNode(t *testing.T) {
	tags := NewTags()
	a := ident.New()
	tags.Add(a, "x")
	tags.RemoveNode(a)
	assert.Empty(t, tags.And([]string{"x"}))
}

func TestReverseIndex(t *testing.T) {
	r := NewReverseIndex()
	src, dst := ident.New(), ident.New()
	r.Add(src, dst, model.EdgeCauses, 0.8)

	in := r.Incoming(dst)
	require.Len(t, in, 1)
	assert.Equal(t, src, in[0].Source)

	r.RemoveNode(src)
	assert.Empty(t, r.Incoming(dst))
}

func TestLSHCandidatesFindsSimilar(t *testing.T) {
	lsh := NewLSH(16, 1)
	a := ident.New()
	v := vec(16, func(i int) float32 { return float32(i%3) - 1 })
	lsh.Insert(a, v)

	cands := lsh.Candidates(v)
	assert.Contains(t, cands, a)
}
