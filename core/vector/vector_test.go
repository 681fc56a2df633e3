package vector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineIdentical(t *testing.T) {
	v := Vector{1, 2, 3, 4}
	assert.InDelta(t, 1.0, v.Cosine(v), 1e-9)
}

func TestCosineOrthogonal(t *testing.T) {
	v := Vector{1, 0}
	w := Vector{0, 1}
	assert.InDelta(t, 0.0, v.Cosine(w), 1e-9)
}

func TestCosineZeroVector(t *testing.T) {
	v := Vector{0, 0, 0}
	w := Vector{1, 2, 3}
	assert.Equal(t, 0.0, v.Cosine(w))
}

func TestNormalizeUnitNorm(t *testing.T) {
	v := Vector{3, 4}
	n := v.Normalize()
	assert.InDelta(t, 1.0, n.Norm(), 1e-6)
}

func TestValidateDim(t *testing.T) {
	require.NoError(t, ValidateDim(Vector{1, 2, 3}, 3))
	require.Error(t, ValidateDim(Vector{1, 2}, 3))
}

func TestQuantizeRoundTrip(t *testing.T) {
	v := Vector{0.1, -0.2, 0.5, -0.9, 0.33}
	v = v.Normalize()
	q := FromFloat(v)
	back := q.ToFloat()
	// L2 error <= 0.02 * ||v|| for unit-scaled inputs.
	err := v.L2(back)
	assert.LessOrEqual(t, err, 0.02*v.Norm()+1e-6)
}

func TestQuantizeCosineApprox(t *testing.T) {
	a := Vector{0.6, 0.8, 0, 0}
	b := Vector{0.6, 0.8, 0.01, 0}
	qa, qb := FromFloat(a), FromFloat(b)
	want := a.Cosine(b)
	got := qa.CosineApprox(qb)
	assert.InDelta(t, want, got, 0.015)
}

func TestQuantizeConstantVector(t *testing.T) {
	v := Vector{0.5, 0.5, 0.5}
	q := FromFloat(v)
	back := q.ToFloat()
	for _, x := range back {
		assert.False(t, math.IsNaN(float64(x)))
	}
}

func TestSize(t *testing.T) {
	q := FromFloat(Vector{1, 2, 3, 4, 5})
	assert.Equal(t, 5+8, q.Size())
}
