// Package vector provides fixed-dimension float32 vector primitives used
// throughout the memory engine: node embeddings, session priming vectors,
// and attractor basin centroids all share this representation.
package vector

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gorgonia.org/vecf32"
)

// Vector is a dense embedding of fixed dimension D, chosen at store
// creation time.
type Vector []float32

// New allocates a zero vector of dimension d.
func New(d int) Vector {
	return make(Vector, d)
}

// Zero reports whether v is the all-zero vector, the representation used
// for nodes that have not yet been embedded.
func (v Vector) Zero() bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Add returns v + w, allocating a new vector.
func (v Vector) Add(w Vector) Vector {
	out := make(Vector, len(v))
	copy(out, v)
	vecf32.Add(out, w)
	return out
}

// Scale returns v * s, allocating a new vector.
func (v Vector) Scale(s float32) Vector {
	out := make(Vector, len(v))
	copy(out, v)
	vecf32.Scale(out, s)
	return out
}

// Norm returns the L2 norm of v.
func (v Vector) Norm() float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalize returns v scaled to unit L2 norm. A zero vector is returned
// unchanged rather than dividing by zero.
func (v Vector) Normalize() Vector {
	n := v.Norm()
	if n == 0 {
		out := make(Vector, len(v))
		copy(out, v)
		return out
	}
	return v.Scale(float32(1 / n))
}

// Dot returns the dot product of v and w.
func (v Vector) Dot(w Vector) float64 {
	if len(v) != len(w) {
		return 0
	}
	fv := make([]float64, len(v))
	fw := make([]float64, len(w))
	for i := range v {
		fv[i] = float64(v[i])
		fw[i] = float64(w[i])
	}
	return floats.Dot(fv, fw)
}

// Cosine returns the cosine similarity between v and w, in [-1, 1]. Two
// zero vectors are defined to have cosine 0 (undefined direction).
func (v Vector) Cosine(w Vector) float64 {
	nv, nw := v.Norm(), w.Norm()
	if nv == 0 || nw == 0 {
		return 0
	}
	return v.Dot(w) / (nv * nw)
}

// L2 returns the Euclidean distance between v and w.
func (v Vector) L2(w Vector) float64 {
	if len(v) != len(w) {
		return math.Inf(1)
	}
	var sum float64
	for i := range v {
		d := float64(v[i]) - float64(w[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// ValidateDim returns an error if v's dimension does not match d. Used at
// node-insert time: an embedding dimension mismatch is a validation error,
// not silently truncated or padded.
func ValidateDim(v Vector, d int) error {
	if len(v) != d {
		return fmt.Errorf("vector: dimension mismatch: got %d, want %d", len(v), d)
	}
	return nil
}
