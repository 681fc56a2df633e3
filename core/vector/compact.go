package vector

import "github.com/x448/float16"

// Compact16 converts v to half precision, halving the memory held by
// rolling buffers that only ever feed back into averaged priming vectors
// and never into exact similarity scoring.
func Compact16(v Vector) []float16.Float16 {
	out := make([]float16.Float16, len(v))
	for i, x := range v {
		out[i] = float16.Fromfloat32(x)
	}
	return out
}

// Expand16 converts a half-precision vector back to float32.
func Expand16(c []float16.Float16) Vector {
	out := make(Vector, len(c))
	for i, x := range c {
		out[i] = x.Float32()
	}
	return out
}
