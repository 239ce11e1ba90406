package helper

import "math"

// normEpsilon keeps the normalization away from a division by zero.
const normEpsilon = 1e-12

// L2Norm returns the euclidean length of vec.
func L2Norm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-length copy of vec.
// Zero vectors and vectors containing NaN or Inf come back as all zeros.
func Normalize(vec []float32) []float32 {
	out := make([]float32, len(vec))
	norm := L2Norm(vec)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return out
	}
	for i, v := range vec {
		out[i] = float32(float64(v) / (norm + normEpsilon))
	}
	return out
}

// Dot returns the dot product of a and b, or 0 when the lengths differ.
// For unit vectors this is the cosine similarity.
func Dot(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// IsZero reports whether every component of vec is zero.
func IsZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}
