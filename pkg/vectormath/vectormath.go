// Package vectormath provides the small set of vector operations shared by
// the ANN index, the retriever, and the sleep-time maintenance cycle. It intentionally stays dependency-free: every caller
// works with float32 slices of a fixed, store-wide dimension.
package vectormath

import "math"

// L2Normalize scales v in place to unit L2 norm and returns it. A
// zero-length or all-zero vector is returned unchanged (normalizing it
// would divide by zero).
func L2Normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := math.Sqrt(sumSq)
	for i, x := range v {
		v[i] = float32(float64(x) / norm)
	}
	return v
}

// Norm returns the L2 norm of v.
func Norm(v []float32) float64 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	return math.Sqrt(sumSq)
}

// IsUnit reports whether v has unit L2 norm within tol.
func IsUnit(v []float32, tol float64) bool {
	if len(v) == 0 {
		return false
	}
	return math.Abs(Norm(v)-1.0) <= tol
}

// Cosine returns the cosine similarity between a and b. Vectors of
// mismatched length, or either vector being all-zero, score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Dot returns the dot product of a and b. Used for unit vectors, where
// dot product and cosine similarity coincide but skip the norm division.
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
