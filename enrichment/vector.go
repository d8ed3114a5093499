package enrichment

import "math"

// NormalizeVector returns a unit-length copy of v.
// Empty and all-zero vectors cannot be ranked by cosine similarity and yield nil.
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return nil
	}

	magnitude := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / magnitude)
	}
	return out
}
