// Package similarity implements the vector similarity index of the register:
// cosine scoring of a query against the risk corpus, scaled to the 0..100
// band the UI displays, with ranked and thresholded retrieval.
package similarity

import "math"

// Vector is a fixed-dimension embedding of risk text.
type Vector []float32

// IsZero reports whether every component is zero. A zero vector is the
// degenerate embedding of empty or very short text.
func (v Vector) IsZero() bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Cosine computes the cosine similarity of two equal-dimension vectors in
// [-1, 1]. When either vector has zero norm the similarity is defined as 0,
// which the percent scale maps to 50: degenerate text is equidistant from
// everything, not an error.
func Cosine(a, b Vector) float64 {
	var dot, normA, normB float64
	for i := range a {
		fa := float64(a[i])
		fb := float64(b[i])
		dot += fa * fb
		normA += fa * fa
		normB += fb * fb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Guard against float drift pushing identical vectors past 1.
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return cos
}

// ScaleToPercent maps a cosine similarity into the 0..100 display band:
// orthogonal text scores 50 and identical text scores 100, which avoids
// negative-score confusion in the UI.
func ScaleToPercent(cos float64) float64 {
	return 100 * (1 + cos) / 2
}
