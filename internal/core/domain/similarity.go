package domain

import "math"

// CosineSimilarity computes the cosine similarity of two embedding
// vectors. The dot product and both magnitudes are accumulated in a
// single pass, which matters for vectors of hundreds of dimensions.
//
// A zero vector is defined as maximally dissimilar, not undefined, so
// the result is 0 when either magnitude is 0. The result is clamped
// to [0, 1] to absorb floating-point drift.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, ErrEmptyVector
	}
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}

	var dot, magA, magB float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		magA += x * x
		magB += y * y
	}

	if magA == 0 || magB == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(magA) * math.Sqrt(magB))
	if sim < 0 {
		return 0, nil
	}
	if sim > 1 {
		return 1, nil
	}
	return sim, nil
}

// PairwiseSimilarities computes the symmetric similarity matrix for a
// set of vectors. Only the upper triangle is computed; the lower
// triangle is mirrored and the diagonal is exactly 1.
func PairwiseSimilarities(vectors [][]float32) ([][]float64, error) {
	n := len(vectors)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
		matrix[i][i] = 1
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sim, err := CosineSimilarity(vectors[i], vectors[j])
			if err != nil {
				return nil, err
			}
			matrix[i][j] = sim
			matrix[j][i] = sim
		}
	}

	return matrix, nil
}
