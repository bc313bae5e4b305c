package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	sim, err := CosineSimilarity([]float32{1, 0}, []float32{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-9)

	sim, err = CosineSimilarity([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sim, 1e-9)

	sim, err = CosineSimilarity([]float32{1, 0}, []float32{0.8, 0.6})
	require.NoError(t, err)
	assert.InDelta(t, 0.8, sim, 1e-6)
}

func TestCosineSimilarity_NegativeClampedToZero(t *testing.T) {
	sim, err := CosineSimilarity([]float32{1, 0}, []float32{-1, 0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, sim)
}

func TestCosineSimilarity_ZeroVector(t *testing.T) {
	sim, err := CosineSimilarity([]float32{0, 0}, []float32{1, 0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, sim)
}

func TestCosineSimilarity_Errors(t *testing.T) {
	_, err := CosineSimilarity(nil, []float32{1})
	assert.ErrorIs(t, err, ErrEmptyVector)

	_, err = CosineSimilarity([]float32{1, 2}, []float32{1})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestPairwiseSimilarities(t *testing.T) {
	matrix, err := PairwiseSimilarities([][]float32{
		{1, 0},
		{0.8, 0.6},
		{0, 1},
	})
	require.NoError(t, err)

	assert.Equal(t, 1.0, matrix[0][0])
	assert.InDelta(t, 0.8, matrix[0][1], 1e-6)
	assert.Equal(t, matrix[0][1], matrix[1][0], "matrix is symmetric")
	assert.InDelta(t, 0.0, matrix[0][2], 1e-9)
}
