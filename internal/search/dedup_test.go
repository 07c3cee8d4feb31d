package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupe_DropsNearDuplicateAboveThreshold(t *testing.T) {
	rows := []fusedRow{{id: "a", score: 0.9}, {id: "b", score: 0.8}}
	vectorOf := map[string][]float32{
		"a": {1, 0, 0},
		"b": {0.99, 0.1, 0},
	}
	// cosine(a,b) is well above 0.95
	kept := dedupe(rows, vectorOf)
	assert.Len(t, kept, 1)
	assert.Equal(t, "a", kept[0].id)
}

func TestDedupe_KeepsDissimilarVectors(t *testing.T) {
	rows := []fusedRow{{id: "a", score: 0.9}, {id: "b", score: 0.8}}
	vectorOf := map[string][]float32{
		"a": {1, 0, 0},
		"b": {0, 1, 0},
	}
	kept := dedupe(rows, vectorOf)
	assert.Len(t, kept, 2)
}

func TestDedupe_RowsWithNoVectorAlwaysKept(t *testing.T) {
	rows := []fusedRow{{id: "a", score: 0.9}, {id: "b", score: 0.8}}
	kept := dedupe(rows, map[string][]float32{})
	assert.Len(t, kept, 2)
}

func TestCosineSimilarity_IdenticalVectorsIsOne(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
}

func TestCosineSimilarity_OrthogonalVectorsIsZero(t *testing.T) {
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
}
