package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFuseRanks_AccumulatesAcrossLists(t *testing.T) {
	vec := []string{"a", "b", "c"}
	fts := []string{"b", "a"}

	rows := fuseRanks(vec, fts)
	scores := map[string]float64{}
	for _, r := range rows {
		scores[r.id] = r.score
	}

	// a: rank0 in vec (1/61) + rank1 in fts (1/62)
	// b: rank1 in vec (1/62) + rank0 in fts (1/61)
	assert.InDelta(t, 1.0/61+1.0/62, scores["a"], 1e-9)
	assert.InDelta(t, 1.0/62+1.0/61, scores["b"], 1e-9)
	assert.InDelta(t, 1.0/63, scores["c"], 1e-9)
}

func TestFuseRanks_SortedDescendingThenByID(t *testing.T) {
	rows := fuseRanks([]string{"z", "y"}, []string{"y", "z"})
	assert.Equal(t, "y", rows[0].id)
	assert.Equal(t, "z", rows[1].id)
}

func TestFuseRanks_EmptyListsYieldNoRows(t *testing.T) {
	rows := fuseRanks(nil, nil)
	assert.Empty(t, rows)
}
