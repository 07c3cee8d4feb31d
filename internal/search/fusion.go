package search

import "sort"

// fusedRow accumulates one candidate id's score across every leg it
// appeared in.
type fusedRow struct {
	id    string
	score float64
}

// fuseRanks implements §4.6 Step 2: Score(id) = Σ over each list where id
// appears of 1/(RRFConstant + rank_in_list + 1), rank 0-indexed per list.
// Rows are returned sorted by fused score descending, ties broken by id for
// determinism.
func fuseRanks(lists ...[]string) []fusedRow {
	scores := map[string]float64{}
	for _, list := range lists {
		for rank, id := range list {
			scores[id] += 1.0 / float64(RRFConstant+rank+1)
		}
	}

	rows := make([]fusedRow, 0, len(scores))
	for id, score := range scores {
		rows = append(rows, fusedRow{id: id, score: score})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].score != rows[j].score {
			return rows[i].score > rows[j].score
		}
		return rows[i].id < rows[j].id
	})
	return rows
}
