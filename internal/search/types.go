// Package search implements the §4.6 Hybrid Search Engine: parallel
// vector/FTS/exact-symbol candidate fetch, Reciprocal Rank Fusion, file
// filtering, cosine-similarity dedup, feature-weighted re-ranking, and the
// transcript+code unified search.
package search

// RRFConstant is the fixed RRF smoothing constant (§4.6 Step 2).
const RRFConstant = 60

// DedupCosineThreshold is the similarity above which a candidate is dropped
// as a near-duplicate of an already-kept row (§4.6 Step 4).
const DedupCosineThreshold = 0.95

// Filter narrows candidate fetch and post-filters results (§4.6 input).
type Filter struct {
	Agent     string
	Files     []string
	MinScore  float64
	QueryText string
	Rerank    *bool // nil means the default, true
}

func (f Filter) rerankEnabled() bool {
	if f.Rerank == nil {
		return true
	}
	return *f.Rerank
}

// candidate carries the fields of a fetched stored record that re-ranking
// reads; the engine builds one per deduped row after loading the records.
type candidate struct {
	id            string
	vector        []float32
	filesChanged  []string
	prompt        string
	summary       string
	embeddingText string
	symbol        string
	timestamp     int64 // unix seconds; 0 for code candidates (no age signal)
}

// Result is one transcript or code search hit after the full pipeline.
type Result struct {
	ID          string
	FusedScore  float64
	FinalScore  float64
	ExactSymbol bool
}

// UnifiedResult tags a Result with which table it came from and carries the
// post-weight score used to merge-sort transcript and code hits together
// (§4.6 "Unified search").
type UnifiedResult struct {
	Result
	Source string // "transcript" or "code"
}

const (
	transcriptWeight = 1.0
	codeWeight       = 0.85
)
