package search

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/agentmemory/agentmemory/internal/store"
)

// candidateMultiplier and minCandidates derive K = max(5*topK, 50) (§4.6).
const (
	candidateMultiplier = 5
	minCandidates       = 50

	exactSymbolEqualBoost  = 0.5
	exactSymbolPrefixBoost = 0.2
)

// Engine runs transcript, code, and unified search over a Store (§4.6).
type Engine struct {
	store *store.Store
	now   func() int64
}

// NewEngine wires a Store and a clock (injected so tests can fix "now").
func NewEngine(s *store.Store, now func() int64) *Engine {
	return &Engine{store: s, now: now}
}

func candidateK(topK int) int {
	k := candidateMultiplier * topK
	if k < minCandidates {
		k = minCandidates
	}
	return k
}

// TranscriptSearch implements §4.6's transcript search steps 1-6.
func (e *Engine) TranscriptSearch(ctx context.Context, queryVector []float32, topK int, filter Filter) ([]Result, error) {
	if topK <= 0 {
		return nil, nil
	}
	k := candidateK(topK)

	var vecIDs, ftsIDs []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ids, err := e.vectorCandidateIDs(gctx, e.store.SearchSolutionsVector, queryVector, k)
		if err != nil {
			return nil // graceful degradation: this leg contributes nothing
		}
		vecIDs = ids
		return nil
	})
	g.Go(func() error {
		if filter.QueryText == "" {
			return nil
		}
		res, err := e.store.SearchSolutionsFTS(gctx, filter.QueryText, k)
		if err != nil {
			return nil
		}
		ftsIDs = ftsResultIDs(res)
		return nil
	})
	_ = g.Wait()

	fused := fuseRanks(vecIDs, ftsIDs)
	if len(fused) > k {
		fused = fused[:k]
	}
	if len(fused) == 0 {
		return nil, nil
	}

	records, err := e.store.GetSolutionsByIDs(ctx, fusedIDs(fused))
	if err != nil {
		return nil, nil
	}
	byID := map[string]store.StoredSolutionRecord{}
	for _, r := range records {
		byID[r.ID] = r
	}

	// Step 3: agent + file filter.
	if filter.Agent != "" {
		kept := fused[:0:0]
		for _, row := range fused {
			r, ok := byID[row.id]
			if ok && r.Agent == filter.Agent {
				kept = append(kept, row)
			}
		}
		fused = kept
	}
	if len(filter.Files) > 0 {
		kept := fused[:0:0]
		for _, row := range fused {
			r, ok := byID[row.id]
			if !ok {
				continue
			}
			if filesMatch(filter.Files, r.FilesChanged) {
				kept = append(kept, row)
			}
		}
		fused = kept
	}

	vectorOf := map[string][]float32{}
	for id := range byID {
		if v, ok := e.store.SolutionVector(id); ok {
			vectorOf[id] = v
		}
	}
	deduped := dedupe(fused, vectorOf)

	var results []Result
	for _, row := range deduped {
		r, ok := byID[row.id]
		if !ok {
			continue
		}
		final := row.score
		if filter.QueryText != "" && filter.rerankEnabled() {
			c := candidate{
				id:            r.ID,
				filesChanged:  r.FilesChanged,
				prompt:        r.Prompt,
				summary:       r.Summary,
				embeddingText: r.EmbeddingText,
				timestamp:     r.Timestamp,
			}
			final = rerankScore(row.score, c, filter, e.now())
		}
		results = append(results, Result{ID: row.id, FusedScore: row.score, FinalScore: final})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].FinalScore > results[j].FinalScore })

	results = applyThresholdAndCap(results, filter.MinScore, topK)
	return results, nil
}

// CodeSearch implements §4.6's code search: steps 1-2 plus the exact-symbol
// boost, then the same filter/dedup/rerank/cap pipeline.
func (e *Engine) CodeSearch(ctx context.Context, queryVector []float32, topK int, filter Filter) ([]Result, error) {
	if topK <= 0 {
		return nil, nil
	}
	k := candidateK(topK)

	var vecIDs, ftsIDs []string
	var exactEqual, exactPrefix map[string]bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ids, err := e.vectorCandidateIDs(gctx, e.store.SearchCodeVector, queryVector, k)
		if err != nil {
			return nil
		}
		vecIDs = ids
		return nil
	})
	g.Go(func() error {
		if filter.QueryText == "" {
			return nil
		}
		res, err := e.store.SearchCodeFTS(gctx, filter.QueryText, k)
		if err != nil {
			return nil
		}
		ftsIDs = ftsResultIDs(res)
		return nil
	})
	g.Go(func() error {
		if filter.QueryText == "" {
			return nil
		}
		hits, err := e.store.FindCodeByExactSymbolPattern(gctx, filter.QueryText)
		if err != nil {
			return nil
		}
		exactEqual = map[string]bool{}
		exactPrefix = map[string]bool{}
		for _, h := range hits {
			if h.Symbol == filter.QueryText || strings.HasSuffix(h.Symbol, "."+filter.QueryText) {
				exactEqual[h.ID] = true
			} else if strings.HasPrefix(h.Symbol, filter.QueryText) {
				exactPrefix[h.ID] = true
			}
		}
		return nil
	})
	_ = g.Wait()

	fused := fuseRanks(vecIDs, ftsIDs)
	if len(fused) > k {
		fused = fused[:k]
	}
	for i, row := range fused {
		if exactEqual[row.id] {
			fused[i].score += exactSymbolEqualBoost
		} else if exactPrefix[row.id] {
			fused[i].score += exactSymbolPrefixBoost
		}
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].score != fused[j].score {
			return fused[i].score > fused[j].score
		}
		return fused[i].id < fused[j].id
	})
	if len(fused) == 0 {
		return nil, nil
	}

	records, err := e.store.GetCodeByIDs(ctx, fusedIDs(fused))
	if err != nil {
		return nil, nil
	}
	byID := map[string]store.StoredCodeRecord{}
	for _, r := range records {
		byID[r.ID] = r
	}

	if len(filter.Files) > 0 {
		kept := fused[:0:0]
		for _, row := range fused {
			r, ok := byID[row.id]
			if !ok {
				continue
			}
			if filesMatch(filter.Files, []string{r.Path}) {
				kept = append(kept, row)
			}
		}
		fused = kept
	}

	vectorOf := map[string][]float32{}
	for id := range byID {
		if v, ok := e.store.CodeVector(id); ok {
			vectorOf[id] = v
		}
	}
	deduped := dedupe(fused, vectorOf)

	var results []Result
	for _, row := range deduped {
		r, ok := byID[row.id]
		if !ok {
			continue
		}
		final := row.score
		if filter.QueryText != "" && filter.rerankEnabled() {
			c := candidate{
				id:            r.ID,
				embeddingText: r.EmbeddingText,
				symbol:        r.Symbol,
			}
			final = rerankScore(row.score, c, filter, e.now())
		}
		results = append(results, Result{
			ID:          row.id,
			FusedScore:  row.score,
			FinalScore:  final,
			ExactSymbol: exactEqual[row.id] || exactPrefix[row.id],
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].FinalScore > results[j].FinalScore })
	results = applyThresholdAndCap(results, filter.MinScore, topK)
	return results, nil
}

// UnifiedSearch runs both searches at topK*2, weights, and merge-sorts
// (§4.6 "Unified search").
func (e *Engine) UnifiedSearch(ctx context.Context, queryVector []float32, topK int, filter Filter) ([]UnifiedResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	wide := topK * 2

	transcripts, err := e.TranscriptSearch(ctx, queryVector, wide, filter)
	if err != nil {
		return nil, err
	}
	code, err := e.CodeSearch(ctx, queryVector, wide, filter)
	if err != nil {
		return nil, err
	}

	merged := make([]UnifiedResult, 0, len(transcripts)+len(code))
	for _, r := range transcripts {
		r.FinalScore *= transcriptWeight
		merged = append(merged, UnifiedResult{Result: r, Source: "transcript"})
	}
	for _, r := range code {
		r.FinalScore *= codeWeight
		merged = append(merged, UnifiedResult{Result: r, Source: "code"})
	}

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].FinalScore > merged[j].FinalScore })
	if len(merged) > topK {
		merged = merged[:topK]
	}
	return merged, nil
}

func (e *Engine) vectorCandidateIDs(ctx context.Context, search func(context.Context, []float32, int) ([]*store.VectorResult, error), query []float32, k int) ([]string, error) {
	if len(query) == 0 {
		return nil, nil
	}
	hits, err := search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	return ids, nil
}

func ftsResultIDs(res []store.FTSResult) []string {
	ids := make([]string, len(res))
	for i, r := range res {
		ids[i] = r.ID
	}
	return ids
}

func fusedIDs(rows []fusedRow) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.id
	}
	return ids
}

func filesMatch(needles []string, filesChanged []string) bool {
	for _, needle := range needles {
		needle = strings.ToLower(needle)
		for _, f := range filesChanged {
			if strings.Contains(strings.ToLower(f), needle) {
				return true
			}
		}
	}
	return false
}

func applyThresholdAndCap(results []Result, minScore float64, topK int) []Result {
	var kept []Result
	for _, r := range results {
		if r.FinalScore < minScore {
			continue
		}
		kept = append(kept, r)
		if len(kept) == topK {
			break
		}
	}
	return kept
}
