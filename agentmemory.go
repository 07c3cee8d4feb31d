// Package agentmemory is the root library package: the §6 retrieval API
// surface (search, symbol context, insights, stats) plus a Sync method,
// wiring every internal subsystem together for TUI/HTTP/MCP adapters to
// consume. It carries no UI or transport concerns of its own.
package agentmemory

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/agentmemory/agentmemory/internal/cache"
	"github.com/agentmemory/agentmemory/internal/checkpoint"
	"github.com/agentmemory/agentmemory/internal/chunk"
	"github.com/agentmemory/agentmemory/internal/errs"
	"github.com/agentmemory/agentmemory/internal/insights"
	"github.com/agentmemory/agentmemory/internal/provider"
	"github.com/agentmemory/agentmemory/internal/search"
	"github.com/agentmemory/agentmemory/internal/sourceparse"
	"github.com/agentmemory/agentmemory/internal/store"
	synco "github.com/agentmemory/agentmemory/internal/sync"
	"github.com/agentmemory/agentmemory/internal/workspace"
)

// Memory is the opened, ready-to-use handle for one workspace.
type Memory struct {
	root   string
	config *workspace.Config

	store    *store.Store
	search   *search.Engine
	insights *insights.Engine
	syncer   *synco.Orchestrator

	searchCache *cache.SearchCache
}

// Open wires every subsystem against root's `.agentmemory/` state
// directory, creating it if absent. embedder/summarizer are caller-supplied
// so tests and non-default providers never need this package to know about
// provider selection (§4.4 leaves that to the caller).
func Open(root string, cfg *workspace.Config, embedder provider.Embedder, summarizer provider.Summarizer, nowFn func() int64) (*Memory, error) {
	if cfg == nil {
		cfg = workspace.New()
	}
	if nowFn == nil {
		nowFn = func() int64 { return time.Now().Unix() }
	}

	if err := os.MkdirAll(workspace.VectorsDir(root), 0o755); err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err)
	}
	if err := os.MkdirAll(workspace.CacheDir(root), 0o755); err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err)
	}

	s, err := store.Open(filepath.Join(workspace.VectorsDir(root), "store.db"), cfg.Dimensions())
	if err != nil {
		return nil, err
	}

	embedCache, err := cache.NewEmbeddingCache(filepath.Join(workspace.CacheDir(root), "embeddings.json"), nowFn)
	if err != nil {
		return nil, err
	}
	searchCache, err := cache.NewSearchCache(filepath.Join(workspace.CacheDir(root), "search-results.json"), nowFn)
	if err != nil {
		return nil, err
	}
	lock := cache.NewSyncLock(workspace.LockPath(root))

	insightsEngine := insights.NewEngine(s)
	searchEngine := search.NewEngine(s, nowFn)

	metadataDir := filepath.Join(root, cfg.Checkpoints.MetadataDir)
	checkpoints := checkpoint.New(root, cfg.Checkpoints.BranchName, metadataDir)
	solutions := chunk.NewSolutionChunker(chunk.SolutionChunkerConfig{FilenameDenylist: cfg.Search.DenylistedFiles})

	orchestrator := synco.New(synco.Dependencies{
		Store:       s,
		Insights:    insightsEngine,
		Checkpoints: checkpoints,
		Solutions:   solutions,
		Code:        chunk.NewCodeChunker(),
		Source:      sourceparse.New(),
		Embedder:    embedder,
		Summarizer:  summarizer,
		EmbedCache:  embedCache,
		SearchCache: searchCache,
		Lock:        lock,
		Now:         nowFn,
	})

	return &Memory{
		root:        root,
		config:      cfg,
		store:       s,
		search:      searchEngine,
		insights:    insightsEngine,
		syncer:      orchestrator,
		searchCache: searchCache,
	}, nil
}

// Close releases the underlying store's resources.
func (m *Memory) Close() error {
	return m.store.Close()
}

// Sync runs one full sync pass (§4.9). events may be nil.
func (m *Memory) Sync(ctx context.Context, opts synco.Options, events chan synco.Event) (*synco.Result, error) {
	return m.syncer.Run(ctx, opts, events)
}

// SolutionHit pairs a stored solution chunk with its search score.
type SolutionHit struct {
	Chunk store.StoredSolutionRecord
	Score float64
}

// CodeHit pairs a stored code chunk with its search score.
type CodeHit struct {
	Chunk store.StoredCodeRecord
	Score float64
}

// UnifiedHit is one row of a searchSolutions/searchCode merge, tagged by
// source table (§6 "UnifiedResult{source, id, score, summary, …}").
type UnifiedHit struct {
	Source      string
	ID          string
	Score       float64
	ExactSymbol bool
	Summary     string
}

func searchCacheKey(queryText string, topK int, filter search.Filter) cache.SearchCacheKey {
	raw, _ := json.Marshal(filter)
	return cache.SearchCacheKey{QueryText: queryText, TopK: topK, Filter: string(raw)}
}

// SearchSolutions implements searchSolutions(queryVector, topK, filter)
// (§6): hybrid search over the solutions table, hydrated into full chunks.
func (m *Memory) SearchSolutions(ctx context.Context, queryVector []float32, topK int, filter search.Filter) ([]SolutionHit, error) {
	key := searchCacheKey(filter.QueryText, topK, filter)
	var cached []SolutionHit
	if ok, err := m.searchCache.Get(key, &cached); err == nil && ok {
		return cached, nil
	}

	results, err := m.search.TranscriptSearch(ctx, queryVector, topK, filter)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	records, err := m.store.GetSolutionsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]store.StoredSolutionRecord, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}

	hits := make([]SolutionHit, 0, len(results))
	for _, r := range results {
		if rec, ok := byID[r.ID]; ok {
			hits = append(hits, SolutionHit{Chunk: rec, Score: r.FinalScore})
		}
	}

	_ = m.searchCache.Put(key, hits)
	return hits, nil
}

// SearchCode implements searchCode(queryVector, topK, filter) (§6).
func (m *Memory) SearchCode(ctx context.Context, queryVector []float32, topK int, filter search.Filter) ([]CodeHit, error) {
	key := searchCacheKey(filter.QueryText, topK, filter)
	var cached []CodeHit
	if ok, err := m.searchCache.Get(key, &cached); err == nil && ok {
		return cached, nil
	}

	results, err := m.search.CodeSearch(ctx, queryVector, topK, filter)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	records, err := m.store.GetCodeByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]store.StoredCodeRecord, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}

	hits := make([]CodeHit, 0, len(results))
	for _, r := range results {
		if rec, ok := byID[r.ID]; ok {
			hits = append(hits, CodeHit{Chunk: rec, Score: r.FinalScore})
		}
	}

	_ = m.searchCache.Put(key, hits)
	return hits, nil
}

// UnifiedSearch implements unifiedSearch(queryVector, topK, filter) (§6),
// hydrating each hit's summary from whichever table it came from.
func (m *Memory) UnifiedSearch(ctx context.Context, queryVector []float32, topK int, filter search.Filter) ([]UnifiedHit, error) {
	key := searchCacheKey(filter.QueryText, topK, filter)
	var cached []UnifiedHit
	if ok, err := m.searchCache.Get(key, &cached); err == nil && ok {
		return cached, nil
	}

	results, err := m.search.UnifiedSearch(ctx, queryVector, topK, filter)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	var solutionIDs, codeIDs []string
	for _, r := range results {
		if r.Source == "code" {
			codeIDs = append(codeIDs, r.ID)
		} else {
			solutionIDs = append(solutionIDs, r.ID)
		}
	}

	solutionSummaries := map[string]string{}
	if recs, err := m.store.GetSolutionsByIDs(ctx, solutionIDs); err == nil {
		for _, r := range recs {
			solutionSummaries[r.ID] = r.Summary
		}
	}
	codeSummaries := map[string]string{}
	if recs, err := m.store.GetCodeByIDs(ctx, codeIDs); err == nil {
		for _, r := range recs {
			codeSummaries[r.ID] = r.Summary
		}
	}

	hits := make([]UnifiedHit, 0, len(results))
	for _, r := range results {
		summary := solutionSummaries[r.ID]
		if r.Source == "code" {
			summary = codeSummaries[r.ID]
		}
		hits = append(hits, UnifiedHit{
			Source:      r.Source,
			ID:          r.ID,
			Score:       r.FinalScore,
			ExactSymbol: r.ExactSymbol,
			Summary:     summary,
		})
	}

	_ = m.searchCache.Put(key, hits)
	return hits, nil
}

// SymbolContext implements symbolContext(name) (§6).
func (m *Memory) SymbolContext(ctx context.Context, name string) (*insights.SymbolContext, error) {
	return m.insights.SymbolContext(ctx, name)
}

// GetCodeInsights implements getCodeInsights() (§6).
func (m *Memory) GetCodeInsights(ctx context.Context) (*insights.CodeInsights, error) {
	return m.insights.GetCodeInsights(ctx)
}

// SolutionStats is getStats()'s result: solutions-table counts broken down
// by agent, plus the files most often touched (§6 "counts, agents,
// topFiles, hasTable").
type SolutionStats struct {
	Count    int
	Agents   map[string]int
	TopFiles []insights.FileCount
	HasTable bool
}

// GetStats implements getStats() (§6).
func (m *Memory) GetStats(ctx context.Context) (*SolutionStats, error) {
	records, err := m.store.AllSolutionRecords(ctx)
	if err != nil {
		return nil, err
	}
	stats := &SolutionStats{Agents: map[string]int{}, HasTable: len(records) > 0}
	fileCounts := map[string]int{}
	for _, r := range records {
		stats.Count++
		if r.Agent != "" {
			stats.Agents[r.Agent]++
		}
		for _, f := range r.FilesChanged {
			fileCounts[f]++
		}
	}
	stats.TopFiles = topFileCounts(fileCounts)
	return stats, nil
}

// CodeStats is getCodeStats()'s result. Code rows carry no agent, so the
// per-agent breakdown getStats() exposes is replaced with a per-language
// one here — the nearest equivalent grouping the code table actually has.
type CodeStats struct {
	Count     int
	Languages map[string]int
	TopFiles  []insights.FileCount
	HasTable  bool
}

// GetCodeStats implements getCodeStats() (§6).
func (m *Memory) GetCodeStats(ctx context.Context) (*CodeStats, error) {
	records, err := m.store.AllCodeRecords(ctx)
	if err != nil {
		return nil, err
	}
	stats := &CodeStats{Languages: map[string]int{}, HasTable: len(records) > 0}
	fileCounts := map[string]int{}
	for _, r := range records {
		stats.Count++
		if r.Language != "" {
			stats.Languages[r.Language]++
		}
		fileCounts[r.Path]++
	}
	stats.TopFiles = topFileCounts(fileCounts)
	return stats, nil
}

func topFileCounts(counts map[string]int) []insights.FileCount {
	out := make([]insights.FileCount, 0, len(counts))
	for path, n := range counts {
		out = append(out, insights.FileCount{Path: path, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Path < out[j].Path
	})
	if len(out) > 10 {
		out = out[:10]
	}
	return out
}
