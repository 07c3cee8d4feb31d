package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmemory/agentmemory/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:", 4)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func fixedClock(ts int64) func() int64 {
	return func() int64 { return ts }
}

func TestTranscriptSearch_RanksKeywordMatchAboveUnrelatedChunk(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	records := []store.StoredSolutionRecord{
		{
			ID:            "cp-1-0-0",
			CheckpointID:  "cp-1",
			Prompt:        "How does X work?",
			Summary:       "explained how X works",
			EmbeddingText: "How does X work? explained how X works",
			Timestamp:     1000,
		},
		{
			ID:            "cp-2-0-0",
			CheckpointID:  "cp-2",
			Prompt:        "Write unit tests",
			Summary:       "added unit tests for the module",
			EmbeddingText: "Write unit tests added unit tests for the module",
			Timestamp:     1000,
		},
	}
	vectors := [][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}}
	require.NoError(t, s.InsertSolutionChunks(ctx, records, vectors))

	e := NewEngine(s, fixedClock(1000))
	results, err := e.TranscriptSearch(ctx, []float32{0, 1, 0, 0}, 5, Filter{QueryText: "unit tests"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "cp-2-0-0", results[0].ID)
	assert.Greater(t, results[0].FinalScore, results[1].FinalScore)
	assert.Greater(t, results[1].FinalScore, 0.0)
}

func TestTranscriptSearch_AgentFilterExcludesOtherAgents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	records := []store.StoredSolutionRecord{
		{ID: "cp-1-0-0", CheckpointID: "cp-1", Agent: "claude", EmbeddingText: "alpha", Timestamp: 1000},
		{ID: "cp-2-0-0", CheckpointID: "cp-2", Agent: "codex", EmbeddingText: "beta", Timestamp: 1000},
	}
	vectors := [][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}}
	require.NoError(t, s.InsertSolutionChunks(ctx, records, vectors))

	e := NewEngine(s, fixedClock(1000))
	withoutFilter, err := e.TranscriptSearch(ctx, []float32{1, 1, 0, 0}, 5, Filter{})
	require.NoError(t, err)
	require.Len(t, withoutFilter, 2)

	results, err := e.TranscriptSearch(ctx, []float32{1, 1, 0, 0}, 5, Filter{Agent: "claude"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "cp-1-0-0", results[0].ID)
}

func TestCodeSearch_ExactSymbolMatchRanksFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	records := []store.StoredCodeRecord{
		{ID: "a.go:parseConfig:1", Path: "a.go", Symbol: "parseConfig", EmbeddingText: "func parseConfig"},
		{ID: "b.go:helperOne:1", Path: "b.go", Symbol: "helperOne", EmbeddingText: "func helperOne"},
		{ID: "c.go:helperTwo:1", Path: "c.go", Symbol: "helperTwo", EmbeddingText: "func helperTwo"},
	}
	vectors := [][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}}
	require.NoError(t, s.InsertCodeChunks(ctx, records, vectors))

	e := NewEngine(s, fixedClock(1000))
	results, err := e.CodeSearch(ctx, []float32{0, 0, 0, 1}, 5, Filter{QueryText: "parseConfig"})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "a.go:parseConfig:1", results[0].ID)
	assert.True(t, results[0].ExactSymbol)
}

func TestTranscriptSearch_DedupDropsNearDuplicateVector(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	records := []store.StoredSolutionRecord{
		{ID: "cp-1-0-0", CheckpointID: "cp-1", EmbeddingText: "alpha", Timestamp: 1000},
		{ID: "cp-2-0-0", CheckpointID: "cp-2", EmbeddingText: "alpha duplicate", Timestamp: 1000},
	}
	vectors := [][]float32{{1, 0, 0, 0}, {0.99, 0.01, 0, 0}}
	require.NoError(t, s.InsertSolutionChunks(ctx, records, vectors))

	e := NewEngine(s, fixedClock(1000))
	results, err := e.TranscriptSearch(ctx, []float32{1, 0, 0, 0}, 5, Filter{})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestTranscriptSearch_EmptyStoreReturnsEmpty(t *testing.T) {
	s := openTestStore(t)
	e := NewEngine(s, fixedClock(1000))
	results, err := e.TranscriptSearch(context.Background(), []float32{1, 0, 0, 0}, 5, Filter{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestTranscriptSearch_TopKZeroReturnsEmpty(t *testing.T) {
	s := openTestStore(t)
	e := NewEngine(s, fixedClock(1000))
	results, err := e.TranscriptSearch(context.Background(), []float32{1, 0, 0, 0}, 0, Filter{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestUnifiedSearch_WeightsCodeLowerThanTranscript(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertSolutionChunks(ctx, []store.StoredSolutionRecord{
		{ID: "cp-1-0-0", CheckpointID: "cp-1", EmbeddingText: "parseConfig transcript", Timestamp: 1000},
	}, [][]float32{{1, 0, 0, 0}}))
	require.NoError(t, s.InsertCodeChunks(ctx, []store.StoredCodeRecord{
		{ID: "a.go:parseConfig:1", Path: "a.go", Symbol: "parseConfig", EmbeddingText: "parseConfig code"},
	}, [][]float32{{1, 0, 0, 0}}))

	e := NewEngine(s, fixedClock(1000))
	results, err := e.UnifiedSearch(ctx, []float32{1, 0, 0, 0}, 5, Filter{QueryText: "parseConfig"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		if r.Source == "transcript" {
			assert.Equal(t, "cp-1-0-0", r.ID)
		} else {
			assert.Equal(t, "a.go:parseConfig:1", r.ID)
		}
	}
}

func TestFilesMatch_CaseInsensitiveSubstring(t *testing.T) {
	assert.True(t, filesMatch([]string{"Config"}, []string{"src/config.go"}))
	assert.False(t, filesMatch([]string{"nomatch"}, []string{"src/config.go"}))
}
