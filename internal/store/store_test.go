package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", 4)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func vec(seed float32) []float32 {
	return []float32{seed, seed + 1, seed + 2, seed + 3}
}

func TestOpen_SettlesSchemaWithNoLeftoverSeedRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ids, err := s.GetIndexedChunkIds(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	paths, err := s.GetIndexedCodePaths(ctx)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestInsertAndGetSolutionChunks_RoundTrips(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	records := []StoredSolutionRecord{
		{
			ID:            "cp-1-0-0",
			CheckpointID:  "cp-1",
			SessionIndex:  0,
			Prompt:        "How does parseConfig work?",
			Response:      "It reads config.json",
			Summary:       "explained config parsing",
			EmbeddingText: "parseConfig explained config reading",
			Agent:         "claude",
			FilesChanged:  []string{"config.go", "config_test.go"},
			Symbols:       []string{"parseConfig"},
			Language:      "go",
		},
	}

	err := s.InsertSolutionChunks(ctx, records, [][]float32{vec(1)})
	require.NoError(t, err)

	got, err := s.GetSolutionsByIDs(ctx, []string{"cp-1-0-0"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "cp-1", got[0].CheckpointID)
	assert.Equal(t, []string{"config.go", "config_test.go"}, got[0].FilesChanged)
	assert.Equal(t, []string{"parseConfig"}, got[0].Symbols)
	assert.Equal(t, SourceTranscript, got[0].Source)
	assert.Equal(t, CurrentSchemaVersion, got[0].Version)

	ids, err := s.GetIndexedChunkIds(ctx)
	require.NoError(t, err)
	assert.True(t, ids["cp-1"])
}

func TestInsertSolutionChunks_LengthMismatchErrors(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.InsertSolutionChunks(ctx, []StoredSolutionRecord{{ID: "x"}}, nil)
	assert.Error(t, err)
}

func TestUpsertSolutionChunks_ReplacesPriorRowsForCheckpoint(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := []StoredSolutionRecord{
		{ID: "cp-2-0-0", CheckpointID: "cp-2", Prompt: "first pass", EmbeddingText: "first pass"},
	}
	require.NoError(t, s.InsertSolutionChunks(ctx, first, [][]float32{vec(1)}))

	second := []StoredSolutionRecord{
		{ID: "cp-2-0-0", CheckpointID: "cp-2", Prompt: "amended pass", EmbeddingText: "amended pass"},
	}
	require.NoError(t, s.UpsertSolutionChunks(ctx, second, [][]float32{vec(2)}, "abc123"))

	got, err := s.GetSolutionsByIDs(ctx, []string{"cp-2-0-0"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "amended pass", got[0].Prompt)
	assert.Equal(t, "abc123", got[0].ContentHash)

	hash, err := s.GetSolutionContentHash(ctx, "cp-2")
	require.NoError(t, err)
	assert.Equal(t, "abc123", hash)
}

func TestGetSolutionContentHash_UnknownCheckpointYieldsEmpty(t *testing.T) {
	s := openTestStore(t)
	hash, err := s.GetSolutionContentHash(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, hash)
}

func TestSearchSolutionsVector_ReturnsNearestNeighbor(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	records := []StoredSolutionRecord{
		{ID: "a", CheckpointID: "cp", EmbeddingText: "alpha"},
		{ID: "b", CheckpointID: "cp", EmbeddingText: "beta"},
	}
	require.NoError(t, s.InsertSolutionChunks(ctx, records, [][]float32{vec(1), vec(100)}))

	results, err := s.SearchSolutionsVector(ctx, vec(1), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestSearchSolutionsFTS_MatchesEmbeddingText(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	records := []StoredSolutionRecord{
		{ID: "a", CheckpointID: "cp", EmbeddingText: "parseConfig reads yaml files"},
		{ID: "b", CheckpointID: "cp", EmbeddingText: "renderWidget draws a button"},
	}
	require.NoError(t, s.InsertSolutionChunks(ctx, records, [][]float32{vec(1), vec(2)}))

	results, err := s.SearchSolutionsFTS(ctx, "parseConfig", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestSearchSolutionsFTS_EmptyQueryYieldsNoResults(t *testing.T) {
	s := openTestStore(t)
	results, err := s.SearchSolutionsFTS(context.Background(), "", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestInsertAndSearchCodeChunks(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	records := []StoredCodeRecord{
		{ID: "a.go:parseConfig:10", Path: "a.go", Symbol: "parseConfig", SymbolType: "function", Language: "go", EmbeddingText: "function parseConfig reads config"},
	}
	require.NoError(t, s.InsertCodeChunks(ctx, records, [][]float32{vec(1)}))

	byID, err := s.GetCodeByIDs(ctx, []string{"a.go:parseConfig:10"})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, "parseConfig", byID[0].Symbol)
	assert.Equal(t, SourceCode, byID[0].Source)

	bySymbol, err := s.FindCodeBySymbol(ctx, "parseConfig")
	require.NoError(t, err)
	require.Len(t, bySymbol, 1)
	assert.Equal(t, "a.go", bySymbol[0].Path)

	paths, err := s.GetIndexedCodePaths(ctx)
	require.NoError(t, err)
	assert.True(t, paths["a.go"])

	ftsResults, err := s.SearchCodeFTS(ctx, "parseConfig", 5)
	require.NoError(t, err)
	require.Len(t, ftsResults, 1)
	assert.Equal(t, "a.go:parseConfig:10", ftsResults[0].ID)

	vectorResults, err := s.SearchCodeVector(ctx, vec(1), 1)
	require.NoError(t, err)
	require.Len(t, vectorResults, 1)
	assert.Equal(t, "a.go:parseConfig:10", vectorResults[0].ID)
}

func TestDeleteCodeChunksByPath_RemovesRowsFtsAndVectors(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	records := []StoredCodeRecord{
		{ID: "a.go:f:1", Path: "a.go", Symbol: "f", EmbeddingText: "function f does work"},
		{ID: "b.go:g:1", Path: "b.go", Symbol: "g", EmbeddingText: "function g does other work"},
	}
	require.NoError(t, s.InsertCodeChunks(ctx, records, [][]float32{vec(1), vec(2)}))

	require.NoError(t, s.DeleteCodeChunksByPath(ctx, "a.go"))

	byID, err := s.GetCodeByIDs(ctx, []string{"a.go:f:1"})
	require.NoError(t, err)
	assert.Empty(t, byID)

	remaining, err := s.GetCodeByIDs(ctx, []string{"b.go:g:1"})
	require.NoError(t, err)
	require.Len(t, remaining, 1)

	ftsResults, err := s.SearchCodeFTS(ctx, "work", 5)
	require.NoError(t, err)
	for _, r := range ftsResults {
		assert.NotEqual(t, "a.go:f:1", r.ID)
	}

	vectorResults, err := s.SearchCodeVector(ctx, vec(1), 5)
	require.NoError(t, err)
	for _, r := range vectorResults {
		assert.NotEqual(t, "a.go:f:1", r.ID)
	}
}

func TestAllCodeRecords_ReturnsEveryRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	records := []StoredCodeRecord{
		{ID: "a.go:f:1", Path: "a.go", Symbol: "f", EmbeddingText: "f"},
		{ID: "a.go:g:5", Path: "a.go", Symbol: "g", EmbeddingText: "g"},
	}
	require.NoError(t, s.InsertCodeChunks(ctx, records, [][]float32{vec(1), vec(2)}))

	all, err := s.AllCodeRecords(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestReset_ClearsTablesAndVectorStores(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertSolutionChunks(ctx, []StoredSolutionRecord{
		{ID: "a", CheckpointID: "cp", EmbeddingText: "alpha"},
	}, [][]float32{vec(1)}))
	require.NoError(t, s.InsertCodeChunks(ctx, []StoredCodeRecord{
		{ID: "a.go:f:1", Path: "a.go", Symbol: "f", EmbeddingText: "f"},
	}, [][]float32{vec(1)}))

	require.NoError(t, s.Reset())

	ids, err := s.GetIndexedChunkIds(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	paths, err := s.GetIndexedCodePaths(ctx)
	require.NoError(t, err)
	assert.Empty(t, paths)

	assert.Equal(t, 0, s.solutionVectors.Count())
	assert.Equal(t, 0, s.codeVectors.Count())
}
