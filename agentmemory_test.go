package agentmemory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmemory/agentmemory/internal/provider"
	"github.com/agentmemory/agentmemory/internal/search"
	"github.com/agentmemory/agentmemory/internal/store"
	synco "github.com/agentmemory/agentmemory/internal/sync"
	"github.com/agentmemory/agentmemory/internal/workspace"
)

func openTestMemory(t *testing.T) *Memory {
	t.Helper()
	root := t.TempDir()
	cfg := workspace.New()
	cfg.Provider.EmbedModel = "static-256"
	m, err := Open(root, cfg, provider.NewStaticEmbedder(cfg.Dimensions()), provider.NewChatSummarizer(nil), func() int64 { return 1000 })
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestOpen_CreatesStateDirectories(t *testing.T) {
	root := t.TempDir()
	m, err := Open(root, nil, provider.NewStaticEmbedder(256), provider.NewChatSummarizer(nil), nil)
	require.NoError(t, err)
	defer m.Close()

	assert.DirExists(t, workspace.VectorsDir(root))
	assert.DirExists(t, workspace.CacheDir(root))
	assert.FileExists(t, filepath.Join(workspace.VectorsDir(root), "store.db"))
}

func TestSearchSolutions_ReturnsHydratedHits(t *testing.T) {
	m := openTestMemory(t)
	ctx := context.Background()

	records := []store.StoredSolutionRecord{
		{ID: "cp-1-0-0", CheckpointID: "cp-1", Prompt: "how does X work", Summary: "explains X", EmbeddingText: "how does X work explains X", Timestamp: 1000},
		{ID: "cp-2-0-0", CheckpointID: "cp-2", Prompt: "write tests", Summary: "added tests", EmbeddingText: "write tests added tests", Timestamp: 1000},
	}
	require.NoError(t, m.store.InsertSolutionChunks(ctx, records, [][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}}))

	hits, err := m.SearchSolutions(ctx, []float32{1, 0, 0, 0}, 5, search.Filter{QueryText: "how does X work"})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "cp-1-0-0", hits[0].Chunk.ID)
	assert.Greater(t, hits[0].Score, 0.0)
}

func TestSearchCode_ReturnsHydratedHits(t *testing.T) {
	m := openTestMemory(t)
	ctx := context.Background()

	records := []store.StoredCodeRecord{
		{ID: "a.go:Add:1", Path: "a.go", Symbol: "Add", SymbolType: "function", Language: "go", Body: "func Add(a, b int) int { return a + b }", Summary: "adds two ints", EmbeddingText: "Add adds two ints"},
	}
	require.NoError(t, m.store.InsertCodeChunks(ctx, records, [][]float32{{1, 0, 0, 0}}))

	hits, err := m.SearchCode(ctx, []float32{1, 0, 0, 0}, 5, search.Filter{QueryText: "Add"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a.go:Add:1", hits[0].Chunk.ID)
}

func TestUnifiedSearch_MergesSourcesWithSummaries(t *testing.T) {
	m := openTestMemory(t)
	ctx := context.Background()

	require.NoError(t, m.store.InsertSolutionChunks(ctx,
		[]store.StoredSolutionRecord{{ID: "cp-1-0-0", CheckpointID: "cp-1", Summary: "solved a bug", EmbeddingText: "solved a bug", Timestamp: 1000}},
		[][]float32{{1, 0, 0, 0}}))
	require.NoError(t, m.store.InsertCodeChunks(ctx,
		[]store.StoredCodeRecord{{ID: "a.go:Fix:1", Path: "a.go", Symbol: "Fix", SymbolType: "function", Summary: "fixes the bug", EmbeddingText: "fixes the bug"}},
		[][]float32{{1, 0, 0, 0}}))

	hits, err := m.UnifiedSearch(ctx, []float32{1, 0, 0, 0}, 5, search.Filter{QueryText: "bug"})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	for _, h := range hits {
		assert.NotEmpty(t, h.Summary)
		assert.Contains(t, []string{"transcript", "code"}, h.Source)
	}
}

func TestGetStats_CountsAgentsAndTopFiles(t *testing.T) {
	m := openTestMemory(t)
	ctx := context.Background()

	records := []store.StoredSolutionRecord{
		{ID: "cp-1-0-0", CheckpointID: "cp-1", Agent: "claude", FilesChanged: []string{"a.go", "b.go"}, EmbeddingText: "x"},
		{ID: "cp-2-0-0", CheckpointID: "cp-2", Agent: "claude", FilesChanged: []string{"a.go"}, EmbeddingText: "y"},
		{ID: "cp-3-0-0", CheckpointID: "cp-3", Agent: "gpt", FilesChanged: []string{"c.go"}, EmbeddingText: "z"},
	}
	require.NoError(t, m.store.InsertSolutionChunks(ctx, records, [][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}}))

	stats, err := m.GetStats(ctx)
	require.NoError(t, err)
	assert.True(t, stats.HasTable)
	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, 2, stats.Agents["claude"])
	assert.Equal(t, 1, stats.Agents["gpt"])
	require.NotEmpty(t, stats.TopFiles)
	assert.Equal(t, "a.go", stats.TopFiles[0].Path)
	assert.Equal(t, 2, stats.TopFiles[0].Count)
}

func TestGetCodeStats_CountsLanguagesAndTopFiles(t *testing.T) {
	m := openTestMemory(t)
	ctx := context.Background()

	records := []store.StoredCodeRecord{
		{ID: "a.go:A:1", Path: "a.go", Symbol: "A", SymbolType: "function", Language: "go", EmbeddingText: "x"},
		{ID: "a.go:B:2", Path: "a.go", Symbol: "B", SymbolType: "function", Language: "go", EmbeddingText: "y"},
		{ID: "c.py:C:1", Path: "c.py", Symbol: "C", SymbolType: "function", Language: "python", EmbeddingText: "z"},
	}
	require.NoError(t, m.store.InsertCodeChunks(ctx, records, [][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}}))

	stats, err := m.GetCodeStats(ctx)
	require.NoError(t, err)
	assert.True(t, stats.HasTable)
	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, 2, stats.Languages["go"])
	assert.Equal(t, 1, stats.Languages["python"])
	require.NotEmpty(t, stats.TopFiles)
	assert.Equal(t, "a.go", stats.TopFiles[0].Path)
}

func TestGetCodeInsights_NilWhenEmpty(t *testing.T) {
	m := openTestMemory(t)
	report, err := m.GetCodeInsights(context.Background())
	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestSymbolContext_NotFoundForUnknownSymbol(t *testing.T) {
	m := openTestMemory(t)
	_, err := m.SymbolContext(context.Background(), "missing")
	require.Error(t, err)
}

func TestSync_IndexesLocalMetadataCheckpoint(t *testing.T) {
	root := t.TempDir()
	cfg := workspace.New()
	cfg.Provider.EmbedModel = "static-256"

	metaDir := filepath.Join(root, cfg.Checkpoints.MetadataDir)
	require.NoError(t, os.MkdirAll(metaDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(metaDir, "one.json"),
		[]byte(`{"id":"abc","timestamp":1000,"sessions":[{"agent":"claude","prompts":"fix the bug"}]}`), 0o644))

	m, err := Open(root, cfg, provider.NewStaticEmbedder(cfg.Dimensions()), provider.NewChatSummarizer(nil), func() int64 { return 1000 })
	require.NoError(t, err)
	defer m.Close()

	result, err := m.Sync(context.Background(), synco.Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.NewSolutionChunks)

	stats, err := m.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Count)
}
