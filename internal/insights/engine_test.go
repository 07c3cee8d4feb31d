package insights

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

func insertCode(t *testing.T, s *store.Store, records []store.StoredCodeRecord) {
	t.Helper()
	vectors := make([][]float32, len(records))
	for i := range records {
		vectors[i] = []float32{float32(i), 0, 0, 0}
	}
	require.NoError(t, s.InsertCodeChunks(context.Background(), records, vectors))
}

func TestGetCodeInsights_NilWhenCodeTableEmpty(t *testing.T) {
	s := openTestStore(t)
	e := NewEngine(s)
	report, err := e.GetCodeInsights(context.Background())
	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestGetCodeInsights_S6_DeadCodeEmptyAndBMostConnected(t *testing.T) {
	s := openTestStore(t)
	insertCode(t, s, []store.StoredCodeRecord{
		{ID: "a.go:A:1", Path: "pkg/a.go", Symbol: "A", SymbolType: "function", Body: "func A() { B() }", Calls: "B"},
		{ID: "a.go:B:2", Path: "pkg/a.go", Symbol: "B", SymbolType: "function", Body: "func B() {}"},
		{ID: "c.go:C:1", Path: "pkg/c.go", Symbol: "C", SymbolType: "function", Body: "func C() {}", Imports: "B:pkg"},
	})

	e := NewEngine(s)
	report, err := e.GetCodeInsights(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Empty(t, report.DeadCode)
	require.NotEmpty(t, report.MostConnected)
	assert.Equal(t, "B", report.MostConnected[0].Symbol)
	assert.Equal(t, 2, report.MostConnected[0].Count)
}

func TestGetCodeInsights_CachesUntilInvalidated(t *testing.T) {
	s := openTestStore(t)
	insertCode(t, s, []store.StoredCodeRecord{
		{ID: "a.go:A:1", Path: "a.go", Symbol: "A", SymbolType: "function", Body: "func A() {}"},
	})

	e := NewEngine(s)
	first, err := e.GetCodeInsights(context.Background())
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, 1, first.TotalSymbols)

	insertCode(t, s, []store.StoredCodeRecord{
		{ID: "b.go:B:1", Path: "b.go", Symbol: "B", SymbolType: "function", Body: "func B() {}"},
	})

	stale, err := e.GetCodeInsights(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stale.TotalSymbols, "cache should not see the second insert before Invalidate")

	e.Invalidate()
	fresh, err := e.GetCodeInsights(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.TotalSymbols)
}

func TestGetCodeInsights_DeadCodeExcludesTypesAndInterfaces(t *testing.T) {
	s := openTestStore(t)
	insertCode(t, s, []store.StoredCodeRecord{
		{ID: "a.go:Config:1", Path: "a.go", Symbol: "Config", SymbolType: "type", Body: "type Config struct{}"},
		{ID: "a.go:orphan:2", Path: "a.go", Symbol: "orphan", SymbolType: "function", Body: "func orphan() {}"},
	})

	e := NewEngine(s)
	report, err := e.GetCodeInsights(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go:orphan:2"}, report.DeadCode)
}

func TestSymbolContext_ReturnsCallersCalleesImporters(t *testing.T) {
	s := openTestStore(t)
	insertCode(t, s, []store.StoredCodeRecord{
		{ID: "a.go:A:1", Path: "a.go", Symbol: "A", SymbolType: "function", Body: "func A() { B() }", Calls: "B"},
		{ID: "a.go:B:2", Path: "a.go", Symbol: "B", SymbolType: "function", Body: "func B() {}"},
		{ID: "c.go:C:1", Path: "c.go", Symbol: "C", SymbolType: "function", Body: "func C() {}", Imports: "B:a"},
	})

	e := NewEngine(s)
	ctx, err := e.SymbolContext(context.Background(), "B")
	require.NoError(t, err)
	require.NotNil(t, ctx.Definition)
	assert.Equal(t, "B", ctx.Definition.Symbol)
	assert.Equal(t, []string{"a.go:A:1"}, ctx.Callers)
	assert.Empty(t, ctx.Callees)
	assert.Equal(t, []string{"c.go:C:1"}, ctx.Importers)
}

func TestSymbolContext_UnknownSymbolReturnsNotFound(t *testing.T) {
	s := openTestStore(t)
	e := NewEngine(s)
	_, err := e.SymbolContext(context.Background(), "missing")
	require.Error(t, err)
}

func TestDirectoryRollup_ExcludesSrcAndKeepsTwoComponents(t *testing.T) {
	assert.Equal(t, "internal/store", directoryRollup("src/internal/store/sqlite.go"))
	assert.Equal(t, "pkg", directoryRollup("pkg/file.go"))
	assert.Equal(t, ".", directoryRollup("file.go"))
}

func TestFindDuplicateClusters_GroupsSimilarBodies(t *testing.T) {
	records := []store.StoredCodeRecord{
		{ID: "1", Body: "func add(a, b int) int { return a + b }"},
		{ID: "2", Body: "func add(a, b int) int { return a + b }"},
		{ID: "3", Body: "func unrelated() string { return \"hello world\" }"},
	}
	clusters := findDuplicateClusters(records)
	require.Len(t, clusters, 1)
	assert.ElementsMatch(t, []string{"1", "2"}, clusters[0].Members)
}

func TestCyclomaticComplexity_CountsBranches(t *testing.T) {
	assert.Equal(t, 1, cyclomaticComplexity("return 1"))
	assert.Equal(t, 3, cyclomaticComplexity("if a { } else if b { }"))
}

func TestHasDoc_FalseForFallbackSummary(t *testing.T) {
	assert.False(t, hasDoc("function", "parseConfig", "function parseConfig"))
	assert.True(t, hasDoc("function", "parseConfig", "parses the on-disk config"))
}
