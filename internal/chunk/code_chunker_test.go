package chunk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmemory/agentmemory/internal/sourceparse"
)

func TestCodeChunker_BuildsIDFromPathSymbolAndStartLine(t *testing.T) {
	symbols := []sourceparse.Symbol{
		{Name: "parseConfig", Kind: sourceparse.KindFunction, Language: "go", StartLine: 10, EndLine: 20, Body: "func parseConfig() {}"},
	}
	c := NewCodeChunker()
	chunks := c.Chunk("internal/workspace/config.go", symbols, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.Len(t, chunks, 1)
	assert.Equal(t, "internal/workspace/config.go:parseConfig:10", chunks[0].ID)
	assert.Equal(t, "2026-01-02T03:04:05Z", chunks[0].LastModified)
}

func TestCodeChunker_SummaryFallsBackToTypeAndName(t *testing.T) {
	symbols := []sourceparse.Symbol{
		{Name: "Widget", Kind: sourceparse.KindClass, Language: "typescript", StartLine: 1, EndLine: 5, Body: "class Widget {}"},
	}
	c := NewCodeChunker()
	chunks := c.Chunk("widget.ts", symbols, time.Now())
	require.Len(t, chunks, 1)
	assert.Equal(t, "class Widget", chunks[0].Summary)
}

func TestCodeChunker_SummaryUsesDocCommentPrefixWhenPresent(t *testing.T) {
	symbols := []sourceparse.Symbol{
		{Name: "add", Kind: sourceparse.KindFunction, Language: "typescript", DocComment: "Adds two numbers.\nReturns the sum.", Body: "function add() {}"},
	}
	c := NewCodeChunker()
	chunks := c.Chunk("math.ts", symbols, time.Now())
	require.Len(t, chunks, 1)
	assert.Equal(t, "Adds two numbers.", chunks[0].Summary)
}

func TestCodeChunker_ZeroCallsAndImportsStillYieldsValidChunk(t *testing.T) {
	symbols := []sourceparse.Symbol{
		{Name: "noop", Kind: sourceparse.KindFunction, Language: "go", Body: "func noop() {}"},
	}
	c := NewCodeChunker()
	chunks := c.Chunk("noop.go", symbols, time.Now())
	require.Len(t, chunks, 1)
	assert.Empty(t, chunks[0].Calls)
	assert.Empty(t, chunks[0].Imports)
	assert.Contains(t, chunks[0].EmbeddingText, "calls: ")
	assert.Contains(t, chunks[0].EmbeddingText, "imports: ")
}

func TestCodeChunker_MethodsKeepQualifiedName(t *testing.T) {
	symbols := []sourceparse.Symbol{
		{Name: "Widget.render", Kind: sourceparse.KindMethod, Language: "typescript", Body: "render() {}"},
	}
	c := NewCodeChunker()
	chunks := c.Chunk("widget.ts", symbols, time.Now())
	require.Len(t, chunks, 1)
	assert.Equal(t, "Widget.render", chunks[0].Symbol)
	assert.Equal(t, "widget.ts:Widget.render:0", chunks[0].ID)
}

func TestCodeChunker_EmbeddingTextIsCapped(t *testing.T) {
	body := make([]byte, 5000)
	for i := range body {
		body[i] = 'x'
	}
	symbols := []sourceparse.Symbol{
		{Name: "huge", Kind: sourceparse.KindFunction, Language: "go", Body: string(body)},
	}
	c := NewCodeChunker()
	chunks := c.Chunk("huge.go", symbols, time.Now())
	require.Len(t, chunks, 1)
	assert.LessOrEqual(t, len(chunks[0].EmbeddingText), MaxEmbeddingChars)
}
