package chunk

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/agentmemory/agentmemory/internal/sourceparse"
)

// CodeChunker turns a file's extracted symbols into CodeChunks.
type CodeChunker struct{}

// NewCodeChunker returns a ready-to-use CodeChunker.
func NewCodeChunker() *CodeChunker {
	return &CodeChunker{}
}

// Chunk builds one CodeChunk per symbol (class methods already arrive
// pre-namespaced as `Class.method` from the source parser).
func (c *CodeChunker) Chunk(path string, symbols []sourceparse.Symbol, lastModified time.Time) []CodeChunk {
	out := make([]CodeChunk, 0, len(symbols))
	for _, sym := range symbols {
		out = append(out, c.chunkSymbol(path, sym, lastModified))
	}
	return out
}

func (c *CodeChunker) chunkSymbol(path string, sym sourceparse.Symbol, lastModified time.Time) CodeChunk {
	summary := symbolSummary(sym)
	embeddingText := buildCodeEmbeddingText(path, sym, summary)

	return CodeChunk{
		ID:            fmt.Sprintf("%s:%s:%d", path, sym.Name, sym.StartLine),
		Path:          path,
		Symbol:        sym.Name,
		SymbolType:    string(sym.Kind),
		Language:      sym.Language,
		Body:          sym.Body,
		Summary:       summary,
		EmbeddingText: embeddingText,
		Calls:         strings.Join(sym.Calls, ","),
		Imports:       joinImports(sym.Imports),
		LastModified:  lastModified.UTC().Format(time.RFC3339),
	}
}

func symbolSummary(sym sourceparse.Symbol) string {
	if doc := strings.TrimSpace(sym.DocComment); doc != "" {
		return docPrefix(doc)
	}
	return fmt.Sprintf("%s %s", sym.Kind, sym.Name)
}

func docPrefix(doc string) string {
	firstLine := doc
	if idx := strings.IndexByte(doc, '\n'); idx >= 0 {
		firstLine = doc[:idx]
	}
	const maxPrefixChars = 200
	if len(firstLine) > maxPrefixChars {
		return firstLine[:maxPrefixChars]
	}
	return firstLine
}

func joinImports(imports []sourceparse.Import) string {
	parts := make([]string, 0, len(imports))
	for _, imp := range imports {
		parts = append(parts, imp.Name+":"+imp.Source)
	}
	return strings.Join(parts, ",")
}

func buildCodeEmbeddingText(path string, sym sourceparse.Symbol, summary string) string {
	body := sym.Body
	if len(body) > CodeBodyPrefixChars {
		body = body[:CodeBodyPrefixChars]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s in %s\n\n", sym.Kind, sym.Name, filepath.Base(path))
	b.WriteString(summary)
	b.WriteString("\n\ncalls: ")
	b.WriteString(strings.Join(sym.Calls, ","))
	b.WriteString("\n\nimports: ")
	b.WriteString(joinImports(sym.Imports))
	b.WriteString("\n\n")
	b.WriteString(body)

	text := b.String()
	if len(text) > MaxEmbeddingChars {
		text = text[:MaxEmbeddingChars]
	}
	return text
}
