// Package sourceparse implements the §4.2 Source Parser: it extracts
// EnhancedCodeSymbols from a file. TypeScript/JavaScript (including JSX)
// is parsed with a real tree-sitter AST; every other language falls back to
// a line-oriented regex scan.
package sourceparse

// SymbolKind mirrors spec §3's symbolType enum.
type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindClass     SymbolKind = "class"
	KindMethod    SymbolKind = "method"
	KindInterface SymbolKind = "interface"
	KindType      SymbolKind = "type"
	KindEnum      SymbolKind = "enum"
	KindComponent SymbolKind = "component"
	KindConstant  SymbolKind = "constant"
	KindHook      SymbolKind = "hook"
)

// Import is a resolved `name:moduleSpecifier` binding referenced by a symbol.
type Import struct {
	Name   string
	Source string
}

// Symbol is one EnhancedCodeSymbol extracted from a file.
type Symbol struct {
	Name       string
	Kind       SymbolKind
	Language   string
	StartLine  int // 1-indexed
	EndLine    int // 1-indexed, inclusive
	DocComment string
	Body       string
	Calls      []string // deduped, ≤30, keywords/builtins excluded
	Imports    []Import // deduped, ≤30
}

// MaxCalls and MaxImports bound the per-symbol call/import lists (§4.2).
const (
	MaxCalls   = 30
	MaxImports = 30
)
