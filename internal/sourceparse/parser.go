package sourceparse

import (
	"context"
	"os"
)

// Parser extracts Symbols from source files.
type Parser struct{}

// New returns a ready-to-use Parser.
func New() *Parser {
	return &Parser{}
}

// ParseFile reads and parses the file at path. An unreadable file yields an
// empty symbol list rather than an error, since a single unreadable file
// should never abort indexing a whole tree. A language this parser does not
// recognize at all also yields an empty list.
func (p *Parser) ParseFile(ctx context.Context, path string) ([]Symbol, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, nil
	}
	return p.Parse(ctx, path, source)
}

// Parse extracts symbols from in-memory source already associated with
// path (used to resolve the language). If the language has an AST grammar
// but parsing fails, Parse hands the source to the regex extractor rather
// than returning an error; that extractor has no TS/JS patterns, so the
// result is an empty list.
func (p *Parser) Parse(ctx context.Context, path string, source []byte) ([]Symbol, error) {
	language, ok := LanguageForPath(path)
	if !ok {
		return nil, nil
	}

	if hasAST(language) {
		root, err := parseAST(ctx, source, language)
		if err == nil && root != nil {
			isJSX := language == "tsx" || language == "jsx"
			return extractAST(root, source, language, isJSX), nil
		}
		// AST failed: fall through to the regex extractor under the same
		// tag, for which it has no patterns.
	}

	return extractRegex(source, language), nil
}
