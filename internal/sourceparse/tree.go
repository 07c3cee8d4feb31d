package sourceparse

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// astLanguages maps the languages with real AST support to their
// tree-sitter grammar. Every other language uses the regex fallback.
var astLanguages = map[string]*sitter.Language{
	"typescript": typescript.GetLanguage(),
	"tsx":        tsx.GetLanguage(),
	"javascript": javascript.GetLanguage(),
	"jsx":        javascript.GetLanguage(),
}

// node is our own lightweight mirror of a tree-sitter node, built once per
// parse so the extractor never has to re-enter tree-sitter's cgo calls.
type node struct {
	Type     string
	Start    int
	End      int
	StartRow int
	EndRow   int
	Children []*node
}

func (n *node) text(source []byte) string {
	if n == nil || n.Start >= n.End || n.End > len(source) {
		return ""
	}
	return string(source[n.Start:n.End])
}

func (n *node) firstChildOfType(types ...string) *node {
	for _, c := range n.Children {
		for _, t := range types {
			if c.Type == t {
				return c
			}
		}
	}
	return nil
}

func (n *node) walk(fn func(*node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.walk(fn)
	}
}

func parseAST(ctx context.Context, source []byte, language string) (*node, error) {
	lang, ok := astLanguages[language]
	if !ok {
		return nil, errUnsupportedLanguage(language)
	}
	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(lang)

	tree, err := p.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, errNilTree
	}
	return convert(tree.RootNode()), nil
}

func convert(n *sitter.Node) *node {
	if n == nil {
		return nil
	}
	out := &node{
		Type:     n.Type(),
		Start:    int(n.StartByte()),
		End:      int(n.EndByte()),
		StartRow: int(n.StartPoint().Row),
		EndRow:   int(n.EndPoint().Row),
		Children: make([]*node, 0, n.ChildCount()),
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c != nil {
			out.Children = append(out.Children, convert(c))
		}
	}
	return out
}
