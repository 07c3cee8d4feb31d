package sourceparse

import "fmt"

var errNilTree = fmt.Errorf("agentmemory: tree-sitter returned a nil tree")

func errUnsupportedLanguage(language string) error {
	return fmt.Errorf("agentmemory: no AST grammar registered for %q", language)
}
