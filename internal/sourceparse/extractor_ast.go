package sourceparse

import (
	"regexp"
	"strings"
)

var hookNameRe = regexp.MustCompile(`^use[A-Z]\w*$`)
var componentNameRe = regexp.MustCompile(`^[A-Z]\w*$`)
var wrapperCallRe = regexp.MustCompile(`\b(memo|forwardRef|lazy)\s*\(`)

// declarationTypes are the top-level/class-body node types the extractor
// recognizes, mapped to their base symbol kind (before component/hook
// reclassification).
var declarationTypes = map[string]SymbolKind{
	"function_declaration":   KindFunction,
	"class_declaration":      KindClass,
	"interface_declaration":  KindInterface,
	"type_alias_declaration": KindType,
	"enum_declaration":       KindEnum,
	"method_definition":      KindMethod,
}

// extractAST walks a parsed TS/TSX/JS/JSX tree and returns every top-level
// declaration and class method as a Symbol.
func extractAST(root *node, source []byte, language string, isJSXFile bool) []Symbol {
	lines := strings.Split(string(source), "\n")
	allImports := fileImports(source)

	var out []Symbol
	var walkTop func(n *node)
	walkTop = func(n *node) {
		for _, child := range n.Children {
			decl := child
			if child.Type == "export_statement" {
				if d := unwrapExport(child); d != nil {
					decl = d
				} else {
					continue
				}
			}

			if sym := symbolFromDeclaration(decl, source, lines, language, isJSXFile, allImports); sym != nil {
				out = append(out, *sym)
			}

			if decl.Type == "class_declaration" {
				out = append(out, methodsFromClass(decl, source, lines, language, allImports)...)
			}
		}
	}
	walkTop(root)
	return out
}

func unwrapExport(n *node) *node {
	for _, c := range n.Children {
		if _, ok := declarationTypes[c.Type]; ok {
			return c
		}
		if c.Type == "lexical_declaration" || c.Type == "variable_declaration" {
			return c
		}
	}
	return nil
}

func symbolFromDeclaration(n *node, source []byte, lines []string, language string, isJSXFile bool, allImports []Import) *Symbol {
	kind, ok := declarationTypes[n.Type]
	if !ok && (n.Type == "lexical_declaration" || n.Type == "variable_declaration") {
		return symbolFromVariableDeclaration(n, source, lines, language, isJSXFile, allImports)
	}
	if !ok || n.Type == "method_definition" {
		return nil // methods are handled via methodsFromClass
	}

	name := identifierName(n, source)
	if name == "" {
		return nil
	}

	body := truncate(n.text(source), MaxBodyChars)
	startLine := n.StartRow + 1
	endLine := n.EndRow + 1

	if kind == KindFunction && isJSXFile && componentNameRe.MatchString(name) && strings.Contains(body, "return") && strings.Contains(body, "<") {
		kind = KindComponent
	}
	if kind == KindFunction && hookNameRe.MatchString(name) {
		kind = KindHook
	}

	doc := docCommentAbove(lines, startLine)
	return &Symbol{
		Name:       name,
		Kind:       kind,
		Language:   language,
		StartLine:  startLine,
		EndLine:    endLine,
		DocComment: doc,
		Body:       body,
		Calls:      extractCalls(body),
		Imports:    resolveImportsForBody(allImports, body),
	}
}

func symbolFromVariableDeclaration(n *node, source []byte, lines []string, language string, isJSXFile bool, allImports []Import) *Symbol {
	declarator := n.firstChildOfType("variable_declarator")
	if declarator == nil {
		return nil
	}
	name := declarator.firstChildOfType("identifier").text(source)
	if name == "" {
		return nil
	}

	body := truncate(n.text(source), MaxBodyChars)
	startLine := n.StartRow + 1
	endLine := n.EndRow + 1
	doc := docCommentAbove(lines, startLine)

	hasFunctionValue := declarator.firstChildOfType("arrow_function", "function", "function_expression") != nil
	kind := KindConstant
	switch {
	case hasFunctionValue && isJSXFile && componentNameRe.MatchString(name) && strings.Contains(body, "<"):
		kind = KindComponent
	case hasFunctionValue && wrapperCallRe.MatchString(body) && componentNameRe.MatchString(name):
		kind = KindComponent
	case hasFunctionValue && hookNameRe.MatchString(name):
		kind = KindHook
	case hasFunctionValue:
		kind = KindFunction
	}

	return &Symbol{
		Name:       name,
		Kind:       kind,
		Language:   language,
		StartLine:  startLine,
		EndLine:    endLine,
		DocComment: doc,
		Body:       body,
		Calls:      extractCalls(body),
		Imports:    resolveImportsForBody(allImports, body),
	}
}

func methodsFromClass(classDecl *node, source []byte, lines []string, language string, allImports []Import) []Symbol {
	className := identifierName(classDecl, source)
	if className == "" {
		return nil
	}
	body := classDecl.firstChildOfType("class_body")
	if body == nil {
		return nil
	}

	var out []Symbol
	for _, member := range body.Children {
		if member.Type != "method_definition" {
			continue
		}
		methodName := identifierName(member, source)
		if methodName == "" {
			continue
		}
		startLine := member.StartRow + 1
		endLine := member.EndRow + 1
		methodBody := truncate(member.text(source), MaxBodyChars)
		out = append(out, Symbol{
			Name:       className + "." + methodName,
			Kind:       KindMethod,
			Language:   language,
			StartLine:  startLine,
			EndLine:    endLine,
			DocComment: docCommentAbove(lines, startLine),
			Body:       methodBody,
			Calls:      extractCalls(methodBody),
			Imports:    resolveImportsForBody(allImports, methodBody),
		})
	}
	return out
}

// identifierName extracts a declaration's own name, preferring the
// TS/JS `type_identifier`/`identifier`/`property_identifier` child that
// directly names it (not a nested one from, say, extends/implements).
func identifierName(n *node, source []byte) string {
	for _, c := range n.Children {
		switch c.Type {
		case "identifier", "type_identifier", "property_identifier":
			return c.text(source)
		}
	}
	return ""
}
