package sourceparse

import (
	"regexp"
	"strings"
)

// declPattern pairs a regex against a single source line with the symbol
// kind it signals and the capture group holding the declared name.
type declPattern struct {
	re        *regexp.Regexp
	kind      SymbolKind
	nameGroup int
}

// regexPatterns are evaluated in order per language; the first match on a
// line wins. Shared across C-family languages since their declaration
// shapes are close enough for a line-oriented fallback.
var regexPatterns = map[string][]declPattern{
	"go": {
		{regexp.MustCompile(`^func\s+\([^)]*\)\s*(\w+)\s*\(`), KindMethod, 1},
		{regexp.MustCompile(`^func\s+(\w+)\s*\(`), KindFunction, 1},
		{regexp.MustCompile(`^type\s+(\w+)\s+struct\b`), KindClass, 1},
		{regexp.MustCompile(`^type\s+(\w+)\s+interface\b`), KindInterface, 1},
		{regexp.MustCompile(`^type\s+(\w+)\s*=?\s*\w`), KindType, 1},
		{regexp.MustCompile(`^const\s+(\w+)\s*`), KindConstant, 1},
	},
	"python": {
		{regexp.MustCompile(`^\s*def\s+(\w+)\s*\(`), KindFunction, 1},
		{regexp.MustCompile(`^\s*class\s+(\w+)\b`), KindClass, 1},
	},
	"ruby": {
		{regexp.MustCompile(`^\s*def\s+(?:self\.)?(\w+)`), KindFunction, 1},
		{regexp.MustCompile(`^\s*class\s+(\w+)\b`), KindClass, 1},
		{regexp.MustCompile(`^\s*module\s+(\w+)\b`), KindType, 1},
	},
	"rust": {
		{regexp.MustCompile(`^\s*(?:pub\s+)?fn\s+(\w+)\s*[(<]`), KindFunction, 1},
		{regexp.MustCompile(`^\s*(?:pub\s+)?struct\s+(\w+)\b`), KindClass, 1},
		{regexp.MustCompile(`^\s*(?:pub\s+)?enum\s+(\w+)\b`), KindEnum, 1},
		{regexp.MustCompile(`^\s*(?:pub\s+)?trait\s+(\w+)\b`), KindInterface, 1},
	},
	"java": {
		{regexp.MustCompile(`^\s*(?:public|private|protected)?\s*(?:static\s+)?(?:final\s+)?class\s+(\w+)\b`), KindClass, 1},
		{regexp.MustCompile(`^\s*(?:public|private|protected)?\s*interface\s+(\w+)\b`), KindInterface, 1},
		{regexp.MustCompile(`^\s*(?:public|private|protected)\s+(?:static\s+)?(?:final\s+)?\s*[\w<>\[\]]+\s+(\w+)\s*\([^;]*$`), KindMethod, 1},
	},
	"csharp": {
		{regexp.MustCompile(`^\s*(?:public|private|protected|internal)?\s*(?:static\s+)?class\s+(\w+)\b`), KindClass, 1},
		{regexp.MustCompile(`^\s*(?:public|private|protected|internal)?\s*interface\s+(\w+)\b`), KindInterface, 1},
		{regexp.MustCompile(`^\s*(?:public|private|protected|internal)\s+(?:static\s+)?[\w<>\[\]]+\s+(\w+)\s*\([^;]*$`), KindMethod, 1},
	},
	"c": {
		{regexp.MustCompile(`^\s*struct\s+(\w+)\s*\{`), KindClass, 1},
		{regexp.MustCompile(`^[\w\*\s]+\s+(\w+)\s*\([^;]*\)\s*\{?\s*$`), KindFunction, 1},
	},
	"cpp": {
		{regexp.MustCompile(`^\s*class\s+(\w+)\b`), KindClass, 1},
		{regexp.MustCompile(`^[\w:<>\*\s]+\s+(\w+)\s*\([^;]*\)\s*\{?\s*$`), KindFunction, 1},
	},
	"php": {
		{regexp.MustCompile(`^\s*(?:public|private|protected)?\s*(?:static\s+)?function\s+(\w+)\s*\(`), KindFunction, 1},
		{regexp.MustCompile(`^\s*class\s+(\w+)\b`), KindClass, 1},
	},
}

// extractRegex scans source line by line for declarations matching
// language's patterns, and uses indentation/brace-depth to approximate
// each symbol's body extent.
func extractRegex(source []byte, language string) []Symbol {
	patterns := regexPatterns[language]
	if patterns == nil {
		return nil
	}

	lines := strings.Split(string(source), "\n")
	var out []Symbol
	for i, line := range lines {
		for _, p := range patterns {
			m := p.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			name := m[p.nameGroup]
			startLine := i + 1
			endLine := findBodyEnd(lines, i, language)
			body := truncate(strings.Join(lines[i:endLine], "\n"), MaxBodyChars)
			out = append(out, Symbol{
				Name:       name,
				Kind:       p.kind,
				Language:   language,
				StartLine:  startLine,
				EndLine:    endLine,
				DocComment: docCommentAbove(lines, startLine),
				Body:       body,
				Calls:      extractCalls(body),
			})
			break
		}
	}
	return out
}

// findBodyEnd walks forward from a declaration line tracking brace depth
// (or, for indentation-based languages, the indentation level) to find
// where the symbol's body ends. Falls back to a fixed window when neither
// signal resolves cleanly.
func findBodyEnd(lines []string, start int, language string) int {
	if language == "python" || language == "ruby" {
		return findBodyEndByIndent(lines, start)
	}

	depth := 0
	seenBrace := false
	limit := start + 400
	if limit > len(lines) {
		limit = len(lines)
	}
	for i := start; i < limit; i++ {
		for _, r := range lines[i] {
			switch r {
			case '{':
				depth++
				seenBrace = true
			case '}':
				depth--
			}
		}
		if seenBrace && depth <= 0 {
			return i + 1
		}
	}
	end := start + 60
	if end > len(lines) {
		end = len(lines)
	}
	return end
}

func findBodyEndByIndent(lines []string, start int) int {
	baseIndent := indentOf(lines[start])
	end := start + 1 // 1-indexed line of the last non-blank body line
	for i := start + 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		if indentOf(lines[i]) <= baseIndent {
			return end
		}
		end = i + 1
	}
	return end
}

func indentOf(line string) int {
	n := 0
	for _, r := range line {
		if r == ' ' {
			n++
		} else if r == '\t' {
			n += 4
		} else {
			break
		}
	}
	return n
}
