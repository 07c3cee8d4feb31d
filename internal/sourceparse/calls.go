package sourceparse

import "regexp"

// callRe matches `identifier(` call sites, including member calls like `a.b(`
// (captures only the final segment, `b`).
var callRe = regexp.MustCompile(`(?:^|\W)([A-Za-z_]\w*)\s*\(`)

var identifierRe = regexp.MustCompile(`\b[A-Za-z_]\w*\b`)

// keywordsAndBuiltins is excluded from extracted call identifiers across
// languages — control-flow keywords and the handful of universal builtins.
var keywordsAndBuiltins = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"function": true, "return": true, "else": true, "do": true, "with": true,
	"func": true, "defer": true, "go": true, "select": true,
	"def": true, "elif": true, "except": true, "lambda": true,
	"console": true, "require": true, "import": true, "typeof": true,
	"new": true, "delete": true, "void": true, "yield": true, "await": true,
	"print": true, "len": true, "range": true,
}

// extractCalls returns the deduped, order-preserving set of outgoing call
// identifiers in body, excluding keywords/builtins, capped at MaxCalls.
func extractCalls(body string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range callRe.FindAllStringSubmatch(body, -1) {
		name := m[1]
		if seen[name] || keywordsAndBuiltins[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
		if len(out) >= MaxCalls {
			break
		}
	}
	return out
}

func containsIdentifier(body, name string) bool {
	for _, m := range identifierRe.FindAllString(body, -1) {
		if m == name {
			return true
		}
	}
	return false
}
