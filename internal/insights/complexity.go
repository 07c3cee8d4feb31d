package insights

import (
	"regexp"
	"strings"
)

// branchKeywords drive the cyclomatic count (§4.7: "cyclomatic from
// branching keywords / operators"). Kept language-agnostic since a body may
// be Go, TypeScript, Python, etc.
var branchKeywords = regexp.MustCompile(`\b(if|else if|elif|for|while|case|catch|except)\b`)

// branchOperators are short-circuit boolean operators, each adding one
// decision point.
var branchOperators = regexp.MustCompile(`(&&|\|\||\?\?)`)

// cyclomaticComplexity approximates McCabe complexity: one base path plus
// one per branch keyword/operator occurrence in body.
func cyclomaticComplexity(body string) int {
	complexity := 1
	complexity += len(branchKeywords.FindAllString(body, -1))
	complexity += len(branchOperators.FindAllString(body, -1))
	return complexity
}

// cognitiveComplexity adds a nesting penalty on top of the branch count:
// each branch keyword found while inside deeper brace nesting costs more
// (§4.7: "cognitive with nesting penalty").
func cognitiveComplexity(body string) int {
	lines := strings.Split(body, "\n")
	depth := 0
	total := 0
	for _, line := range lines {
		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if depth < 0 {
			depth = 0
		}
		hits := len(branchKeywords.FindAllString(line, -1)) + len(branchOperators.FindAllString(line, -1))
		if hits > 0 {
			total += hits * (1 + depth)
		}
	}
	return total
}

// hasDoc reports whether summary looks like a real doc comment prefix
// rather than the chunker's "{type} {name}" fallback (§4.7: "hasDoc from
// non-empty doc").
func hasDoc(symbolType, symbol, summary string) bool {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return false
	}
	fallback := symbolType + " " + symbol
	return summary != fallback
}

// complexityBucket classifies a cyclomatic score into one of the four
// CodeInsights.ComplexityDistribution buckets.
func complexityBucket(cyclomatic int) string {
	switch {
	case cyclomatic <= 5:
		return "1-5"
	case cyclomatic <= 10:
		return "6-10"
	case cyclomatic <= 20:
		return "11-20"
	default:
		return "21+"
	}
}
