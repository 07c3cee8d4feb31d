package sourceparse

import "strings"

// MaxBodyChars caps Symbol.Body (spec §3 CodeSymbol.body ≤ 3000 chars).
const MaxBodyChars = 3000

// docCommentAbove scans the source lines immediately preceding startLine
// (1-indexed) for a JSDoc block comment or a contiguous run of `//` line
// comments, and returns the comment text with comment markers stripped.
func docCommentAbove(lines []string, startLine int) string {
	i := startLine - 2 // index of the line just above startLine (0-indexed)
	if i < 0 || i >= len(lines) {
		return ""
	}

	trimmed := strings.TrimSpace(lines[i])

	// JSDoc block: walk upward until the opening /** is found.
	if strings.HasSuffix(trimmed, "*/") {
		end := i
		start := end
		for start >= 0 && !strings.Contains(lines[start], "/**") {
			start--
		}
		if start < 0 {
			return ""
		}
		var b strings.Builder
		for j := start; j <= end; j++ {
			line := strings.TrimSpace(lines[j])
			line = strings.TrimPrefix(line, "/**")
			line = strings.TrimSuffix(line, "*/")
			line = strings.TrimPrefix(line, "*")
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(line)
		}
		return b.String()
	}

	// Contiguous `//` lines directly above the declaration.
	if strings.HasPrefix(trimmed, "//") {
		end := i
		start := end
		for start > 0 && strings.HasPrefix(strings.TrimSpace(lines[start-1]), "//") {
			start--
		}
		var parts []string
		for j := start; j <= end; j++ {
			parts = append(parts, strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(lines[j]), "//")))
		}
		return strings.Join(parts, "\n")
	}

	return ""
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
