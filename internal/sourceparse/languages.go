package sourceparse

import "strings"

// extToLanguage maps a lowercase file extension to a language tag. Entries
// with an AST grammar in astLanguages get real-AST extraction; everything
// else uses the regex fallback, tagged by this same name.
var extToLanguage = map[string]string{
	".ts":  "typescript",
	".tsx": "tsx",
	".js":  "javascript",
	".mjs": "javascript",
	".cjs": "javascript",
	".jsx": "jsx",
	".go":  "go",
	".py":  "python",
	".rb":  "ruby",
	".rs":  "rust",
	".java": "java",
	".c":   "c",
	".h":   "c",
	".cpp": "cpp",
	".hpp": "cpp",
	".cs":  "csharp",
	".php": "php",
}

// LanguageForPath returns the language tag for a file path's extension, or
// ok=false for an extension this parser does not recognize at all.
func LanguageForPath(path string) (string, bool) {
	ext := extOf(path)
	lang, ok := extToLanguage[ext]
	return lang, ok
}

func extOf(path string) string {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		return ""
	}
	return strings.ToLower(path[idx:])
}

func hasAST(language string) bool {
	_, ok := astLanguages[language]
	return ok
}
