package search

import (
	"math"
	"regexp"
	"strings"
)

const (
	recencyWeight        = 0.15
	fileOverlapWeight    = 0.25
	keywordDensityWeight = 0.35
	symbolMatchWeight    = 0.25

	recencyHalfLifeDays = 14
	minTokenLength      = 3
	minSymbolTokenLen   = 4
)

var (
	tokenRe  = regexp.MustCompile(`[A-Za-z0-9_]+`)
	symbolRe = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*\b`)
)

// tokenize splits text on non-identifier boundaries, lowercases, and keeps
// tokens at least minLen characters long.
func tokenize(text string, minLen int) []string {
	var out []string
	for _, tok := range tokenRe.FindAllString(text, -1) {
		if len(tok) >= minLen {
			out = append(out, strings.ToLower(tok))
		}
	}
	return out
}

// querySymbols is identifiers matched by the symbol regex, unioned with
// tokens of length >= 4 starting with a letter (§4.6 Step 5 symbolMatch).
func querySymbols(queryText string) []string {
	seen := map[string]bool{}
	var out []string
	add := func(s string) {
		s = strings.ToLower(s)
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, m := range symbolRe.FindAllString(queryText, -1) {
		add(m)
	}
	for _, t := range tokenRe.FindAllString(queryText, -1) {
		if len(t) >= minSymbolTokenLen && isLetter(rune(t[0])) {
			add(t)
		}
	}
	return out
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func recency(ageDays float64) float64 {
	return math.Pow(2, -ageDays/recencyHalfLifeDays)
}

func fileOverlap(filterFiles []string, filesChanged []string) float64 {
	if len(filterFiles) == 0 {
		return 0
	}
	matched := 0
	for _, want := range filterFiles {
		want = strings.ToLower(want)
		for _, have := range filesChanged {
			if strings.Contains(strings.ToLower(have), want) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(filterFiles))
}

func keywordDensity(queryText string, haystacks ...string) float64 {
	tokens := tokenize(queryText, minTokenLength)
	if len(tokens) == 0 {
		return 0
	}
	combined := strings.ToLower(strings.Join(haystacks, " "))
	matched := 0
	for _, t := range tokens {
		if strings.Contains(combined, t) {
			matched++
		}
	}
	return float64(matched) / float64(len(tokens))
}

func symbolMatch(symbols []string, embeddingText string) float64 {
	if len(symbols) == 0 {
		return 0
	}
	lower := strings.ToLower(embeddingText)
	matched := 0
	for _, s := range symbols {
		if strings.Contains(lower, s) {
			matched++
		}
	}
	return float64(matched) / float64(len(symbols))
}

// rerankScore implements §4.6 Step 5:
//
//	finalScore = fusedScore * (1 + 0.15*recency + 0.25*fileOverlap +
//	             0.35*keywordDensity + 0.25*symbolMatch)
func rerankScore(fusedScore float64, c candidate, filter Filter, nowUnix int64) float64 {
	symbols := querySymbols(filter.QueryText)

	var rec float64
	if c.timestamp > 0 {
		ageDays := float64(nowUnix-c.timestamp) / 86400
		if ageDays < 0 {
			ageDays = 0
		}
		rec = recency(ageDays)
	}

	fo := fileOverlap(filter.Files, c.filesChanged)
	kd := keywordDensity(filter.QueryText, c.prompt, c.summary, c.embeddingText)
	sm := symbolMatch(symbols, c.embeddingText)

	return fusedScore * (1 + recencyWeight*rec + fileOverlapWeight*fo + keywordDensityWeight*kd + symbolMatchWeight*sm)
}
