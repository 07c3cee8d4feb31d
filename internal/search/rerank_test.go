package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRerankScore_FactorsBoundResultBetweenFusedAndDoubled(t *testing.T) {
	c := candidate{
		filesChanged:  []string{"config.go"},
		prompt:        "how does parseConfig work",
		summary:       "explains parseConfig",
		embeddingText: "parseConfig reads config.go",
		timestamp:     1000,
	}
	filter := Filter{QueryText: "parseConfig", Files: []string{"config.go"}}

	final := rerankScore(1.0, c, filter, 1000)
	assert.GreaterOrEqual(t, final, 1.0)
	assert.LessOrEqual(t, final, 2.0)
}

func TestRerankScore_NoSignalsLeavesFusedScoreUnchanged(t *testing.T) {
	c := candidate{}
	filter := Filter{QueryText: "nomatch"}
	final := rerankScore(0.5, c, filter, 1000)
	assert.InDelta(t, 0.5, final, 1e-9)
}

func TestRecency_DecaysWithAge(t *testing.T) {
	assert.InDelta(t, 1.0, recency(0), 1e-9)
	assert.Less(t, recency(14), recency(0))
	assert.InDelta(t, 0.5, recency(14), 1e-9)
}

func TestFileOverlap_EmptyFilterYieldsZero(t *testing.T) {
	assert.Equal(t, 0.0, fileOverlap(nil, []string{"a.go"}))
}

func TestFileOverlap_MatchesCaseInsensitiveSubstring(t *testing.T) {
	got := fileOverlap([]string{"Config.go"}, []string{"src/config.go"})
	assert.InDelta(t, 1.0, got, 1e-9)
}

func TestKeywordDensity_CountsMatchedTokensOverTotal(t *testing.T) {
	// Tokens match as substrings of the lowercased text: "parse" and
	// "config" both occur inside "parseconfig", and "file" occurs as-is.
	got := keywordDensity("parse config file", "parseConfig reads a file")
	assert.InDelta(t, 3.0/3, got, 1e-9)
}

func TestSymbolMatch_CountsMatchedSymbolsOverTotal(t *testing.T) {
	symbols := querySymbols("parseConfig loadFile")
	got := symbolMatch(symbols, "func parseConfig() { loadFile() }")
	assert.Greater(t, got, 0.0)
}
