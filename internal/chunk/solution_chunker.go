package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/agentmemory/agentmemory/internal/checkpoint"
)

// declarationRe matches identifier-shaped tokens worth treating as a
// referenced symbol: any word of three or more letters, digits or
// underscores that starts with a letter or underscore. Plain lowercase
// English words match too; they are not filtered out.
var declarationRe = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]{2,}\b`)

var diffMarkerRe = regexp.MustCompile(`(^|\n)(diff --git|\+\+\+|---)`)

// SolutionChunkerConfig configures the solution chunker. FilenameDenylist
// defaults to DefaultFilenameDenylist when nil (Q3).
type SolutionChunkerConfig struct {
	FilenameDenylist []string
}

// SolutionChunker turns a ParsedCheckpoint's sessions into SolutionChunks.
type SolutionChunker struct {
	denylist map[string]bool
}

// NewSolutionChunker returns a SolutionChunker with the given config.
func NewSolutionChunker(cfg SolutionChunkerConfig) *SolutionChunker {
	list := cfg.FilenameDenylist
	if list == nil {
		list = DefaultFilenameDenylist
	}
	return &SolutionChunker{denylist: denylistSet(list)}
}

// Chunk splits every session in cp into SolutionChunks.
func (c *SolutionChunker) Chunk(cp checkpoint.ParsedCheckpoint) []SolutionChunk {
	var out []SolutionChunk
	for _, session := range cp.Sessions {
		out = append(out, c.chunkSession(session)...)
	}
	return out
}

func (c *SolutionChunker) chunkSession(session checkpoint.Session) []SolutionChunk {
	pairs := pairTranscript(session.Transcript)
	if len(pairs) == 0 {
		if strings.TrimSpace(session.Prompts) == "" {
			return nil
		}
		pairs = []transcriptPair{{prompt: session.Prompts}}
	}

	diff := extractDiff(session.Transcript)
	if len(diff) > MaxDiffChars {
		diff = diff[:MaxDiffChars]
	}

	language := inferLanguageMajority(session.Transcript)

	chunks := make([]SolutionChunk, 0, len(pairs))
	for i, pair := range pairs {
		response := pair.response
		if len(response) > MaxResponseChars {
			response = response[:MaxResponseChars]
		}

		diffSummary := ""
		if i == 0 {
			diffSummary = diff
		}

		symbols := unionSymbols(pair.prompt, response, diffSummary, session.Transcript, c.denylist)
		filesChanged := filesChangedFrom(diffSummary, c.denylist)

		summary := fallbackSummary(pair.prompt, response, diffSummary)
		embeddingText := buildSolutionEmbeddingText(symbols, pair.prompt, response, diffSummary)

		chunks = append(chunks, SolutionChunk{
			ID:            fmt.Sprintf("%s-%d-%d", session.CheckpointID, session.SessionIndex, i),
			CheckpointID:  session.CheckpointID,
			SessionIndex:  session.SessionIndex,
			PairIndex:     i,
			Prompt:        pair.prompt,
			Response:      response,
			DiffSummary:   diffSummary,
			Summary:       summary,
			EmbeddingText: embeddingText,
			Metadata: SolutionChunkMetadata{
				Agent:        session.Agent,
				FilesChanged: filesChanged,
				TokensUsed:   session.Usage.PromptTokens + session.Usage.CompletionTokens,
				Symbols:      symbols,
				Language:     language,
			},
		})
	}
	return chunks
}

type transcriptPair struct {
	prompt   string
	response string
}

// pairTranscript concatenates consecutive user entries into one prompt,
// closing the pair on the next assistant entry.
func pairTranscript(transcript []checkpoint.Entry) []transcriptPair {
	var pairs []transcriptPair
	var promptParts []string

	for _, entry := range transcript {
		switch entry.Role {
		case checkpoint.RoleUser:
			promptParts = append(promptParts, entry.Content)
		case checkpoint.RoleAssistant:
			if len(promptParts) == 0 {
				continue
			}
			pairs = append(pairs, transcriptPair{
				prompt:   strings.Join(promptParts, "\n"),
				response: entry.Content,
			})
			promptParts = nil
		}
	}
	return pairs
}

func extractDiff(transcript []checkpoint.Entry) string {
	var parts []string
	for _, entry := range transcript {
		if entry.Role != checkpoint.RoleTool {
			continue
		}
		if strings.Contains(entry.Content, "diff") || diffMarkerRe.MatchString(entry.Content) {
			parts = append(parts, entry.Content)
		}
	}
	return strings.Join(parts, "\n")
}

func inferLanguageMajority(transcript []checkpoint.Entry) string {
	counts := map[string]int{}
	for _, entry := range transcript {
		for _, path := range candidatePaths(entry.Content) {
			ext := strings.ToLower(filepath.Ext(path))
			if ext != "" {
				counts[strings.TrimPrefix(ext, ".")]++
			}
		}
	}
	best, bestCount := "", 0
	for lang, n := range counts {
		if n > bestCount {
			best, bestCount = lang, n
		}
	}
	return best
}

var pathLikeRe = regexp.MustCompile(`[\w./-]+\.\w{1,5}\b`)

func candidatePaths(text string) []string {
	return pathLikeRe.FindAllString(text, -1)
}

func filesChangedFrom(diff string, denylist map[string]bool) []string {
	if diff == "" {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, path := range candidatePaths(diff) {
		base := filepath.Base(path)
		if denylist[strings.ToLower(base)] {
			continue
		}
		if seen[path] {
			continue
		}
		seen[path] = true
		out = append(out, path)
		if len(out) >= MaxFilesChanged {
			break
		}
	}
	return out
}

func unionSymbols(prompt, response, diff string, transcript []checkpoint.Entry, denylist map[string]bool) []string {
	seen := map[string]bool{}
	var out []string
	// add returns false once the cap is reached, signalling the caller to
	// stop scanning entirely; duplicates/denylisted names are silently
	// skipped without affecting that signal.
	add := func(name string) bool {
		if len(out) >= MaxSymbolsPerChunk {
			return false
		}
		if seen[name] || denylist[strings.ToLower(name)] {
			return true
		}
		seen[name] = true
		out = append(out, name)
		return len(out) < MaxSymbolsPerChunk
	}

	for _, text := range []string{prompt, response, diff} {
		for _, m := range declarationRe.FindAllString(text, -1) {
			if !add(m) {
				return out
			}
		}
	}
	for _, entry := range transcript {
		if entry.Role == checkpoint.RoleAssistant || entry.Role == checkpoint.RoleTool {
			for _, m := range declarationRe.FindAllString(entry.Content, -1) {
				if !add(m) {
					return out
				}
			}
		}
	}
	return out
}

func fallbackSummary(prompt, response, diff string) string {
	first := firstMeaningfulLine(prompt)
	if first == "" {
		first = firstMeaningfulLine(response)
	}
	if first == "" {
		return "Session activity with no recorded prompt text."
	}
	return first
}

func firstMeaningfulLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func buildSolutionEmbeddingText(symbols []string, prompt, response, diff string) string {
	var b strings.Builder
	b.WriteString("Symbols: ")
	b.WriteString(strings.Join(symbols, ", "))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(prompt)
	b.WriteString("\n\nAnswer: ")
	b.WriteString(response)
	b.WriteString("\n\nChanges: ")
	b.WriteString(diff)

	text := b.String()
	if len(text) > MaxEmbeddingChars {
		text = text[:MaxEmbeddingChars]
	}
	return text
}

// ContentHashOfText returns the 16-hex sha256 prefix of arbitrary text, the
// same key format cache.KeyFor produces for embedding cache lookups (§4.4).
func ContentHashOfText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:16]
}
