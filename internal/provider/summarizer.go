package provider

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// MaxSummarizerInputChars bounds the head+tail truncated input handed to
// the chat provider (§4.4).
const MaxSummarizerInputChars = 8000

const summarizerSystemPrompt = `You summarize a coding session in 2-3 sentences.
Structure the answer as TASK / APPROACH / SCOPE: what was asked, how it was
solved, and what files or symbols were touched. Return only the digest text.`

// ChatFunc issues one chat completion call against a provider-backed model.
type ChatFunc func(ctx context.Context, systemPrompt, userContent string) (string, error)

// ChatSummarizer calls a chat-completion provider with a fixed system
// prompt and falls back to a deterministic digest on any failure.
type ChatSummarizer struct {
	chat ChatFunc
}

// NewChatSummarizer wraps chat as a Summarizer.
func NewChatSummarizer(chat ChatFunc) *ChatSummarizer {
	return &ChatSummarizer{chat: chat}
}

func (s *ChatSummarizer) Summarize(ctx context.Context, prompt, response, diff string) (string, error) {
	userContent := truncateHeadTail(buildSummarizerInput(prompt, response, diff), MaxSummarizerInputChars)

	if s.chat != nil {
		if digest, err := s.chat(ctx, summarizerSystemPrompt, userContent); err == nil {
			digest = strings.TrimSpace(digest)
			if digest != "" {
				return digest, nil
			}
		}
	}
	return FallbackDigest(prompt, response, diff), nil
}

func buildSummarizerInput(prompt, response, diff string) string {
	var b strings.Builder
	b.WriteString("Prompt:\n")
	b.WriteString(prompt)
	b.WriteString("\n\nResponse:\n")
	b.WriteString(response)
	if diff != "" {
		b.WriteString("\n\nDiff:\n")
		b.WriteString(diff)
	}
	return b.String()
}

// truncateHeadTail keeps the first and last halves of s when it exceeds
// max, dropping the middle — preserves the opening question and closing
// outcome, the two most summary-relevant parts of a long transcript.
func truncateHeadTail(s string, max int) string {
	if len(s) <= max {
		return s
	}
	half := max / 2
	return s[:half] + "\n...\n" + s[len(s)-half:]
}

var diffFileRe = regexp.MustCompile(`(?m)^\+\+\+ b?/?(.+)$`)

// FallbackDigest builds a deterministic summary when the chat provider is
// unavailable or fails: the first meaningful line of prompt+response, plus
// a file list scraped from the diff (§4.4).
func FallbackDigest(prompt, response, diff string) string {
	line := firstMeaningfulLine(prompt + "\n" + response)
	if line == "" {
		line = "Coding session with no recorded summary text."
	}

	files := diffFileRe.FindAllStringSubmatch(diff, -1)
	if len(files) == 0 {
		return line
	}

	names := make([]string, 0, len(files))
	for _, m := range files {
		names = append(names, strings.TrimSpace(m[1]))
	}
	return fmt.Sprintf("%s (touched: %s)", line, strings.Join(names, ", "))
}

func firstMeaningfulLine(text string) string {
	for _, l := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(l)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
