package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmemory/agentmemory/internal/checkpoint"
)

func TestSolutionChunker_PairsUserAndAssistantTurns(t *testing.T) {
	cp := checkpoint.ParsedCheckpoint{
		Sessions: []checkpoint.Session{
			{
				CheckpointID: "cp-1",
				SessionIndex: 0,
				Agent:        "claude",
				Transcript: []checkpoint.Entry{
					{Role: checkpoint.RoleUser, Content: "How does parseConfig work?"},
					{Role: checkpoint.RoleAssistant, Content: "It reads config.json and validates Defaults."},
					{Role: checkpoint.RoleUser, Content: "Write unit tests for it"},
					{Role: checkpoint.RoleAssistant, Content: "Added TestParseConfig in config_test.go"},
				},
			},
		},
	}

	c := NewSolutionChunker(SolutionChunkerConfig{})
	chunks := c.Chunk(cp)
	require.Len(t, chunks, 2)
	assert.Equal(t, "cp-1-0-0", chunks[0].ID)
	assert.Equal(t, "cp-1-0-1", chunks[1].ID)
	assert.Contains(t, chunks[0].Prompt, "parseConfig")
	assert.Contains(t, chunks[1].Prompt, "unit tests")
}

func TestSolutionChunker_SessionWithOnlyPromptsYieldsOneChunk(t *testing.T) {
	cp := checkpoint.ParsedCheckpoint{
		Sessions: []checkpoint.Session{
			{CheckpointID: "cp-2", SessionIndex: 0, Prompts: "Investigated flaky test timeout."},
		},
	}
	c := NewSolutionChunker(SolutionChunkerConfig{})
	chunks := c.Chunk(cp)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Investigated flaky test timeout.", chunks[0].Prompt)
}

func TestSolutionChunker_DiffOnlyAttachedToFirstPair(t *testing.T) {
	cp := checkpoint.ParsedCheckpoint{
		Sessions: []checkpoint.Session{
			{
				CheckpointID: "cp-3",
				SessionIndex: 0,
				Transcript: []checkpoint.Entry{
					{Role: checkpoint.RoleUser, Content: "fix the bug"},
					{Role: checkpoint.RoleTool, Content: "diff --git a/main.go b/main.go\n+++ b/main.go\n---\n"},
					{Role: checkpoint.RoleAssistant, Content: "fixed"},
					{Role: checkpoint.RoleUser, Content: "thanks"},
					{Role: checkpoint.RoleAssistant, Content: "np"},
				},
			},
		},
	}
	c := NewSolutionChunker(SolutionChunkerConfig{})
	chunks := c.Chunk(cp)
	require.Len(t, chunks, 2)
	assert.NotEmpty(t, chunks[0].DiffSummary)
	assert.Empty(t, chunks[1].DiffSummary)
}

func TestSolutionChunker_EmbeddingTextIsCapped(t *testing.T) {
	longResponse := make([]byte, 10000)
	for i := range longResponse {
		longResponse[i] = 'a'
	}
	cp := checkpoint.ParsedCheckpoint{
		Sessions: []checkpoint.Session{
			{
				CheckpointID: "cp-4",
				SessionIndex: 0,
				Transcript: []checkpoint.Entry{
					{Role: checkpoint.RoleUser, Content: "explain"},
					{Role: checkpoint.RoleAssistant, Content: string(longResponse)},
				},
			},
		},
	}
	c := NewSolutionChunker(SolutionChunkerConfig{})
	chunks := c.Chunk(cp)
	require.Len(t, chunks, 1)
	assert.LessOrEqual(t, len(chunks[0].EmbeddingText), MaxEmbeddingChars)
	assert.LessOrEqual(t, len(chunks[0].Response), MaxResponseChars)
}

func TestSolutionChunker_DenylistFiltersFrameworkFilenames(t *testing.T) {
	cp := checkpoint.ParsedCheckpoint{
		Sessions: []checkpoint.Session{
			{
				CheckpointID: "cp-5",
				SessionIndex: 0,
				Transcript: []checkpoint.Entry{
					{Role: checkpoint.RoleUser, Content: "upgrade our node.js deps and edit app/server.ts"},
					{Role: checkpoint.RoleTool, Content: "diff --git a/node.js b/app/server.ts\n+++ a/app/server.ts\n---\n"},
					{Role: checkpoint.RoleAssistant, Content: "done"},
				},
			},
		},
	}
	c := NewSolutionChunker(SolutionChunkerConfig{})
	chunks := c.Chunk(cp)
	require.Len(t, chunks, 1)
	for _, f := range chunks[0].Metadata.FilesChanged {
		assert.NotEqual(t, "node.js", f)
	}
}
