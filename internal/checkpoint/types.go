// Package checkpoint implements the §4.1 Checkpoint Parser: ParsedCheckpoint
// records read from a dedicated git branch (one commit ≈ one checkpoint) and
// a local `metadata/` directory of not-yet-committed captures. Parse reads
// both sources in full on each call and returns one slice; it does not
// stream records lazily.
package checkpoint

import "time"

// Role is the speaker of one transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Entry is one transcript turn.
type Entry struct {
	Role    Role
	Content string
}

// TokenUsage records provider-reported token counts for a session, when known.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
}

// Session is one ordered transcript within a checkpoint.
type Session struct {
	CheckpointID string
	SessionIndex int
	Transcript   []Entry
	Agent        string
	Usage        TokenUsage
	// Prompts is a fallback raw text blob used when Transcript could not be
	// structured into turns (spec §3: "optional `prompts` fallback text").
	Prompts string
}

// ParsedCheckpoint is one atomic capture of an AI coding session.
type ParsedCheckpoint struct {
	ID        string
	Timestamp time.Time
	Sessions  []Session
}

// LocalIDPrefix marks checkpoints captured locally (not yet committed to the
// checkpoints branch). Used for content-addressed freshness (I4).
const LocalIDPrefix = "local-"

// IsLocal reports whether a checkpoint id denotes an uncommitted local capture.
func IsLocal(id string) bool {
	return len(id) >= len(LocalIDPrefix) && id[:len(LocalIDPrefix)] == LocalIDPrefix
}

func unixTime(seconds int64) time.Time {
	if seconds == 0 {
		return time.Time{}
	}
	return time.Unix(seconds, 0).UTC()
}
