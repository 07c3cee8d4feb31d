// Package chunk splits ParsedCheckpoints into SolutionChunks and source
// files' extracted symbols into CodeChunks, building each chunk's stable id
// and embedding text (§4.3).
package chunk

// Length caps shared by both chunk kinds (§3, §4.3).
const (
	MaxResponseChars    = 2000
	MaxDiffChars        = 1000
	MaxEmbeddingChars   = 4000
	MaxFilesChanged     = 20
	MaxSymbolsPerChunk  = 30
	CodeBodyPrefixChars = 1800
)

// SolutionChunkMetadata mirrors §3's SolutionChunk.metadata.
type SolutionChunkMetadata struct {
	Agent        string
	Timestamp    int64
	FilesChanged []string
	TokensUsed   int
	Symbols      []string
	Language     string
}

// SolutionChunk is one user<->assistant pair within a session (§3, §4.3).
type SolutionChunk struct {
	ID            string
	CheckpointID  string
	SessionIndex  int
	PairIndex     int
	Prompt        string
	Response      string
	DiffSummary   string
	Summary       string
	EmbeddingText string
	Metadata      SolutionChunkMetadata
}

// CodeChunk is one extracted symbol from a source file (§3, §4.3).
type CodeChunk struct {
	ID            string
	Path          string
	Symbol        string
	SymbolType    string
	Language      string
	Body          string
	Summary       string
	EmbeddingText string
	Calls         string // CSV, ≤30 identifiers
	Imports       string // CSV of name:source pairs, ≤30
	LastModified  string // ISO 8601
}
