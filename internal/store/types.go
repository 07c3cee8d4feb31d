// Package store implements the §4.5 Vector Store: two logical tables,
// `solutions` and `code_symbols`, each carrying one fixed-width embedding
// vector (via an HNSW index, §4.5) and a full-text-indexed `embeddingText`
// (via SQLite FTS5, §4.5/I5).
package store

import (
	"context"
	"fmt"
)

// RecordSource distinguishes a StoredSolutionRecord from a StoredCodeRecord
// (§3 "source ∈ {transcript, code}").
type RecordSource string

const (
	SourceTranscript RecordSource = "transcript"
	SourceCode       RecordSource = "code"
)

// CurrentSchemaVersion is the schema version stamped onto every record
// written by this build (§3 StoredSolutionRecord/StoredCodeRecord.version).
const CurrentSchemaVersion = 1

// StoredSolutionRecord is the persistent form of a chunk.SolutionChunk.
type StoredSolutionRecord struct {
	ID            string
	CheckpointID  string
	SessionIndex  int
	Prompt        string
	Response      string
	DiffSummary   string
	Summary       string
	EmbeddingText string
	Agent         string
	Timestamp     int64
	FilesChanged  []string
	TokensUsed    int
	Symbols       []string
	Language      string
	Vector        []float32
	ContentHash   string // only set for local (uncommitted) checkpoints, I4
	Source        RecordSource
	Version       int
}

// StoredCodeRecord is the persistent form of a chunk.CodeChunk.
type StoredCodeRecord struct {
	ID            string
	Path          string
	Symbol        string
	SymbolType    string
	Language      string
	Body          string
	Summary       string
	EmbeddingText string
	Calls         string
	Imports       string
	LastModified  string
	Vector        []float32
	Source        RecordSource
	Version       int
}

// VectorResult is one nearest-neighbor hit.
type VectorResult struct {
	ID       string
	Distance float32
	Score    float32
}

// VectorStoreConfig configures an HNSW graph for one table.
type VectorStoreConfig struct {
	Dimensions     int
	Metric         string // "cos" or "l2"
	M              int
	EfConstruction int
	EfSearch       int
}

// DefaultVectorStoreConfig returns the defaults used for both tables (I3:
// every record's vector has exactly Dimensions components for the current
// embedding model).
func DefaultVectorStoreConfig(dimensions int) VectorStoreConfig {
	return VectorStoreConfig{
		Dimensions:     dimensions,
		Metric:         "cos",
		M:              32,
		EfConstruction: 128,
		EfSearch:       64,
	}
}

// VectorStore is the kNN side of one table.
type VectorStore interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Delete(ctx context.Context, ids []string) error
	AllIDs() []string
	Contains(id string) bool
	Count() int
	Save(path string) error
	Load(path string) error
	Close() error
}

// ErrDimensionMismatch signals a vector whose width doesn't match the
// table's configured dimension (I3: a model change requires dropping and
// re-creating the affected table).
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (drop and re-create the table for the new model)", e.Expected, e.Got)
}
