// Package sync implements the §4.9 Sync Orchestrator: the end-to-end
// pipeline that turns freshly parsed checkpoints and changed source files
// into indexed solutions/code_symbols rows, reporting progress through a
// bounded typed event channel rather than callbacks.
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/agentmemory/agentmemory/internal/cache"
	"github.com/agentmemory/agentmemory/internal/checkpoint"
	"github.com/agentmemory/agentmemory/internal/chunk"
	"github.com/agentmemory/agentmemory/internal/errs"
	"github.com/agentmemory/agentmemory/internal/insights"
	"github.com/agentmemory/agentmemory/internal/provider"
	"github.com/agentmemory/agentmemory/internal/sourceparse"
	"github.com/agentmemory/agentmemory/internal/store"
)

// DefaultEmbedConcurrency bounds concurrent provider calls absent an
// explicit Options.EmbedConcurrency (§5: "default 5 concurrent").
const DefaultEmbedConcurrency = 5

// Step names the pipeline stage a progress Event was raised from (§6
// progress event schema).
type Step string

const (
	StepParsing     Step = "parsing"
	StepChunking    Step = "chunking"
	StepSummarizing Step = "summarizing"
	StepEmbedding   Step = "embedding"
	StepIndexing    Step = "indexing"
	StepCodeIndex   Step = "code-index"
	StepDone        Step = "done"
)

// Event is one typed progress notification (§6).
type Event struct {
	Step     Step
	Message  string
	Progress *float64 // fraction in [0,1]; nil when not applicable to this step
}

func fraction(done, total int) *float64 {
	f := 0.0
	if total > 0 {
		f = float64(done) / float64(total)
	}
	return &f
}

// emit delivers ev without blocking the pipeline on a full channel. Every
// step but "done" may be dropped (oldest first) under backpressure; "done"
// is never dropped since callers rely on channel closure following it
// (§9 design notes: "drop oldest progress, never drop done").
func emit(events chan Event, ev Event) {
	if events == nil {
		return
	}
	if ev.Step == StepDone {
		events <- ev
		return
	}
	select {
	case events <- ev:
		return
	default:
	}
	select {
	case <-events:
	default:
	}
	select {
	case events <- ev:
	default:
	}
}

// Options configures one Run. File discovery for the code-index phase is a
// caller concern (CLI flag, file watcher, MCP tool) — the orchestrator only
// re-indexes the paths it is handed.
type Options struct {
	RepoPath    string
	BranchName  string
	MetadataDir string

	ChangedCodeFiles []string

	EmbedConcurrency int
}

// Result summarizes one completed run.
type Result struct {
	NewSolutionChunks   int
	UpsertedCheckpoints int
	CodeFilesIndexed    int
	CodeFilesFailed     int
	Duration            time.Duration
	Warnings            []string
}

// Orchestrator wires every component the pipeline drives.
type Orchestrator struct {
	store    *store.Store
	insights *insights.Engine

	checkpoints *checkpoint.Parser
	solutions   *chunk.SolutionChunker
	code        *chunk.CodeChunker
	source      *sourceparse.Parser

	embedder   provider.Embedder
	summarizer provider.Summarizer

	embedCache  *cache.EmbeddingCache
	searchCache *cache.SearchCache
	lock        *cache.SyncLock

	now func() int64
}

// Dependencies groups the Orchestrator's required collaborators.
type Dependencies struct {
	Store    *store.Store
	Insights *insights.Engine

	Checkpoints *checkpoint.Parser
	Solutions   *chunk.SolutionChunker
	Code        *chunk.CodeChunker
	Source      *sourceparse.Parser

	Embedder   provider.Embedder
	Summarizer provider.Summarizer

	EmbedCache  *cache.EmbeddingCache
	SearchCache *cache.SearchCache
	Lock        *cache.SyncLock

	Now func() int64
}

// New builds an Orchestrator from deps.
func New(deps Dependencies) *Orchestrator {
	now := deps.Now
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	return &Orchestrator{
		store:       deps.Store,
		insights:    deps.Insights,
		checkpoints: deps.Checkpoints,
		solutions:   deps.Solutions,
		code:        deps.Code,
		source:      deps.Source,
		embedder:    deps.Embedder,
		summarizer:  deps.Summarizer,
		embedCache:  deps.EmbedCache,
		searchCache: deps.SearchCache,
		lock:        deps.Lock,
		now:         now,
	}
}

// checkpointGroup is one checkpoint's chunks carried through
// chunking/summarizing/embedding together, so indexing can insert or
// upsert them as one atomic unit (§5: "chunks for the same checkpoint are
// inserted atomically from the caller's perspective").
type checkpointGroup struct {
	checkpointID     string
	isNew            bool // true: append via InsertSolutionChunks. false: UpsertSolutionChunks.
	contentHash      string
	sourceCheckpoint checkpoint.ParsedCheckpoint
	chunks           []chunk.SolutionChunk
	vectors          [][]float32
}

// Run executes the full pipeline once, acquiring the sync lock for its
// write phase and releasing it on every exit path. events may be nil to
// run silently.
func (o *Orchestrator) Run(ctx context.Context, opts Options, events chan Event) (*Result, error) {
	if events != nil {
		defer close(events)
	}
	start := time.Now()
	result := &Result{}

	if err := o.lock.Acquire(ctx); err != nil {
		return nil, err
	}
	defer func() { _ = o.lock.Release() }()

	groups, err := o.parseAndDiff(ctx, opts, events)
	if err != nil {
		return nil, err
	}

	if len(groups) > 0 {
		if err := o.chunkGroups(ctx, groups, events); err != nil {
			return nil, err
		}
		if err := o.summarizeGroups(ctx, groups, events); err != nil {
			return nil, err
		}
		if err := o.embedGroups(ctx, groups, opts, events); err != nil {
			return nil, err
		}
		if err := o.indexGroups(ctx, groups, events); err != nil {
			return nil, err
		}

		for _, g := range groups {
			if g.isNew {
				result.NewSolutionChunks += len(g.chunks)
			} else {
				result.UpsertedCheckpoints++
			}
		}

		emit(events, Event{Step: StepIndexing, Message: "fts index synchronized incrementally"})

		if err := o.searchCache.Clear(); err != nil {
			return nil, err
		}
	}

	if len(opts.ChangedCodeFiles) > 0 {
		indexed, failed, warnings := o.runCodeIndex(ctx, opts.ChangedCodeFiles, events)
		result.CodeFilesIndexed = indexed
		result.CodeFilesFailed = failed
		result.Warnings = append(result.Warnings, warnings...)
		if indexed > 0 {
			o.insights.Invalidate()
		}
	}

	result.Duration = time.Since(start)
	emit(events, Event{Step: StepDone, Message: "sync complete"})
	return result, nil
}

// parseAndDiff implements "parsing → diff against getIndexedChunkIds's
// checkpoint-id set; split candidates into (newRemote, changedLocal via
// I4)" (§4.9). Branch (committed) checkpoints are immutable, so already
// indexed ones are filtered out before the parse even runs; local
// (uncommitted) checkpoints are always re-read since an edit does not
// change their id, only their content hash.
func (o *Orchestrator) parseAndDiff(ctx context.Context, opts Options, events chan Event) ([]*checkpointGroup, error) {
	emit(events, Event{Step: StepParsing, Message: "parsing checkpoints"})

	if err := ctx.Err(); err != nil {
		return nil, errs.New(errs.CodeCancelled, "sync cancelled during parsing", err)
	}

	indexed, err := o.store.GetIndexedChunkIds(ctx)
	if err != nil {
		return nil, err
	}

	branchKnown := map[string]bool{}
	for id := range indexed {
		if !checkpoint.IsLocal(id) {
			branchKnown[id] = true
		}
	}

	parsed, err := o.checkpoints.Parse(branchKnown)
	if err != nil {
		return nil, err
	}

	var groups []*checkpointGroup
	for _, cp := range parsed {
		select {
		case <-ctx.Done():
			return nil, errs.New(errs.CodeCancelled, "sync cancelled during parsing", ctx.Err())
		default:
		}

		if !checkpoint.IsLocal(cp.ID) {
			groups = append(groups, &checkpointGroup{checkpointID: cp.ID, isNew: true})
			groups[len(groups)-1].sourceCheckpoint = cp
			continue
		}

		hash := checkpoint.ContentHash(cp)
		if indexed[cp.ID] {
			stored, err := o.store.GetSolutionContentHash(ctx, cp.ID)
			if err != nil {
				return nil, err
			}
			if stored == hash {
				continue // P3: unchanged local checkpoint, nothing to do
			}
			g := &checkpointGroup{checkpointID: cp.ID, isNew: false, contentHash: hash}
			g.sourceCheckpoint = cp
			groups = append(groups, g)
			continue
		}

		g := &checkpointGroup{checkpointID: cp.ID, isNew: true, contentHash: hash}
		g.sourceCheckpoint = cp
		groups = append(groups, g)
	}

	emit(events, Event{Step: StepParsing, Message: fmt.Sprintf("%d checkpoint(s) to sync", len(groups))})
	return groups, nil
}
