package sync

import (
	"context"
	"os"
	stdsync "sync"

	"golang.org/x/sync/errgroup"

	"github.com/agentmemory/agentmemory/internal/chunk"
	"github.com/agentmemory/agentmemory/internal/errs"
	"github.com/agentmemory/agentmemory/internal/store"
)

// chunkGroups implements the "chunking" step: every group's checkpoint is
// split into SolutionChunks via the solution chunker (§4.3).
func (o *Orchestrator) chunkGroups(ctx context.Context, groups []*checkpointGroup, events chan Event) error {
	emit(events, Event{Step: StepChunking, Message: "chunking checkpoints", Progress: fraction(0, len(groups))})
	for i, g := range groups {
		select {
		case <-ctx.Done():
			return errs.New(errs.CodeCancelled, "sync cancelled during chunking", ctx.Err())
		default:
		}
		g.chunks = o.solutions.Chunk(g.sourceCheckpoint)

		ts := g.sourceCheckpoint.Timestamp.Unix()
		if g.sourceCheckpoint.Timestamp.IsZero() {
			ts = o.now()
		}
		for j := range g.chunks {
			g.chunks[j].Metadata.Timestamp = ts
		}

		emit(events, Event{Step: StepChunking, Message: g.checkpointID, Progress: fraction(i+1, len(groups))})
	}
	return nil
}

// summarizeGroups implements "summarizing (prepend summary to
// embeddingText)" (§4.9).
func (o *Orchestrator) summarizeGroups(ctx context.Context, groups []*checkpointGroup, events chan Event) error {
	total := 0
	for _, g := range groups {
		total += len(g.chunks)
	}
	if total == 0 {
		return nil
	}
	emit(events, Event{Step: StepSummarizing, Message: "summarizing solution chunks", Progress: fraction(0, total)})

	done := 0
	for _, g := range groups {
		for i := range g.chunks {
			select {
			case <-ctx.Done():
				return errs.New(errs.CodeCancelled, "sync cancelled during summarizing", ctx.Err())
			default:
			}

			c := &g.chunks[i]
			summary, err := o.summarizer.Summarize(ctx, c.Prompt, c.Response, c.DiffSummary)
			if err != nil {
				// Summarizer failures already fall back internally
				// (provider.ChatSummarizer never returns an error from a
				// failed chat call); a non-nil error here means the
				// summarizer itself is misconfigured, which is fatal.
				return errs.Wrap(errs.CodeProviderUnavailable, err)
			}
			if summary != "" {
				c.Summary = summary
				c.EmbeddingText = summary + "\n\n" + c.EmbeddingText
			}

			done++
			emit(events, Event{Step: StepSummarizing, Message: c.ID, Progress: fraction(done, total)})
		}
	}
	return nil
}

// embedGroups implements "embedding (with cache)": every chunk's
// (possibly re-summarized) embeddingText is looked up in the embedding
// cache before falling back to the provider, bounded by
// Options.EmbedConcurrency concurrent provider calls (§5).
func (o *Orchestrator) embedGroups(ctx context.Context, groups []*checkpointGroup, opts Options, events chan Event) error {
	total := 0
	for _, g := range groups {
		total += len(g.chunks)
	}
	if total == 0 {
		return nil
	}
	emit(events, Event{Step: StepEmbedding, Message: "embedding solution chunks", Progress: fraction(0, total)})

	limit := opts.EmbedConcurrency
	if limit <= 0 {
		limit = DefaultEmbedConcurrency
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)

	var mu stdsync.Mutex
	doneCount := 0
	for _, g := range groups {
		g.vectors = make([][]float32, len(g.chunks))
		for i := range g.chunks {
			i, g := i, g
			eg.Go(func() error {
				if egCtx.Err() != nil {
					return egCtx.Err()
				}
				text := g.chunks[i].EmbeddingText
				if vec, ok := o.embedCache.Get(text); ok {
					g.vectors[i] = vec
				} else {
					vec, err := o.embedder.Embed(egCtx, text)
					if err != nil {
						return errs.Wrap(errs.CodeProviderUnavailable, err)
					}
					if err := o.embedCache.Put(text, vec); err != nil {
						return err
					}
					g.vectors[i] = vec
				}
				mu.Lock()
				doneCount++
				emit(events, Event{Step: StepEmbedding, Message: g.chunks[i].ID, Progress: fraction(doneCount, total)})
				mu.Unlock()
				return nil
			})
		}
	}
	if err := eg.Wait(); err != nil {
		if egCtx.Err() != nil {
			return errs.New(errs.CodeCancelled, "sync cancelled during embedding", egCtx.Err())
		}
		return err
	}
	return nil
}

// indexGroups implements "indexing (insert newRemote, upsert changedLocal
// per checkpoint)" (§4.9), writing each checkpoint's chunks atomically
// from the caller's perspective (§5).
func (o *Orchestrator) indexGroups(ctx context.Context, groups []*checkpointGroup, events chan Event) error {
	emit(events, Event{Step: StepIndexing, Message: "writing solution chunks", Progress: fraction(0, len(groups))})

	var newRecords []store.StoredSolutionRecord
	var newVectors [][]float32

	for i, g := range groups {
		select {
		case <-ctx.Done():
			return errs.New(errs.CodeCancelled, "sync cancelled during indexing", ctx.Err())
		default:
		}

		records := toSolutionRecords(g.chunks, g.contentHash)
		if g.isNew {
			newRecords = append(newRecords, records...)
			newVectors = append(newVectors, g.vectors...)
		} else {
			if err := o.store.UpsertSolutionChunks(ctx, records, g.vectors, g.contentHash); err != nil {
				return err
			}
		}
		emit(events, Event{Step: StepIndexing, Message: g.checkpointID, Progress: fraction(i+1, len(groups))})
	}

	if len(newRecords) > 0 {
		if err := o.store.InsertSolutionChunks(ctx, newRecords, newVectors); err != nil {
			return err
		}
	}
	return nil
}

func toSolutionRecords(chunks []chunk.SolutionChunk, contentHash string) []store.StoredSolutionRecord {
	out := make([]store.StoredSolutionRecord, len(chunks))
	for i, c := range chunks {
		out[i] = store.StoredSolutionRecord{
			ID:            c.ID,
			CheckpointID:  c.CheckpointID,
			SessionIndex:  c.SessionIndex,
			Prompt:        c.Prompt,
			Response:      c.Response,
			DiffSummary:   c.DiffSummary,
			Summary:       c.Summary,
			EmbeddingText: c.EmbeddingText,
			Agent:         c.Metadata.Agent,
			Timestamp:     c.Metadata.Timestamp,
			FilesChanged:  c.Metadata.FilesChanged,
			TokensUsed:    c.Metadata.TokensUsed,
			Symbols:       c.Metadata.Symbols,
			Language:      c.Metadata.Language,
			ContentHash:   contentHash,
			Source:        store.SourceTranscript,
			Version:       store.CurrentSchemaVersion,
		}
	}
	return out
}

// runCodeIndex implements the optional "code-index (parallel re-index of
// changed files with per-file delete-then-insert)" step (§4.9). Per-file
// failures are absorbed as warnings and never abort the transcript phase,
// which has already completed by the time this runs.
func (o *Orchestrator) runCodeIndex(ctx context.Context, files []string, events chan Event) (indexed, failed int, warnings []string) {
	emit(events, Event{Step: StepCodeIndex, Message: "re-indexing changed files", Progress: fraction(0, len(files))})

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(DefaultEmbedConcurrency)

	var mu stdsync.Mutex
	done := 0

	for _, path := range files {
		path := path
		eg.Go(func() error {
			if egCtx.Err() != nil {
				return nil
			}
			warn := o.indexOneFile(egCtx, path)

			mu.Lock()
			defer mu.Unlock()
			done++
			if warn != "" {
				failed++
				warnings = append(warnings, warn)
			} else {
				indexed++
			}
			emit(events, Event{Step: StepCodeIndex, Message: path, Progress: fraction(done, len(files))})
			return nil
		})
	}
	_ = eg.Wait() // indexOneFile never returns a group-fatal error; failures become warnings

	return indexed, failed, warnings
}

// indexOneFile re-indexes a single source file, returning a non-empty
// warning string on any failure instead of an error (§4.9, §7
// "per-item failures in batch stages are absorbed locally with a warning
// log").
func (o *Orchestrator) indexOneFile(ctx context.Context, path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "stat " + path + ": " + err.Error()
	}

	symbols, err := o.source.ParseFile(ctx, path)
	if err != nil {
		return "parse " + path + ": " + err.Error()
	}

	chunks := o.code.Chunk(path, symbols, info.ModTime())

	if err := o.store.DeleteCodeChunksByPath(ctx, path); err != nil {
		return "delete " + path + ": " + err.Error()
	}
	if len(chunks) == 0 {
		return ""
	}

	records := make([]store.StoredCodeRecord, len(chunks))
	vectors := make([][]float32, len(chunks))
	for i, c := range chunks {
		vec, ok := o.embedCache.Get(c.EmbeddingText)
		if !ok {
			vec, err = o.embedder.Embed(ctx, c.EmbeddingText)
			if err != nil {
				return "embed " + path + ": " + err.Error()
			}
			if err := o.embedCache.Put(c.EmbeddingText, vec); err != nil {
				return "cache " + path + ": " + err.Error()
			}
		}
		vectors[i] = vec
		records[i] = store.StoredCodeRecord{
			ID:            c.ID,
			Path:          c.Path,
			Symbol:        c.Symbol,
			SymbolType:    c.SymbolType,
			Language:      c.Language,
			Body:          c.Body,
			Summary:       c.Summary,
			EmbeddingText: c.EmbeddingText,
			Calls:         c.Calls,
			Imports:       c.Imports,
			LastModified:  c.LastModified,
			Source:        store.SourceCode,
			Version:       store.CurrentSchemaVersion,
		}
	}

	if err := o.store.InsertCodeChunks(ctx, records, vectors); err != nil {
		return "insert " + path + ": " + err.Error()
	}
	return ""
}
