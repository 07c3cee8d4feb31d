package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/agentmemory/agentmemory/internal/errs"
)

const solutionsColumnList = "id, checkpoint_id, session_index, prompt, response, diff_summary, summary, embedding_text, agent, timestamp, files_changed, tokens_used, symbols, language, content_hash, source, version"

// InsertSolutionChunks appends records in a single call (§4.5 insertChunks).
func (s *Store) InsertSolutionChunks(ctx context.Context, records []StoredSolutionRecord, vectors [][]float32) error {
	if len(records) == 0 {
		return nil
	}
	if len(records) != len(vectors) {
		return errs.New(errs.CodeInternal, "records/vectors length mismatch", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.CodeInternal, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range records {
		if err := insertSolutionRow(ctx, tx, r); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.CodeInternal, err)
	}

	if err := s.syncSolutionsFts(ctx, records); err != nil {
		return err
	}

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return s.solutionVectors.Add(ctx, ids, vectors)
}

// UpsertSolutionChunks replaces every record sharing a checkpointId with
// records, attaching contentHash to each new row (§4.5 upsertChunks, I4).
func (s *Store) UpsertSolutionChunks(ctx context.Context, records []StoredSolutionRecord, vectors [][]float32, contentHash string) error {
	if len(records) == 0 {
		return nil
	}

	checkpointIDs := map[string]bool{}
	for i := range records {
		records[i].ContentHash = contentHash
		checkpointIDs[records[i].CheckpointID] = true
	}

	s.mu.Lock()
	oldIDs, err := s.idsForCheckpoints(ctx, checkpointIDs)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	for cpID := range checkpointIDs {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM solutions WHERE checkpoint_id = ?`, cpID); err != nil {
			s.mu.Unlock()
			return errs.Wrap(errs.CodeInternal, err)
		}
	}
	s.mu.Unlock()

	if len(oldIDs) > 0 {
		if err := s.deleteSolutionsFts(ctx, oldIDs); err != nil {
			return err
		}
		if err := s.solutionVectors.Delete(ctx, oldIDs); err != nil {
			return errs.Wrap(errs.CodeInternal, err)
		}
	}

	return s.InsertSolutionChunks(ctx, records, vectors)
}

func (s *Store) idsForCheckpoints(ctx context.Context, checkpointIDs map[string]bool) ([]string, error) {
	var ids []string
	rows, err := s.db.QueryContext(ctx, `SELECT id, checkpoint_id FROM solutions`)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, cp string
		if err := rows.Scan(&id, &cp); err != nil {
			return nil, errs.Wrap(errs.CodeInternal, err)
		}
		if checkpointIDs[cp] {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func insertSolutionRow(ctx context.Context, tx *sql.Tx, r StoredSolutionRecord) error {
	source := r.Source
	if source == "" {
		source = SourceTranscript
	}
	version := r.Version
	if version == 0 {
		version = CurrentSchemaVersion
	}
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`INSERT OR REPLACE INTO solutions (%s) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`, solutionsColumnList),
		r.ID, r.CheckpointID, r.SessionIndex, r.Prompt, r.Response, r.DiffSummary, r.Summary, r.EmbeddingText,
		r.Agent, r.Timestamp, strings.Join(r.FilesChanged, ","), r.TokensUsed, strings.Join(r.Symbols, ","),
		r.Language, r.ContentHash, string(source), version,
	)
	if err != nil {
		return errs.Wrap(errs.CodeInternal, fmt.Errorf("insert solution row %s: %w", r.ID, err))
	}
	return nil
}

func (s *Store) syncSolutionsFts(ctx context.Context, records []StoredSolutionRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.CodeInternal, err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, r := range records {
		if _, err := tx.ExecContext(ctx, `DELETE FROM solutions_fts WHERE id = ?`, r.ID); err != nil {
			return errs.Wrap(errs.CodeInternal, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO solutions_fts (id, embedding_text) VALUES (?, ?)`, r.ID, r.EmbeddingText); err != nil {
			return errs.Wrap(errs.CodeInternal, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.CodeInternal, err)
	}
	return nil
}

func (s *Store) deleteSolutionsFts(ctx context.Context, ids []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.CodeInternal, err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM solutions_fts WHERE id = ?`, id); err != nil {
			return errs.Wrap(errs.CodeInternal, err)
		}
	}
	return tx.Commit()
}

// SolutionVector returns the stored (normalized) vector for a solutions row
// id, used by the search engine's de-dup step to compare candidates without
// a second embedding round-trip.
func (s *Store) SolutionVector(id string) ([]float32, bool) {
	return s.solutionVectors.Vector(id)
}

// SearchSolutionsVector runs a kNN search over the solutions HNSW index.
func (s *Store) SearchSolutionsVector(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.solutionVectors.Search(ctx, query, k)
}

// SearchSolutionsFTS runs an FTS5 query over embeddingText, limited to k.
func (s *Store) SearchSolutionsFTS(ctx context.Context, queryText string, k int) ([]FTSResult, error) {
	return s.searchFts(ctx, "solutions_fts", queryText, k)
}

// GetSolutionsByIDs loads full records for a set of ids, in no particular order.
func (s *Store) GetSolutionsByIDs(ctx context.Context, ids []string) ([]StoredSolutionRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT %s FROM solutions WHERE id IN (%s)`, solutionsColumnList, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err)
	}
	defer rows.Close()

	var out []StoredSolutionRecord
	for rows.Next() {
		r, err := scanSolutionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// AllSolutionRecords returns every row in the solutions table, used by the
// retrieval API's stats summary.
func (s *Store) AllSolutionRecords(ctx context.Context) ([]StoredSolutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := fmt.Sprintf(`SELECT %s FROM solutions`, solutionsColumnList)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err)
	}
	defer rows.Close()

	var out []StoredSolutionRecord
	for rows.Next() {
		r, err := scanSolutionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// GetIndexedChunkIds returns the set of checkpoint ids already present in
// the solutions table (used by the sync orchestrator's diff step).
func (s *Store) GetIndexedChunkIds(ctx context.Context) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT checkpoint_id FROM solutions`)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errs.Wrap(errs.CodeInternal, err)
		}
		out[id] = true
	}
	return out, nil
}

// GetSolutionContentHash returns the stored contentHash for a checkpoint,
// or "" if no rows exist for it (I4 freshness check).
func (s *Store) GetSolutionContentHash(ctx context.Context, checkpointID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT content_hash FROM solutions WHERE checkpoint_id = ? LIMIT 1`, checkpointID).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errs.Wrap(errs.CodeInternal, err)
	}
	return hash, nil
}

func scanSolutionRow(rows *sql.Rows) (StoredSolutionRecord, error) {
	var r StoredSolutionRecord
	var filesChanged, symbols, source string
	err := rows.Scan(&r.ID, &r.CheckpointID, &r.SessionIndex, &r.Prompt, &r.Response, &r.DiffSummary, &r.Summary,
		&r.EmbeddingText, &r.Agent, &r.Timestamp, &filesChanged, &r.TokensUsed, &symbols, &r.Language,
		&r.ContentHash, &source, &r.Version)
	if err != nil {
		return r, errs.Wrap(errs.CodeInternal, err)
	}
	r.Source = RecordSource(source)
	if filesChanged != "" {
		r.FilesChanged = strings.Split(filesChanged, ",")
	}
	if symbols != "" {
		r.Symbols = strings.Split(symbols, ",")
	}
	return r, nil
}
