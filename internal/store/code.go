package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/agentmemory/agentmemory/internal/errs"
)

const codeColumnList = "id, path, symbol, symbol_type, language, body, summary, embedding_text, calls, imports, last_modified, source, version"

// InsertCodeChunks appends records in a single call.
func (s *Store) InsertCodeChunks(ctx context.Context, records []StoredCodeRecord, vectors [][]float32) error {
	if len(records) == 0 {
		return nil
	}
	if len(records) != len(vectors) {
		return errs.New(errs.CodeInternal, "records/vectors length mismatch", nil)
	}

	s.mu.Lock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.mu.Unlock()
		return errs.Wrap(errs.CodeInternal, err)
	}
	for _, r := range records {
		if err := insertCodeRow(ctx, tx, r); err != nil {
			_ = tx.Rollback()
			s.mu.Unlock()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		s.mu.Unlock()
		return errs.Wrap(errs.CodeInternal, err)
	}
	s.mu.Unlock()

	if err := s.syncCodeFts(ctx, records); err != nil {
		return err
	}

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return s.codeVectors.Add(ctx, ids, vectors)
}

// DeleteCodeChunksByPath deletes every record for path, required before
// re-indexing that file (§4.5, I2).
func (s *Store) DeleteCodeChunksByPath(ctx context.Context, path string) error {
	s.mu.Lock()
	ids, err := s.codeIDsForPath(ctx, path)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM code_symbols WHERE path = ?`, path); err != nil {
		s.mu.Unlock()
		return errs.Wrap(errs.CodeInternal, err)
	}
	s.mu.Unlock()

	if len(ids) == 0 {
		return nil
	}
	if err := s.deleteCodeFts(ctx, ids); err != nil {
		return err
	}
	return s.codeVectors.Delete(ctx, ids)
}

func (s *Store) codeIDsForPath(ctx context.Context, path string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM code_symbols WHERE path = ?`, path)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errs.Wrap(errs.CodeInternal, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func insertCodeRow(ctx context.Context, tx *sql.Tx, r StoredCodeRecord) error {
	source := r.Source
	if source == "" {
		source = SourceCode
	}
	version := r.Version
	if version == 0 {
		version = CurrentSchemaVersion
	}
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`INSERT OR REPLACE INTO code_symbols (%s) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`, codeColumnList),
		r.ID, r.Path, r.Symbol, r.SymbolType, r.Language, r.Body, r.Summary, r.EmbeddingText,
		r.Calls, r.Imports, r.LastModified, string(source), version,
	)
	if err != nil {
		return errs.Wrap(errs.CodeInternal, fmt.Errorf("insert code row %s: %w", r.ID, err))
	}
	return nil
}

func (s *Store) syncCodeFts(ctx context.Context, records []StoredCodeRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.CodeInternal, err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, r := range records {
		if _, err := tx.ExecContext(ctx, `DELETE FROM code_symbols_fts WHERE id = ?`, r.ID); err != nil {
			return errs.Wrap(errs.CodeInternal, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO code_symbols_fts (id, embedding_text) VALUES (?, ?)`, r.ID, r.EmbeddingText); err != nil {
			return errs.Wrap(errs.CodeInternal, err)
		}
	}
	return tx.Commit()
}

func (s *Store) deleteCodeFts(ctx context.Context, ids []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.CodeInternal, err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM code_symbols_fts WHERE id = ?`, id); err != nil {
			return errs.Wrap(errs.CodeInternal, err)
		}
	}
	return tx.Commit()
}

// CodeVector returns the stored (normalized) vector for a code_symbols row
// id, used by the search engine's de-dup step.
func (s *Store) CodeVector(id string) ([]float32, bool) {
	return s.codeVectors.Vector(id)
}

// SearchCodeVector runs a kNN search over the code_symbols HNSW index.
func (s *Store) SearchCodeVector(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.codeVectors.Search(ctx, query, k)
}

// SearchCodeFTS runs an FTS5 query over embeddingText, limited to k.
func (s *Store) SearchCodeFTS(ctx context.Context, queryText string, k int) ([]FTSResult, error) {
	return s.searchFts(ctx, "code_symbols_fts", queryText, k)
}

// FindCodeBySymbol returns every record whose symbol matches name exactly.
func (s *Store) FindCodeBySymbol(ctx context.Context, name string) ([]StoredCodeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := fmt.Sprintf(`SELECT %s FROM code_symbols WHERE symbol = ?`, codeColumnList)
	rows, err := s.db.QueryContext(ctx, query, name)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err)
	}
	defer rows.Close()

	var out []StoredCodeRecord
	for rows.Next() {
		r, err := scanCodeRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// FindCodeByExactSymbolPattern returns every record whose symbol equals
// queryText, ends in ".queryText", or starts with "queryText" (the hybrid
// search engine's exact-symbol list, §4.6: "symbol = queryText or symbol
// LIKE '%.queryText' or symbol LIKE 'queryText%'").
func (s *Store) FindCodeByExactSymbolPattern(ctx context.Context, queryText string) ([]StoredCodeRecord, error) {
	if queryText == "" {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := fmt.Sprintf(`SELECT %s FROM code_symbols WHERE symbol = ? OR symbol LIKE ? OR symbol LIKE ?`, codeColumnList)
	rows, err := s.db.QueryContext(ctx, query, queryText, "%."+queryText, queryText+"%")
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err)
	}
	defer rows.Close()

	var out []StoredCodeRecord
	for rows.Next() {
		r, err := scanCodeRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// GetCodeByIDs loads full records for a set of ids.
func (s *Store) GetCodeByIDs(ctx context.Context, ids []string) ([]StoredCodeRecord, error) {
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
	query := fmt.Sprintf(`SELECT %s FROM code_symbols WHERE id IN (%s)`, codeColumnList, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err)
	}
	defer rows.Close()

	var out []StoredCodeRecord
	for rows.Next() {
		r, err := scanCodeRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// GetIndexedCodePaths returns every distinct path currently in code_symbols.
func (s *Store) GetIndexedCodePaths(ctx context.Context) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT path FROM code_symbols`)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, errs.Wrap(errs.CodeInternal, err)
		}
		out[path] = true
	}
	return out, nil
}

// AllCodeRecords loads every code_symbols row, used by the insight engine
// to build the symbol dependency graph.
func (s *Store) AllCodeRecords(ctx context.Context) ([]StoredCodeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := fmt.Sprintf(`SELECT %s FROM code_symbols`, codeColumnList)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err)
	}
	defer rows.Close()

	var out []StoredCodeRecord
	for rows.Next() {
		r, err := scanCodeRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func scanCodeRow(rows *sql.Rows) (StoredCodeRecord, error) {
	var r StoredCodeRecord
	var source string
	err := rows.Scan(&r.ID, &r.Path, &r.Symbol, &r.SymbolType, &r.Language, &r.Body, &r.Summary,
		&r.EmbeddingText, &r.Calls, &r.Imports, &r.LastModified, &source, &r.Version)
	if err != nil {
		return r, errs.Wrap(errs.CodeInternal, err)
	}
	r.Source = RecordSource(source)
	return r, nil
}
