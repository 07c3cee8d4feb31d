package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentmemory/agentmemory/internal/errs"
)

// FTSResult is one FTS5 hit, ranked by bm25 (lower is more relevant).
type FTSResult struct {
	ID    string
	Score float64
}

// ftsQuote turns a raw query string into an FTS5 MATCH argument: each
// whitespace-separated token is double-quoted so punctuation inside it
// (dots, hyphens, slashes common in symbol/path text) can't be parsed as
// FTS5 query syntax.
func ftsQuote(queryText string) string {
	fields := strings.Fields(queryText)
	if len(fields) == 0 {
		return ""
	}
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " ")
}

// searchFts runs an FTS5 MATCH query against ftsTable (solutions_fts or
// code_symbols_fts), ranked by bm25 ascending, limited to k rows. An empty
// queryText yields an empty result rather than a query error (§4.6: the FTS
// leg is omitted entirely when queryText is absent).
func (s *Store) searchFts(ctx context.Context, ftsTable string, queryText string, k int) ([]FTSResult, error) {
	match := ftsQuote(queryText)
	if match == "" || k <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := fmt.Sprintf(`SELECT id, bm25(%s) AS rank FROM %s WHERE %s MATCH ? ORDER BY rank LIMIT ?`, ftsTable, ftsTable, ftsTable)
	rows, err := s.db.QueryContext(ctx, query, match, k)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, fmt.Errorf("fts search %s: %w", ftsTable, err))
	}
	defer rows.Close()

	var out []FTSResult
	for rows.Next() {
		var r FTSResult
		if err := rows.Scan(&r.ID, &r.Score); err != nil {
			return nil, errs.Wrap(errs.CodeInternal, err)
		}
		out = append(out, r)
	}
	return out, nil
}
