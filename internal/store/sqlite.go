package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure-Go driver, no CGO

	"github.com/agentmemory/agentmemory/internal/errs"
)

// solutionsMigrations and codeMigrations are the fixed, additive column
// lists consulted on open (§4.5 migrateSchema). Each entry is applied only
// if the column doesn't already exist, in order.
var solutionsMigrations = []columnDef{
	{"id", "TEXT PRIMARY KEY"},
	{"checkpoint_id", "TEXT NOT NULL DEFAULT ''"},
	{"session_index", "INTEGER NOT NULL DEFAULT 0"},
	{"prompt", "TEXT NOT NULL DEFAULT ''"},
	{"response", "TEXT NOT NULL DEFAULT ''"},
	{"diff_summary", "TEXT NOT NULL DEFAULT ''"},
	{"summary", "TEXT NOT NULL DEFAULT ''"},
	{"embedding_text", "TEXT NOT NULL DEFAULT ''"},
	{"agent", "TEXT NOT NULL DEFAULT ''"},
	{"timestamp", "INTEGER NOT NULL DEFAULT 0"},
	{"files_changed", "TEXT NOT NULL DEFAULT ''"},
	{"tokens_used", "INTEGER NOT NULL DEFAULT 0"},
	{"symbols", "TEXT NOT NULL DEFAULT ''"},
	{"language", "TEXT NOT NULL DEFAULT ''"},
	{"content_hash", "TEXT NOT NULL DEFAULT ''"},
	{"source", "TEXT NOT NULL DEFAULT 'transcript'"},
	{"version", "INTEGER NOT NULL DEFAULT 1"},
}

var codeMigrations = []columnDef{
	{"id", "TEXT PRIMARY KEY"},
	{"path", "TEXT NOT NULL DEFAULT ''"},
	{"symbol", "TEXT NOT NULL DEFAULT ''"},
	{"symbol_type", "TEXT NOT NULL DEFAULT ''"},
	{"language", "TEXT NOT NULL DEFAULT ''"},
	{"body", "TEXT NOT NULL DEFAULT ''"},
	{"summary", "TEXT NOT NULL DEFAULT ''"},
	{"embedding_text", "TEXT NOT NULL DEFAULT ''"},
	{"calls", "TEXT NOT NULL DEFAULT ''"},
	{"imports", "TEXT NOT NULL DEFAULT ''"},
	{"last_modified", "TEXT NOT NULL DEFAULT ''"},
	{"source", "TEXT NOT NULL DEFAULT 'code'"},
	{"version", "INTEGER NOT NULL DEFAULT 1"},
}

type columnDef struct {
	name string
	ddl  string
}

// Store is the §4.5 Vector Store: the `solutions` and `code_symbols`
// tables, each with a SQLite FTS5 index over embeddingText and an HNSW
// vector index.
type Store struct {
	mu sync.RWMutex
	db *sql.DB

	solutionVectors *HNSWStore
	codeVectors     *HNSWStore
}

// Open opens (creating if absent) the SQLite database at path and prepares
// both tables, their FTS5 indexes, and their HNSW vector stores at the
// given dimensionality (I3).
func Open(path string, dimensions int) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errs.Wrap(errs.CodeInternal, fmt.Errorf("create store directory: %w", err))
			}
		}
	}

	dsn := path
	if path != ":memory:" {
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, fmt.Errorf("open sqlite: %w", err))
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, errs.Wrap(errs.CodeInternal, fmt.Errorf("set pragma %q: %w", pragma, err))
		}
	}

	cfg := DefaultVectorStoreConfig(dimensions)
	solutionVectors, err := NewHNSWStore(cfg)
	if err != nil {
		_ = db.Close()
		return nil, errs.Wrap(errs.CodeInternal, err)
	}
	codeVectors, err := NewHNSWStore(cfg)
	if err != nil {
		_ = db.Close()
		return nil, errs.Wrap(errs.CodeInternal, err)
	}

	s := &Store{db: db, solutionVectors: solutionVectors, codeVectors: codeVectors}
	if err := s.initStore(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.initCodeStore(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// initStore creates the solutions table and its FTS5 index, seeding and
// deleting one empty row to settle the schema (§4.5).
func (s *Store) initStore() error {
	if err := s.createTable("solutions", solutionsMigrations); err != nil {
		return err
	}
	if err := s.migrateColumns("solutions", solutionsMigrations); err != nil {
		return err
	}
	if _, err := s.db.Exec(`INSERT OR IGNORE INTO solutions (id) VALUES ('__schema_seed__')`); err != nil {
		return errs.Wrap(errs.CodeSchemaEvolution, err)
	}
	if _, err := s.db.Exec(`DELETE FROM solutions WHERE id = '__schema_seed__'`); err != nil {
		return errs.Wrap(errs.CodeSchemaEvolution, err)
	}
	return s.ensureFtsIndex("solutions")
}

// initCodeStore is initStore's code_symbols counterpart.
func (s *Store) initCodeStore() error {
	if err := s.createTable("code_symbols", codeMigrations); err != nil {
		return err
	}
	if err := s.migrateColumns("code_symbols", codeMigrations); err != nil {
		return err
	}
	if _, err := s.db.Exec(`INSERT OR IGNORE INTO code_symbols (id) VALUES ('__schema_seed__')`); err != nil {
		return errs.Wrap(errs.CodeSchemaEvolution, err)
	}
	if _, err := s.db.Exec(`DELETE FROM code_symbols WHERE id = '__schema_seed__'`); err != nil {
		return errs.Wrap(errs.CodeSchemaEvolution, err)
	}
	return s.ensureFtsIndex("code_symbols")
}

func (s *Store) createTable(table string, columns []columnDef) error {
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = c.name + " " + c.ddl
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, joinComma(parts))
	if _, err := s.db.Exec(stmt); err != nil {
		return errs.Wrap(errs.CodeSchemaEvolution, fmt.Errorf("create table %s: %w", table, err))
	}
	return nil
}

// migrateColumns adds any column in columns missing from table, in order,
// with its declared default (the fixed migration list, §4.5).
func (s *Store) migrateColumns(table string, columns []columnDef) error {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return errs.Wrap(errs.CodeSchemaEvolution, err)
	}
	existing := map[string]bool{}
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			rows.Close()
			return errs.Wrap(errs.CodeSchemaEvolution, err)
		}
		existing[name] = true
	}
	rows.Close()

	for _, c := range columns {
		if existing[c.name] || c.name == "id" {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, c.name, c.ddl)
		if _, err := s.db.Exec(stmt); err != nil {
			return errs.Wrap(errs.CodeSchemaEvolution, fmt.Errorf("add column %s.%s: %w", table, c.name, err))
		}
	}
	return nil
}

// ensureFtsIndex idempotently (re)creates table's FTS5 virtual table and
// repopulates it from the base table (§4.5, I5: embeddingText is the sole
// indexed field).
func (s *Store) ensureFtsIndex(table string) error {
	ftsTable := table + "_fts"
	if _, err := s.db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", ftsTable)); err != nil {
		return errs.Wrap(errs.CodeSchemaEvolution, err)
	}
	schema := fmt.Sprintf(`CREATE VIRTUAL TABLE %s USING fts5(id UNINDEXED, embedding_text, tokenize='unicode61')`, ftsTable)
	if _, err := s.db.Exec(schema); err != nil {
		return errs.Wrap(errs.CodeSchemaEvolution, err)
	}
	populate := fmt.Sprintf(`INSERT INTO %s (id, embedding_text) SELECT id, embedding_text FROM %s`, ftsTable, table)
	if _, err := s.db.Exec(populate); err != nil {
		return errs.Wrap(errs.CodeSchemaEvolution, err)
	}
	return nil
}

// dropTable drops table and its FTS counterpart entirely (the explicit
// reset path; §3 lifecycle: "the entire store is dropped only by an
// explicit reset").
func (s *Store) dropTable(table string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
		return errs.Wrap(errs.CodeInternal, err)
	}
	if _, err := s.db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s_fts", table)); err != nil {
		return errs.Wrap(errs.CodeInternal, err)
	}
	return nil
}

// Reset drops both tables and both vector indexes (explicit full reset).
func (s *Store) Reset() error {
	if err := s.dropTable("solutions"); err != nil {
		return err
	}
	if err := s.dropTable("code_symbols"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx := context.Background()
	for _, id := range s.solutionVectors.AllIDs() {
		_ = s.solutionVectors.Delete(ctx, []string{id})
	}
	for _, id := range s.codeVectors.AllIDs() {
		_ = s.codeVectors.Delete(ctx, []string{id})
	}
	if err := s.initStore(); err != nil {
		return err
	}
	return s.initCodeStore()
}

// Close releases the database handle and both vector indexes.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.solutionVectors.Close()
	_ = s.codeVectors.Close()
	return s.db.Close()
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
