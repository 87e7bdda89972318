package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Store is the SQLite data access layer for compiled documents and their
// page projection.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == MemoryPath {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS compilations (
  id              INTEGER PRIMARY KEY,
  root_sheet      TEXT NOT NULL,
  source          TEXT,
  description     TEXT,
  version         TEXT,
  compiled_at     TIMESTAMP
);

-- Tree form

CREATE TABLE IF NOT EXISTS nodes (
  id              INTEGER PRIMARY KEY,
  compilation_id  INTEGER NOT NULL REFERENCES compilations(id),
  parent_id       INTEGER REFERENCES nodes(id),
  ordinal         INTEGER NOT NULL,
  name            TEXT NOT NULL,
  kind            TEXT NOT NULL,
  type_name       TEXT,
  template        TEXT,
  description     TEXT,
  ancestor_labels TEXT DEFAULT '[]'
);

-- Tabular form

CREATE TABLE IF NOT EXISTS pages (
  id              INTEGER PRIMARY KEY,
  compilation_id  INTEGER NOT NULL REFERENCES compilations(id),
  name            TEXT NOT NULL,
  ordinal         INTEGER NOT NULL,
  UNIQUE (compilation_id, name)
);

CREATE TABLE IF NOT EXISTS page_columns (
  id              INTEGER PRIMARY KEY,
  page_id         INTEGER NOT NULL REFERENCES pages(id),
  ordinal         INTEGER NOT NULL,
  tag_name        TEXT NOT NULL,
  data_type       TEXT,
  description     TEXT,
  ancestor_labels TEXT DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS diagnostics (
  id              INTEGER PRIMARY KEY,
  compilation_id  INTEGER NOT NULL REFERENCES compilations(id),
  hook            TEXT,
  message         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT
);

-- Indexes

CREATE INDEX IF NOT EXISTS idx_nodes_compilation ON nodes(compilation_id);
CREATE INDEX IF NOT EXISTS idx_nodes_parent ON nodes(parent_id);
CREATE INDEX IF NOT EXISTS idx_pages_compilation ON pages(compilation_id);
CREATE INDEX IF NOT EXISTS idx_page_columns_page ON page_columns(page_id);
CREATE INDEX IF NOT EXISTS idx_page_columns_data_type ON page_columns(data_type);
CREATE INDEX IF NOT EXISTS idx_diagnostics_compilation ON diagnostics(compilation_id);
`

// DeleteCompilation transactionally removes a compilation and everything
// recorded for it. Deletes in reverse-dependency order to respect FK
// constraints.
func (s *Store) DeleteCompilation(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query("SELECT id FROM pages WHERE compilation_id = ?", id)
	if err != nil {
		return fmt.Errorf("query pages: %w", err)
	}
	var pageIDs []int64
	for rows.Next() {
		var pid int64
		if err := rows.Scan(&pid); err != nil {
			rows.Close()
			return fmt.Errorf("scan page id: %w", err)
		}
		pageIDs = append(pageIDs, pid)
	}
	rows.Close()

	if len(pageIDs) > 0 {
		if _, err := tx.Exec(
			"DELETE FROM page_columns WHERE page_id IN ("+placeholderList(len(pageIDs))+")",
			int64sToArgs(pageIDs)...,
		); err != nil {
			return fmt.Errorf("delete page columns: %w", err)
		}
	}

	// Children reference parents, so clear the self-reference first.
	for _, q := range []string{
		"UPDATE nodes SET parent_id = NULL WHERE compilation_id = ?",
		"DELETE FROM nodes WHERE compilation_id = ?",
		"DELETE FROM pages WHERE compilation_id = ?",
		"DELETE FROM diagnostics WHERE compilation_id = ?",
		"DELETE FROM compilations WHERE id = ?",
	} {
		if _, err := tx.Exec(q, id); err != nil {
			return fmt.Errorf("delete compilation data: %w", err)
		}
	}

	return tx.Commit()
}

// GetMetadata returns the value stored under key, or "" when absent.
func (s *Store) GetMetadata(key string) (string, error) {
	var value sql.NullString
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata: %w", err)
	}
	return value.String, nil
}

// SetMetadata stores value under key, replacing any previous value.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata: %w", err)
	}
	return nil
}
