package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ppiankov/lexharvest/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS legal_documents (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	title TEXT NOT NULL,
	title_en TEXT,
	short_name TEXT,
	status TEXT NOT NULL,
	issued_date TEXT,
	in_force_date TEXT,
	url TEXT,
	description TEXT
);

CREATE TABLE IF NOT EXISTS legal_provisions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	document_id TEXT NOT NULL REFERENCES legal_documents(id) ON DELETE CASCADE,
	provision_ref TEXT NOT NULL,
	chapter TEXT,
	section TEXT NOT NULL,
	title TEXT,
	content TEXT NOT NULL,
	position INTEGER NOT NULL,
	UNIQUE(document_id, provision_ref)
);

CREATE INDEX IF NOT EXISTS idx_provisions_document ON legal_provisions(document_id, section);

CREATE TABLE IF NOT EXISTS definitions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	document_id TEXT NOT NULL REFERENCES legal_documents(id) ON DELETE CASCADE,
	term TEXT NOT NULL,
	definition TEXT NOT NULL,
	source_provision TEXT
);

CREATE INDEX IF NOT EXISTS idx_definitions_document ON definitions(document_id);

CREATE TABLE IF NOT EXISTS db_metadata (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Store is the SQLite sink for parsed acts
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path and ensures the schema
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1) // one writer
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA journal_mode = WAL"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// SaveAct stores act, replacing every row previously stored under its id
func (s *Store) SaveAct(ctx context.Context, act *model.ParsedAct) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, q := range []string{
		"DELETE FROM definitions WHERE document_id = ?",
		"DELETE FROM legal_provisions WHERE document_id = ?",
		"DELETE FROM legal_documents WHERE id = ?",
	} {
		if _, err = tx.ExecContext(ctx, q, act.ID); err != nil {
			return fmt.Errorf("clear %s: %w", act.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO legal_documents (id, type, title, title_en, short_name, status, issued_date, in_force_date, url, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		act.ID, act.Type, act.Title, act.TitleEN, act.ShortName, string(act.Status),
		act.IssuedDate, act.InForceDate, act.URL, act.Description,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	provStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO legal_provisions (document_id, provision_ref, chapter, section, title, content, position)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare provisions: %w", err)
	}
	defer func() { _ = provStmt.Close() }()

	for i, p := range act.Provisions {
		if _, err = provStmt.ExecContext(ctx, act.ID, p.ProvisionRef, p.Chapter, p.Section, p.Title, p.Content, i); err != nil {
			return fmt.Errorf("insert provision %s: %w", p.ProvisionRef, err)
		}
	}

	defStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO definitions (document_id, term, definition, source_provision)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare definitions: %w", err)
	}
	defer func() { _ = defStmt.Close() }()

	for _, d := range act.Definitions {
		if _, err = defStmt.ExecContext(ctx, act.ID, d.Term, d.Definition, d.SourceProvision); err != nil {
			return fmt.Errorf("insert definition %q: %w", d.Term, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// SetBuiltAt records when the database was last built
func (s *Store) SetBuiltAt(ctx context.Context, at time.Time) error {
	return s.setMetadata(ctx, "built_at", at.UTC().Format(time.RFC3339))
}

// BuiltAt returns the recorded build time, zero if none
func (s *Store) BuiltAt(ctx context.Context) (time.Time, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM db_metadata WHERE key = 'built_at'").Scan(&value)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read built_at: %w", err)
	}
	return time.Parse(time.RFC3339, value)
}

func (s *Store) setMetadata(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO db_metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Counts summarises stored rows
type Counts struct {
	Documents   int
	Provisions  int
	Definitions int
}

// Counts returns row counts for the three content tables
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	for _, q := range []struct {
		table string
		dest  *int
	}{
		{"legal_documents", &c.Documents},
		{"legal_provisions", &c.Provisions},
		{"definitions", &c.Definitions},
	} {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+q.table).Scan(q.dest); err != nil {
			return Counts{}, fmt.Errorf("count %s: %w", q.table, err)
		}
	}
	return c, nil
}
