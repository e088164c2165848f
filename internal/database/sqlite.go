package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	_ "modernc.org/sqlite"
)

// SQLiteSchema mirrors migrations/ for the single-file SQLite backend.
// created_at is TEXT (YYYY-MM-DD) so the driver never guesses a time layout.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS exams (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    title      TEXT NOT NULL,
    subject    VARCHAR(500) NOT NULL,
    created_at TEXT NOT NULL DEFAULT (date('now'))
);

CREATE TABLE IF NOT EXISTS questions (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    exam_id       INTEGER NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
    question_type TEXT NOT NULL CHECK (question_type IN ('MCQ', 'True/False', 'Q&A')),
    question      TEXT NOT NULL,
    mcq_options   TEXT NOT NULL DEFAULT '[]',
    answer_cols   INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_questions_exam_id ON questions (exam_id);
`

// NewSQLite opens the SQLite database at path and applies SQLiteSchema.
// ":memory:" yields a private in-memory database; the pool is pinned to a
// single connection so every query sees the same database.
func NewSQLite(ctx context.Context, path string, log zerolog.Logger) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps
	// per-connection pragmas in effect.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, SQLiteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	log.Info().
		Bool("in_memory", strings.Contains(path, ":memory:")).
		Str("path", path).
		Msg("SQLite opened")

	return db, nil
}
