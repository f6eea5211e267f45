package kbstore

import (
	"database/sql"
	"fmt"
)

func migrate(db *sql.DB) error {
	stmts := []string{
		// Asserted statements, keyed by their content hash
		`CREATE TABLE IF NOT EXISTS statements (
			id        TEXT PRIMARY KEY,
			kind      TEXT NOT NULL,
			text      TEXT NOT NULL,
			added_at  TEXT NOT NULL
		)`,

		// Append-only journal of effective edits
		`CREATE TABLE IF NOT EXISTS changes (
			seq          INTEGER PRIMARY KEY AUTOINCREMENT,
			op           TEXT NOT NULL CHECK (op IN ('add', 'remove')),
			statement_id TEXT NOT NULL,
			text         TEXT NOT NULL,
			at           TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_statements_kind ON statements(kind)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:min(len(s), 40)], err)
		}
	}
	return nil
}
