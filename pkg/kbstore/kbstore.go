// Package kbstore keeps the asserted statements of a knowledge base in
// SQLite, with a journal of every effective edit, and brings an in-memory
// ontology in line with it.
package kbstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ThomasFarrenkopf/pellet/pkg/axiom"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("kbstore: closed")

// Store is a persistent statement set. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	now    func() time.Time
	closed atomic.Bool
}

// Change is one journal entry.
type Change struct {
	Seq       int64
	Op        axiom.ChangeOp
	Statement axiom.Statement
	At        time.Time
}

// Open opens (or creates) the store at path.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database. Calling it again is a no-op.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// Add inserts the statements that are not stored yet and returns how many
// were new.
func (s *Store) Add(ctx context.Context, stmts ...axiom.Statement) (int, error) {
	return s.edit(ctx, axiom.AddStatement, stmts)
}

// Remove deletes the stored statements among stmts and returns how many
// were present.
func (s *Store) Remove(ctx context.Context, stmts ...axiom.Statement) (int, error) {
	return s.edit(ctx, axiom.RemoveStatement, stmts)
}

func (s *Store) edit(ctx context.Context, op axiom.ChangeOp, stmts []axiom.Statement) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	at := s.now().UTC().Format(time.RFC3339Nano)
	n := 0
	for _, st := range stmts {
		id := st.ID()
		var res sql.Result
		if op == axiom.AddStatement {
			res, err = tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO statements (id, kind, text, added_at) VALUES (?, ?, ?, ?)`,
				id, st.Kind.String(), st.String(), at)
		} else {
			res, err = tx.ExecContext(ctx, `DELETE FROM statements WHERE id = ?`, id)
		}
		if err != nil {
			return 0, fmt.Errorf("%s %s: %w", op, st, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		if affected == 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO changes (op, statement_id, text, at) VALUES (?, ?, ?, ?)`,
			op.String(), id, st.String(), at); err != nil {
			return 0, fmt.Errorf("journal %s: %w", st, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// Import parses a functional-syntax document and adds its statements.
func (s *Store) Import(ctx context.Context, r io.Reader) (int, error) {
	stmts, err := axiom.ParseDocument(r)
	if err != nil {
		return 0, err
	}
	return s.Add(ctx, stmts...)
}

// Statements returns the stored statements in canonical order.
func (s *Store) Statements(ctx context.Context) ([]axiom.Statement, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, `SELECT text FROM statements`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []axiom.Statement
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		st, err := axiom.Parse(text)
		if err != nil {
			return nil, fmt.Errorf("stored statement %q: %w", text, err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return axiom.SortStatements(out), nil
}

// Len returns the number of stored statements.
func (s *Store) Len(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM statements`).Scan(&n)
	return n, err
}

// Changes returns the journal entries after seq, oldest first.
func (s *Store) Changes(ctx context.Context, since int64) ([]Change, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, op, text, at FROM changes WHERE seq > ? ORDER BY seq`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Change
	for rows.Next() {
		var (
			c        Change
			op, text string
			at       string
		)
		if err := rows.Scan(&c.Seq, &op, &text, &at); err != nil {
			return nil, err
		}
		switch op {
		case axiom.AddStatement.String():
			c.Op = axiom.AddStatement
		case axiom.RemoveStatement.String():
			c.Op = axiom.RemoveStatement
		default:
			return nil, fmt.Errorf("journal entry %d: unknown op %q", c.Seq, op)
		}
		if c.Statement, err = axiom.Parse(text); err != nil {
			return nil, fmt.Errorf("journal entry %d: %w", c.Seq, err)
		}
		if c.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("journal entry %d: %w", c.Seq, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Sync makes the statements asserted directly in ont equal to the stored
// ones, as a single batch of changes for ont's manager listeners. It
// returns the effective changes.
func (s *Store) Sync(ctx context.Context, ont *axiom.Ontology) ([]axiom.Change, error) {
	stored, err := s.Statements(ctx)
	if err != nil {
		return nil, err
	}
	return ont.Replace(stored...), nil
}
