// Package postgres publishes tables into a PostgreSQL schema. Every cell
// is TEXT; the dashboard layer on top of the database handles typing.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/loykin/groovewatch/internal/sink"
)

type Sink struct {
	db *sql.DB
}

func New(dsn string) (*Sink, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres sink: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres sink: %w", err)
	}
	return &Sink{db: db}, nil
}

func columns(header []string) []string {
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = sink.ColumnName(h)
	}
	return cols
}

func insertStmt(name string, cols []string) string {
	ph := make([]string, len(cols))
	for i := range cols {
		ph[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		name, strings.Join(cols, ", "), strings.Join(ph, ", "))
}

func createStmt(name string, cols []string, ifNotExists bool) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = c + " TEXT"
	}
	clause := ""
	if ifNotExists {
		clause = "IF NOT EXISTS "
	}
	return fmt.Sprintf("CREATE TABLE %s%s (id BIGSERIAL PRIMARY KEY, %s)",
		clause, name, strings.Join(defs, ", "))
}

func insertRows(ctx context.Context, tx *sql.Tx, name string, cols []string, rows [][]string) error {
	stmt, err := tx.PrepareContext(ctx, insertStmt(name, cols))
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for _, row := range rows {
		if len(row) != len(cols) {
			return fmt.Errorf("row has %d cells, header has %d", len(row), len(cols))
		}
		args := make([]any, len(row))
		for i, cell := range row {
			args[i] = cell
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}
	return nil
}

// WriteTable drops and recreates the table inside one transaction. DDL is
// transactional in PostgreSQL, so readers see either the old table or the
// new one.
func (s *Sink) WriteTable(ctx context.Context, t sink.Table) error {
	if err := sink.ValidateName(t.Name); err != nil {
		return err
	}
	cols := columns(t.Header)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres sink: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+t.Name); err != nil {
		return fmt.Errorf("postgres sink: drop %s: %w", t.Name, err)
	}
	if _, err := tx.ExecContext(ctx, createStmt(t.Name, cols, false)); err != nil {
		return fmt.Errorf("postgres sink: create %s: %w", t.Name, err)
	}
	if err := insertRows(ctx, tx, t.Name, cols, t.Rows); err != nil {
		return fmt.Errorf("postgres sink: insert into %s: %w", t.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres sink: %w", err)
	}
	return nil
}

// AppendHistory creates the table if missing and appends.
func (s *Sink) AppendHistory(ctx context.Context, t sink.Table) error {
	if err := sink.ValidateName(t.Name); err != nil {
		return err
	}
	cols := columns(t.Header)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres sink: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, createStmt(t.Name, cols, true)); err != nil {
		return fmt.Errorf("postgres sink: create %s: %w", t.Name, err)
	}
	if err := insertRows(ctx, tx, t.Name, cols, t.Rows); err != nil {
		return fmt.Errorf("postgres sink: insert into %s: %w", t.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres sink: %w", err)
	}
	return nil
}

func (s *Sink) Close() error { return s.db.Close() }
