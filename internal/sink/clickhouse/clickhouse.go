// Package clickhouse publishes tables to ClickHouse using the official Go
// client. Current-state tables are recreated per write; history tables use
// a MergeTree that only receives appends.
package clickhouse

import (
	"context"
	"fmt"
	"strings"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/loykin/groovewatch/internal/sink"
)

type Sink struct {
	conn driver.Conn
}

func New(addr, database, username, password string) (*Sink, error) {
	if database == "" {
		database = "default"
	}
	if username == "" {
		username = "default"
	}
	conn, err := ch.Open(&ch.Options{
		Addr: []string{addr},
		Auth: ch.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse sink: %w", err)
	}
	if err := conn.Ping(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("clickhouse sink: ping: %w", err)
	}
	return &Sink{conn: conn}, nil
}

func columns(header []string) []string {
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = sink.ColumnName(h)
	}
	return cols
}

func createStmt(name string, cols []string, ifNotExists bool) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = c + " String"
	}
	clause := ""
	if ifNotExists {
		clause = "IF NOT EXISTS "
	}
	return fmt.Sprintf("CREATE TABLE %s%s (%s) ENGINE = MergeTree ORDER BY tuple()",
		clause, name, strings.Join(defs, ", "))
}

func (s *Sink) insert(ctx context.Context, name string, cols []string, rows [][]string) error {
	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s (%s)", name, strings.Join(cols, ", ")))
	if err != nil {
		return err
	}
	for _, row := range rows {
		if len(row) != len(cols) {
			return fmt.Errorf("row has %d cells, header has %d", len(row), len(cols))
		}
		args := make([]any, len(row))
		for i, cell := range row {
			args[i] = cell
		}
		if err := batch.Append(args...); err != nil {
			return err
		}
	}
	return batch.Send()
}

func (s *Sink) WriteTable(ctx context.Context, t sink.Table) error {
	if err := sink.ValidateName(t.Name); err != nil {
		return err
	}
	cols := columns(t.Header)
	if err := s.conn.Exec(ctx, "DROP TABLE IF EXISTS "+t.Name); err != nil {
		return fmt.Errorf("clickhouse sink: drop %s: %w", t.Name, err)
	}
	if err := s.conn.Exec(ctx, createStmt(t.Name, cols, false)); err != nil {
		return fmt.Errorf("clickhouse sink: create %s: %w", t.Name, err)
	}
	if err := s.insert(ctx, t.Name, cols, t.Rows); err != nil {
		return fmt.Errorf("clickhouse sink: insert into %s: %w", t.Name, err)
	}
	return nil
}

func (s *Sink) AppendHistory(ctx context.Context, t sink.Table) error {
	if err := sink.ValidateName(t.Name); err != nil {
		return err
	}
	cols := columns(t.Header)
	if err := s.conn.Exec(ctx, createStmt(t.Name, cols, true)); err != nil {
		return fmt.Errorf("clickhouse sink: create %s: %w", t.Name, err)
	}
	if err := s.insert(ctx, t.Name, cols, t.Rows); err != nil {
		return fmt.Errorf("clickhouse sink: insert into %s: %w", t.Name, err)
	}
	return nil
}

func (s *Sink) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
