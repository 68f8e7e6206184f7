// Package sink defines the tabular destination the watchdog publishes its
// views to. A backend holds named tables of string cells; current-state
// tables are replaced wholesale on every write, history tables only grow.
package sink

import (
	"context"
	"fmt"
	"regexp"
)

// Table is a named grid of cells with a fixed header.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Sink is a tabular destination.
type Sink interface {
	// WriteTable replaces the named table with the given contents. The
	// replacement is atomic: readers never observe a partially written
	// table.
	WriteTable(ctx context.Context, t Table) error
	// AppendHistory appends rows to the named append-only table, creating
	// it with the header if missing.
	AppendHistory(ctx context.Context, t Table) error
	Close() error
}

var tableNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidateName rejects table names that cannot be embedded in SQL or used
// as a file name.
func ValidateName(name string) error {
	if !tableNameRe.MatchString(name) {
		return fmt.Errorf("sink: invalid table name %q", name)
	}
	return nil
}

var columnRe = regexp.MustCompile(`[^a-z0-9_]+`)

// ColumnName maps a human header label to a safe SQL column name.
func ColumnName(label string) string {
	col := columnRe.ReplaceAllString(lower(label), "_")
	if col == "" || (col[0] >= '0' && col[0] <= '9') {
		col = "c_" + col
	}
	return col
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}
