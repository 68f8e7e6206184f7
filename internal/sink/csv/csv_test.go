package csv

import (
	"context"
	stdcsv "encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loykin/groovewatch/internal/sink"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer func() { _ = f.Close() }()
	rows, err := stdcsv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func TestWriteTableReplaces(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	tbl := sink.Table{
		Name:   "summary",
		Header: []string{"Metric", "Value"},
		Rows:   [][]string{{"Total Tracks", "42"}},
	}
	if err := s.WriteTable(context.Background(), tbl); err != nil {
		t.Fatalf("write: %v", err)
	}
	tbl.Rows = [][]string{{"Total Tracks", "43"}}
	if err := s.WriteTable(context.Background(), tbl); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	rows := readCSV(t, filepath.Join(dir, "summary.csv"))
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header+1", len(rows))
	}
	if rows[1][1] != "43" {
		t.Errorf("replace did not take: got %q", rows[1][1])
	}
}

func TestAppendHistoryGrows(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	tbl := sink.Table{
		Name:   "history_playback",
		Header: []string{"Played At", "Track"},
		Rows:   [][]string{{"2025-03-01T08:30:00Z", "First"}},
	}
	if err := s.AppendHistory(context.Background(), tbl); err != nil {
		t.Fatalf("append: %v", err)
	}
	tbl.Rows = [][]string{{"2025-03-01T08:35:00Z", "Second"}}
	if err := s.AppendHistory(context.Background(), tbl); err != nil {
		t.Fatalf("append: %v", err)
	}
	rows := readCSV(t, filepath.Join(dir, "history_playback.csv"))
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header+2", len(rows))
	}
	// Header written once.
	if rows[0][0] != "Played At" || rows[1][0] == "Played At" {
		t.Errorf("unexpected header placement: %v", rows[:2])
	}
}

func TestWriteTableRejectsBadName(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	err = s.WriteTable(context.Background(), sink.Table{Name: "../escape"})
	if err == nil || !strings.Contains(err.Error(), "invalid table name") {
		t.Fatalf("expected invalid name error, got %v", err)
	}
}

func TestWriteTableLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	tbl := sink.Table{Name: "genres", Header: []string{"Genre", "Percentage"}}
	if err := s.WriteTable(context.Background(), tbl); err != nil {
		t.Fatalf("write: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}
