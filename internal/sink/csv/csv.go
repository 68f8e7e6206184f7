// Package csv is the local fallback sink. Each table becomes one CSV file
// in the configured directory.
package csv

import (
	"context"
	stdcsv "encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/loykin/groovewatch/internal/sink"
)

type Sink struct {
	dir string
}

// New creates the directory if missing and returns the sink.
func New(dir string) (*Sink, error) {
	if dir == "" {
		return nil, fmt.Errorf("csv sink: empty directory")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("csv sink: %w", err)
	}
	return &Sink{dir: dir}, nil
}

func (s *Sink) path(name string) string {
	return filepath.Join(s.dir, name+".csv")
}

// WriteTable writes to a temp file and renames it over the target, so a
// reader tailing the file never sees a half-written table.
func (s *Sink) WriteTable(_ context.Context, t sink.Table) error {
	if err := sink.ValidateName(t.Name); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, t.Name+".*.tmp")
	if err != nil {
		return fmt.Errorf("csv sink: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	w := stdcsv.NewWriter(tmp)
	if err := w.Write(t.Header); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("csv sink: %w", err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("csv sink: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("csv sink: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(t.Name)); err != nil {
		return fmt.Errorf("csv sink: %w", err)
	}
	return nil
}

// AppendHistory appends rows, writing the header first if the file is new.
func (s *Sink) AppendHistory(_ context.Context, t sink.Table) error {
	if err := sink.ValidateName(t.Name); err != nil {
		return err
	}
	path := s.path(t.Name)
	_, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("csv sink: %w", err)
	}
	w := stdcsv.NewWriter(f)
	if fresh {
		if err := w.Write(t.Header); err != nil {
			_ = f.Close()
			return fmt.Errorf("csv sink: %w", err)
		}
	}
	if err := w.WriteAll(t.Rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("csv sink: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("csv sink: %w", err)
	}
	return nil
}

func (s *Sink) Close() error { return nil }
