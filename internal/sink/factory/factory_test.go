package factory

import (
	"testing"
)

func TestNewSinkFromDSNCSV(t *testing.T) {
	s, err := NewSinkFromDSN("csv://" + t.TempDir())
	if err != nil {
		t.Fatalf("csv dsn: %v", err)
	}
	defer func() { _ = s.Close() }()
}

func TestNewSinkFromDSNPlainPathIsCSV(t *testing.T) {
	s, err := NewSinkFromDSN(t.TempDir())
	if err != nil {
		t.Fatalf("plain path dsn: %v", err)
	}
	defer func() { _ = s.Close() }()
}

func TestNewSinkFromDSNEmpty(t *testing.T) {
	if _, err := NewSinkFromDSN("  "); err == nil {
		t.Fatal("expected error for empty DSN")
	}
}

func TestNewSinkFromDSNUnsupported(t *testing.T) {
	if _, err := NewSinkFromDSN("redis://localhost:6379"); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}
