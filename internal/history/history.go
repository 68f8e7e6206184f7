// Package history implements the append-only, deduplicating,
// time-bounded snapshot logs at the core of groovewatch.
//
// A Log owns all mutation of its table: callers submit candidate batches
// through Ingest and receive back the delta that was actually appended.
// Duplicate records (same identity key within the retained window) are
// dropped silently, retention is enforced on every ingest, and a batch is
// applied all-or-nothing.
package history

import (
	"errors"
	"time"
)

// DefaultRetention is how long records stay in a log before purge
// eligibility.
const DefaultRetention = 7 * 24 * time.Hour

// ErrMalformedBatch rejects an ingest batch containing a record that is
// missing required fields. The log is left unchanged.
var ErrMalformedBatch = errors.New("malformed history batch")

// Record is anything a Log can retain. Key must be stable for identical
// source records so duplicates are detected across batches.
type Record interface {
	Key() string
	EventAt() time.Time
	Validate() error
}

// AppendResult reports what a single Ingest call did.
type AppendResult struct {
	Appended int
	Skipped  int
	Purged   int
}

// StoredRecord is a retained log row as seen by readers.
type StoredRecord struct {
	Key        string
	CapturedAt time.Time
	EventAt    time.Time
	Payload    []byte
}
