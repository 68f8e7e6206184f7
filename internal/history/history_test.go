package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/loykin/groovewatch/internal/models"
)

func testLog(t *testing.T, opts ...Option) *Log {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open history db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	l, err := NewLog(db, "playback_history", DefaultRetention, opts...)
	if err != nil {
		t.Fatalf("new log: %v", err)
	}
	return l
}

func event(id string, playedAt time.Time) models.PlaybackEvent {
	return models.PlaybackEvent{
		TrackID:    id,
		Name:       "Track " + id,
		Artist:     "Artist",
		PlayedAt:   playedAt,
		DurationMS: 180000,
	}
}

func toRecords(evs ...models.PlaybackEvent) []Record {
	recs := make([]Record, len(evs))
	for i, e := range evs {
		recs[i] = e
	}
	return recs
}

func TestIngestIdempotent(t *testing.T) {
	l := testLog(t)
	ctx := context.Background()
	now := time.Now().UTC()

	batch := toRecords(event("a", now.Add(-2*time.Minute)), event("b", now.Add(-time.Minute)))

	res, delta, err := l.Ingest(ctx, batch)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if res.Appended != 2 || res.Skipped != 0 {
		t.Fatalf("first ingest: got %+v, want 2 appended", res)
	}
	if len(delta) != 2 {
		t.Fatalf("first ingest delta: got %d records, want 2", len(delta))
	}

	res, delta, err = l.Ingest(ctx, batch)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if res.Appended != 0 || res.Skipped != 2 {
		t.Fatalf("second ingest: got %+v, want 0 appended 2 skipped", res)
	}
	if len(delta) != 0 {
		t.Fatalf("second ingest delta: got %d records, want none", len(delta))
	}

	n, err := l.Len(ctx)
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if n != 2 {
		t.Fatalf("retained records: got %d, want 2", n)
	}
}

func TestIngestDedupWithinBatch(t *testing.T) {
	l := testLog(t)
	now := time.Now().UTC()
	ev := event("a", now)

	res, _, err := l.Ingest(context.Background(), toRecords(ev, ev, ev))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.Appended != 1 || res.Skipped != 2 {
		t.Fatalf("got %+v, want 1 appended 2 skipped", res)
	}
}

func TestRetentionPurgesOldRecords(t *testing.T) {
	// Fake the clock so the first ingest happens "8 days ago".
	fake := time.Now().UTC().Add(-8 * 24 * time.Hour)
	l := testLog(t, WithClock(func() time.Time { return fake }))
	ctx := context.Background()

	old := event("old", fake)
	if _, _, err := l.Ingest(ctx, toRecords(old)); err != nil {
		t.Fatalf("ingest old: %v", err)
	}

	// Move the clock to the present; any ingest must purge the stale row.
	fake = time.Now().UTC()
	fresh := event("fresh", fake)
	res, _, err := l.Ingest(ctx, toRecords(fresh))
	if err != nil {
		t.Fatalf("ingest fresh: %v", err)
	}
	if res.Purged != 1 {
		t.Fatalf("purged: got %d, want 1", res.Purged)
	}

	recs, err := l.Records(ctx)
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("retained: got %d records, want 1", len(recs))
	}
	if recs[0].Key != fresh.Key() {
		t.Fatalf("retained key: got %s, want %s", recs[0].Key, fresh.Key())
	}
}

func TestRetentionRunsOnAllDuplicateBatch(t *testing.T) {
	fake := time.Now().UTC().Add(-8 * 24 * time.Hour)
	l := testLog(t, WithClock(func() time.Time { return fake }))
	ctx := context.Background()

	old := event("old", fake)
	if _, _, err := l.Ingest(ctx, toRecords(old)); err != nil {
		t.Fatalf("ingest old: %v", err)
	}

	fake = time.Now().UTC()
	// Re-submitting the same stale record appends nothing (and the copy in
	// the log is purged by the same call).
	res, _, err := l.Ingest(ctx, toRecords(old))
	if err != nil {
		t.Fatalf("ingest dup: %v", err)
	}
	if res.Purged == 0 {
		t.Fatalf("expected purge on all-duplicate batch, got %+v", res)
	}
	n, err := l.Len(ctx)
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if n != 0 {
		t.Fatalf("retained: got %d, want 0", n)
	}
}

func TestOrderingPreserved(t *testing.T) {
	l := testLog(t)
	ctx := context.Background()
	now := time.Now().UTC()

	a := event("a", now.Add(-3*time.Minute))
	b := event("b", now.Add(-2*time.Minute))
	c := event("c", now.Add(-time.Minute))

	if _, _, err := l.Ingest(ctx, toRecords(a, b)); err != nil {
		t.Fatalf("ingest 1: %v", err)
	}
	if _, _, err := l.Ingest(ctx, toRecords(c)); err != nil {
		t.Fatalf("ingest 2: %v", err)
	}

	recs, err := l.Records(ctx)
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	want := []string{a.Key(), b.Key(), c.Key()}
	if len(recs) != len(want) {
		t.Fatalf("got %d records, want %d", len(recs), len(want))
	}
	for i, w := range want {
		if recs[i].Key != w {
			t.Errorf("record %d: got %s, want %s", i, recs[i].Key, w)
		}
	}
}

func TestMalformedBatchIsAtomic(t *testing.T) {
	l := testLog(t)
	ctx := context.Background()
	now := time.Now().UTC()

	bad := models.PlaybackEvent{Name: "No ID", PlayedAt: now}
	batch := toRecords(
		event("1", now.Add(-5*time.Minute)),
		event("2", now.Add(-4*time.Minute)),
	)
	batch = append(batch, bad)
	batch = append(batch, toRecords(
		event("4", now.Add(-2*time.Minute)),
		event("5", now.Add(-time.Minute)),
	)...)

	_, _, err := l.Ingest(ctx, batch)
	if !errors.Is(err, ErrMalformedBatch) {
		t.Fatalf("expected ErrMalformedBatch, got %v", err)
	}

	n, err := l.Len(ctx)
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if n != 0 {
		t.Fatalf("log changed by rejected batch: %d records", n)
	}
}

func TestSnapshotLog(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = db.Close() }()
	l, err := NewLog(db, "summary_history", DefaultRetention)
	if err != nil {
		t.Fatalf("new log: %v", err)
	}

	snap := models.LibrarySnapshot{
		CapturedAt:    time.Now().UTC(),
		TrackCount:    120,
		UniqueArtists: 34,
	}
	res, _, err := l.Ingest(context.Background(), []Record{snap})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.Appended != 1 {
		t.Fatalf("got %+v, want 1 appended", res)
	}

	// Same minute, same key: a retried full cycle must not double-append.
	res, _, err = l.Ingest(context.Background(), []Record{snap})
	if err != nil {
		t.Fatalf("re-ingest: %v", err)
	}
	if res.Appended != 0 || res.Skipped != 1 {
		t.Fatalf("got %+v, want duplicate skip", res)
	}
}

func TestPlayCounts(t *testing.T) {
	l := testLog(t)
	ctx := context.Background()
	now := time.Now().UTC()

	evs := []models.PlaybackEvent{
		event("x", now.Add(-30*time.Minute)),
		event("x", now.Add(-20*time.Minute)),
		event("x", now.Add(-10*time.Minute)),
		event("y", now.Add(-5*time.Minute)),
	}
	if _, _, err := l.Ingest(ctx, toRecords(evs...)); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	counts, err := PlayCounts(ctx, l, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("play counts: %v", err)
	}
	if len(counts) != 2 {
		t.Fatalf("got %d tracks, want 2", len(counts))
	}
	if counts[0].Track != "Track x" || counts[0].Count != 3 {
		t.Fatalf("top track: got %+v, want Track x with 3 plays", counts[0])
	}
}
