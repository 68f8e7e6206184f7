package history

import (
	"context"
	"sort"
	"time"

	"github.com/goccy/go-json"

	"github.com/loykin/groovewatch/internal/models"
)

// PlayCounts aggregates the retained playback log into per-track play
// counts since the given instant, most-played first. Ties break by track
// name so the ordering is deterministic.
func PlayCounts(ctx context.Context, l *Log, since time.Time) ([]models.PlayCount, error) {
	recs, err := l.RecordsSince(ctx, since)
	if err != nil {
		return nil, err
	}
	type trackKey struct{ track, artist string }
	counts := make(map[trackKey]int)
	for _, r := range recs {
		var ev models.PlaybackEvent
		if err := json.Unmarshal(r.Payload, &ev); err != nil {
			return nil, err
		}
		counts[trackKey{ev.Name, ev.Artist}]++
	}
	out := make([]models.PlayCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, models.PlayCount{Track: k.track, Artist: k.artist, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Track < out[j].Track
	})
	return out, nil
}

// PlaybackEvents decodes the retained playback log back into events, in
// append order.
func PlaybackEvents(ctx context.Context, l *Log) ([]models.PlaybackEvent, error) {
	recs, err := l.Records(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.PlaybackEvent, 0, len(recs))
	for _, r := range recs {
		var ev models.PlaybackEvent
		if err := json.Unmarshal(r.Payload, &ev); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}
