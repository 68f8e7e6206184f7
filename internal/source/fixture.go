package source

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/loykin/groovewatch/internal/models"
)

// Fixture serves deterministic data from a local JSON file. It backs test
// mode and lets the daemon run without network access.
//
// File format:
//
//	{
//	  "tracks": [
//	    {"id": "t1", "name": "...", "artist": "...", "album": "...",
//	     "duration_ms": 200000, "added_at": "2025-01-15T10:00:00Z"}
//	  ],
//	  "recently_played": [
//	    {"id": "t1", "name": "...", "artist": "...", "album": "...",
//	     "duration_ms": 200000, "played_at": "2025-03-01T08:30:00Z"}
//	  ]
//	}
type Fixture struct {
	path string
}

type fixtureTrack struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	DurationMS int64  `json:"duration_ms"`
	AddedAt    string `json:"added_at"`
	PlayedAt   string `json:"played_at"`
}

type fixtureFile struct {
	Tracks         []fixtureTrack `json:"tracks"`
	RecentlyPlayed []fixtureTrack `json:"recently_played"`
}

// NewFixture binds a fixture source to path. The file is read on every
// fetch, mirroring how the real source re-fetches per cycle.
func NewFixture(path string) *Fixture {
	return &Fixture{path: path}
}

func (f *Fixture) load() (*fixtureFile, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", f.path, err)
	}
	var ff fixtureFile
	if err := json.Unmarshal(b, &ff); err != nil {
		return nil, fmt.Errorf("fixture %s: decode: %w", f.path, err)
	}
	return &ff, nil
}

// parseWhen accepts RFC3339, a bare date, or a negative duration like
// "-45m" meaning that long before now. Relative forms keep a checked-in
// sample file inside the retention window no matter when it is run.
func parseWhen(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if len(s) > 1 && s[0] == '-' {
		d, err := time.ParseDuration(s)
		if err != nil {
			return time.Time{}, err
		}
		return time.Now().UTC().Add(d).Truncate(time.Second), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// RecentlyPlayed implements Source.
func (f *Fixture) RecentlyPlayed(_ context.Context, limit int) ([]models.PlaybackEvent, error) {
	ff, err := f.load()
	if err != nil {
		return nil, err
	}
	items := ff.RecentlyPlayed
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	events := make([]models.PlaybackEvent, 0, len(items))
	for _, t := range items {
		playedAt, err := parseWhen(t.PlayedAt)
		if err != nil {
			return nil, fmt.Errorf("fixture %s: bad played_at %q: %w", f.path, t.PlayedAt, err)
		}
		events = append(events, models.PlaybackEvent{
			TrackID:    t.ID,
			Name:       t.Name,
			Artist:     t.Artist,
			Album:      t.Album,
			PlayedAt:   playedAt,
			DurationMS: t.DurationMS,
		})
	}
	return events, nil
}

// Library implements Source.
func (f *Fixture) Library(_ context.Context, maxTracks int) (models.LibraryData, error) {
	ff, err := f.load()
	if err != nil {
		return models.LibraryData{}, err
	}
	items := ff.Tracks
	if maxTracks > 0 && len(items) > maxTracks {
		items = items[:maxTracks]
	}
	var lib models.LibraryData
	for _, t := range items {
		addedAt, err := parseWhen(t.AddedAt)
		if err != nil {
			return models.LibraryData{}, fmt.Errorf("fixture %s: bad added_at %q: %w", f.path, t.AddedAt, err)
		}
		lib.Tracks = append(lib.Tracks, models.SavedTrack{
			TrackID:    t.ID,
			Name:       t.Name,
			Artist:     t.Artist,
			Album:      t.Album,
			DurationMS: t.DurationMS,
			AddedAt:    addedAt,
		})
	}
	return lib, nil
}

// TrackDetails implements Enricher; fixtures carry no enrichment data.
func (f *Fixture) TrackDetails(context.Context, string) (*models.TrackDetails, error) {
	return nil, nil
}

// GenresForTracks implements Enricher; fixtures carry no genre data.
func (f *Fixture) GenresForTracks(context.Context, []string) (map[string][]string, error) {
	return map[string][]string{}, nil
}
