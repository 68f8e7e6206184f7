package analysis

import (
	"context"
	"testing"

	"github.com/loykin/groovewatch/internal/models"
)

func TestStaticCoversEveryView(t *testing.T) {
	ctx := context.Background()
	s := NewStatic()

	recent := []models.PlaybackEvent{{TrackID: "t1", Name: "First", Artist: "Alpha"}}
	counts := []models.PlayCount{
		{Track: "First", Artist: "Alpha", Count: 5},
		{Track: "Second", Artist: "Beta", Count: 3},
	}

	sugg, err := s.Suggestions(ctx, recent)
	if err != nil || len(sugg) != 5 {
		t.Fatalf("suggestions: %v (%d)", err, len(sugg))
	}

	genres, err := s.ClassifyGenres(ctx, []ArtistSample{{Artist: "Alpha"}})
	if err != nil || genres["Alpha"] == "" {
		t.Fatalf("classify: %v (%v)", err, genres)
	}

	fav, err := s.WeeklyFavorite(ctx, counts, nil)
	if err != nil || fav == nil || fav.Favorite.Track != "First" {
		t.Fatalf("weekly favorite: %v (%+v)", err, fav)
	}
	if len(fav.Recommendations) != 3 {
		t.Errorf("recommendations: got %d, want 3", len(fav.Recommendations))
	}

	top, err := s.TopSongs(ctx, counts)
	if err != nil || top == nil {
		t.Fatalf("top songs: %v", err)
	}
	if len(top.SongAnalyses) != 2 || len(top.Playlist.Songs) != 5 {
		t.Errorf("top songs shape: %d analyses, %d playlist songs", len(top.SongAnalyses), len(top.Playlist.Songs))
	}

	msg, err := s.Validate(ctx, models.LibrarySnapshot{TrackCount: 10, AvgMinutes: 3.5}, nil)
	if err != nil || msg != "OK" {
		t.Fatalf("validate: %v (%q)", err, msg)
	}
}

func TestStaticEmptyInputs(t *testing.T) {
	ctx := context.Background()
	s := NewStatic()

	if got, err := s.Suggestions(ctx, nil); err != nil || got != nil {
		t.Errorf("suggestions on empty input: %v, %v", got, err)
	}
	if got, err := s.WeeklyFavorite(ctx, nil, nil); err != nil || got != nil {
		t.Errorf("favorite on empty input: %v, %v", got, err)
	}
	if got, err := s.TopSongs(ctx, nil); err != nil || got != nil {
		t.Errorf("top songs on empty input: %v, %v", got, err)
	}
	if msg, err := s.Validate(ctx, models.LibrarySnapshot{}, nil); err != nil || msg == "OK" {
		t.Errorf("validate on empty library: %q, %v", msg, err)
	}
}
