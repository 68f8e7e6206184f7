package analysis

import (
	"context"
	"fmt"

	"github.com/loykin/groovewatch/internal/models"
)

// Static is a deterministic Analyzer for offline runs. It fabricates
// plausible views from its inputs without any network call, so a test
// cycle still populates every table.
type Static struct{}

// NewStatic returns the offline analyzer.
func NewStatic() *Static { return &Static{} }

func (Static) Suggestions(_ context.Context, recent []models.PlaybackEvent) ([]models.Suggestion, error) {
	if len(recent) == 0 {
		return nil, nil
	}
	out := make([]models.Suggestion, 0, 5)
	for i := 0; i < 5; i++ {
		ev := recent[i%len(recent)]
		out = append(out, models.Suggestion{
			Song:   fmt.Sprintf("More Like %s %d", ev.Name, i+1),
			Artist: ev.Artist,
			Reason: "similar to your recent plays",
		})
	}
	return out, nil
}

func (Static) ClassifyGenres(_ context.Context, artists []ArtistSample) (map[string]string, error) {
	genres := []string{"Indie", "Pop", "Rock", "Electronic", "Hip Hop"}
	out := make(map[string]string, len(artists))
	for i, a := range artists {
		out[a.Artist] = genres[i%len(genres)]
	}
	return out, nil
}

func (Static) WeeklyFavorite(_ context.Context, counts []models.PlayCount, details *models.TrackDetails) (*models.FavoriteAnalysis, error) {
	if len(counts) == 0 {
		return nil, nil
	}
	fav := counts[0]
	return &models.FavoriteAnalysis{
		Favorite:     fav,
		MoodAnalysis: fmt.Sprintf("%q carries a steady, repeat-worthy energy.", fav.Track),
		TasteProfile: fmt.Sprintf("Heavy rotation of %s points to a focused listening habit.", fav.Artist),
		Recommendations: []models.Suggestion{
			{Song: "Echoes", Artist: fav.Artist, Reason: "same artist, same energy"},
			{Song: "Afterglow", Artist: "The Stand-ins", Reason: "matches the mood"},
			{Song: "Second Wind", Artist: "Placeholder Club", Reason: "pairs well on repeat"},
		},
		TrackDetails: details,
	}, nil
}

func (Static) TopSongs(_ context.Context, top []models.PlayCount) (*models.TopSongsAnalysis, error) {
	if len(top) == 0 {
		return nil, nil
	}
	if len(top) > 3 {
		top = top[:3]
	}
	analyses := make([]models.SongAnalysis, 0, len(top))
	songs := make([]models.PlaylistTrack, 0, 5)
	for _, pc := range top {
		analyses = append(analyses, models.SongAnalysis{
			Track:        pc.Track,
			Artist:       pc.Artist,
			WhyYouLoveIt: fmt.Sprintf("Played %d times this week. It clearly stuck.", pc.Count),
			PlayCount:    pc.Count,
		})
	}
	for i := 0; i < 5; i++ {
		pc := top[i%len(top)]
		songs = append(songs, models.PlaylistTrack{
			Track:  fmt.Sprintf("In the Vein of %s %d", pc.Track, i+1),
			Artist: pc.Artist,
		})
	}
	return &models.TopSongsAnalysis{
		SongAnalyses: analyses,
		Playlist: models.Playlist{
			Name:        "On Repeat",
			Description: "Built from the songs you kept coming back to.",
			Songs:       songs,
		},
	}, nil
}

func (Static) Validate(_ context.Context, snap models.LibrarySnapshot, _ []models.ArtistCount) (string, error) {
	if snap.TrackCount == 0 {
		return "library is empty", nil
	}
	if snap.AvgMinutes > 60 {
		return "average song length is implausible", nil
	}
	return "OK", nil
}
