// Package analysis derives dashboard views from aggregated listening data.
//
// The summary views are computed locally and deterministically; the
// narrative views (suggestions, genre classification of unknown artists,
// favorite/mood analysis) go through an Analyzer. Every Analyzer call is
// stateless and independently fallible: one failing view never aborts the
// rest of a full cycle.
package analysis

import (
	"context"

	"github.com/loykin/groovewatch/internal/models"
)

// Analyzer produces the AI-derived views.
type Analyzer interface {
	// Suggestions proposes songs based on recent listening.
	Suggestions(ctx context.Context, recent []models.PlaybackEvent) ([]models.Suggestion, error)
	// ClassifyGenres assigns one genre per artist for artists the source
	// has no genre data for.
	ClassifyGenres(ctx context.Context, artists []ArtistSample) (map[string]string, error)
	// WeeklyFavorite explains the most-played track and recommends
	// similar songs. details may be nil when enrichment is unavailable.
	WeeklyFavorite(ctx context.Context, counts []models.PlayCount, details *models.TrackDetails) (*models.FavoriteAnalysis, error)
	// TopSongs analyzes the top three tracks and builds a playlist.
	TopSongs(ctx context.Context, top []models.PlayCount) (*models.TopSongsAnalysis, error)
	// Validate sanity-checks a locally computed summary. The result is a
	// short message ("OK" or an issue description) and is log-only.
	Validate(ctx context.Context, snap models.LibrarySnapshot, top []models.ArtistCount) (string, error)
}

// ArtistSample is an artist plus a few of their tracks, used as
// classification context.
type ArtistSample struct {
	Artist    string
	Tracks    []string
	PlayCount int
}
