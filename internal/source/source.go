// Package source fetches raw listening records from Spotify or from a
// local fixture file. It is a pull-based read interface only; nothing in
// here mutates state elsewhere in the system.
package source

import (
	"context"

	"github.com/loykin/groovewatch/internal/models"
)

// Source is the adapter contract the orchestrator pulls records through.
type Source interface {
	// RecentlyPlayed returns the most recent playback events,
	// most-recent-first, bounded by limit.
	RecentlyPlayed(ctx context.Context, limit int) ([]models.PlaybackEvent, error)
	// Library returns the user's saved tracks, paginated internally and
	// capped at maxTracks.
	Library(ctx context.Context, maxTracks int) (models.LibraryData, error)
}

// Enricher provides the optional per-track lookups used by analysis views.
// Implementations may return empty results when the backing service has no
// data; callers must tolerate that.
type Enricher interface {
	// TrackDetails fetches popularity/genre/album details for one track.
	TrackDetails(ctx context.Context, trackID string) (*models.TrackDetails, error)
	// GenresForTracks maps track IDs to artist genres using batch lookups.
	GenresForTracks(ctx context.Context, trackIDs []string) (map[string][]string, error)
}
