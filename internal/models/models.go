// Package models defines the data types shared across groovewatch modules:
// raw listening records fetched from the source, derived dashboard views,
// and the error taxonomy used at cycle boundaries.
package models

import (
	"fmt"
	"time"
)

// PlaybackEvent is a single recently-played record. Immutable once fetched.
type PlaybackEvent struct {
	TrackID    string    `json:"track_id"`
	Name       string    `json:"name"`
	Artist     string    `json:"artist"`
	Album      string    `json:"album"`
	PlayedAt   time.Time `json:"played_at"`
	DurationMS int64     `json:"duration_ms"`
}

// Key returns the dedup identity for a playback event. Spotify reports
// played_at with second granularity, so the key truncates to seconds.
func (e PlaybackEvent) Key() string {
	return e.TrackID + "@" + e.PlayedAt.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// EventAt returns the source-reported timestamp used for retention.
func (e PlaybackEvent) EventAt() time.Time { return e.PlayedAt }

// Validate reports whether the event carries the fields its identity key
// and retention handling depend on.
func (e PlaybackEvent) Validate() error {
	if e.TrackID == "" {
		return fmt.Errorf("playback event %q: missing track id", e.Name)
	}
	if e.Name == "" {
		return fmt.Errorf("playback event %s: missing track name", e.TrackID)
	}
	if e.PlayedAt.IsZero() {
		return fmt.Errorf("playback event %s: missing played_at", e.TrackID)
	}
	return nil
}

// SavedTrack is one entry of the user's library.
type SavedTrack struct {
	TrackID    string    `json:"track_id"`
	Name       string    `json:"name"`
	Artist     string    `json:"artist"`
	Album      string    `json:"album"`
	DurationMS int64     `json:"duration_ms"`
	AddedAt    time.Time `json:"added_at"`
}

// LibraryData is the full-library fetch result, capped at the configured
// fetch limit.
type LibraryData struct {
	Tracks []SavedTrack `json:"tracks"`
}

// LibrarySnapshot is the per-full-cycle summary ingested into the summary
// history log.
type LibrarySnapshot struct {
	CapturedAt      time.Time `json:"captured_at"`
	TrackCount      int       `json:"track_count"`
	TotalDurationMS int64     `json:"total_duration_ms"`
	UniqueArtists   int       `json:"unique_artists"`
	TotalHours      float64   `json:"total_hours"`
	AvgMinutes      float64   `json:"avg_minutes"`
	DateRange       string    `json:"date_range"`
}

// Key identifies a snapshot for dedup. One snapshot per minute is plenty;
// a retried full cycle within the same minute is a duplicate, not new data.
func (s LibrarySnapshot) Key() string {
	return s.CapturedAt.UTC().Truncate(time.Minute).Format(time.RFC3339)
}

// EventAt returns the capture timestamp used for retention.
func (s LibrarySnapshot) EventAt() time.Time { return s.CapturedAt }

// Validate reports whether the snapshot is well-formed for ingest.
func (s LibrarySnapshot) Validate() error {
	if s.CapturedAt.IsZero() {
		return fmt.Errorf("library snapshot: missing captured_at")
	}
	if s.TrackCount < 0 {
		return fmt.Errorf("library snapshot: negative track count %d", s.TrackCount)
	}
	return nil
}

// ArtistCount is one row of the top-artists view.
type ArtistCount struct {
	Artist string `json:"artist"`
	Count  int    `json:"count"`
}

// MonthCount is one row of the monthly-additions view.
type MonthCount struct {
	Month string `json:"month"` // YYYY-MM
	Count int    `json:"count"`
}

// RecentTrack is one row of the recently-added view.
type RecentTrack struct {
	Name   string `json:"name"`
	Artist string `json:"artist"`
	Added  string `json:"added"` // YYYY-MM-DD
}

// Processed holds the locally computed dashboard views for a full cycle.
type Processed struct {
	Summary          LibrarySnapshot `json:"summary"`
	TopArtists       []ArtistCount   `json:"top_artists"`
	MonthlyAdditions []MonthCount    `json:"monthly_additions"`
	RecentTracks     []RecentTrack   `json:"recent_tracks"`
}

// Suggestion is one AI song suggestion.
type Suggestion struct {
	Song   string `json:"song"`
	Artist string `json:"artist"`
	Reason string `json:"reason"`
}

// GenreShare is one slice of the genre breakdown; percentages sum to 100.
type GenreShare struct {
	Genre      string `json:"genre"`
	Percentage int    `json:"percentage"`
}

// TrackDetails is the enrichment fetched for the weekly favorite track.
type TrackDetails struct {
	Popularity       int      `json:"popularity"`
	DurationMS       int64    `json:"duration_ms"`
	Explicit         bool     `json:"explicit"`
	AlbumName        string   `json:"album_name"`
	ReleaseDate      string   `json:"release_date"`
	ArtistGenres     []string `json:"artist_genres"`
	ArtistPopularity int      `json:"artist_popularity"`
}

// PlayCount pairs a track with how often it was played in the retained window.
type PlayCount struct {
	Track  string `json:"track"`
	Artist string `json:"artist"`
	Count  int    `json:"count"`
}

// FavoriteAnalysis is the weekly most-played view.
type FavoriteAnalysis struct {
	Favorite        PlayCount     `json:"favorite"`
	MoodAnalysis    string        `json:"mood_analysis"`
	TasteProfile    string        `json:"taste_profile"`
	Recommendations []Suggestion  `json:"recommendations"`
	TrackDetails    *TrackDetails `json:"track_details,omitempty"`
}

// SongAnalysis explains the appeal of one top song.
type SongAnalysis struct {
	Track        string `json:"track"`
	Artist       string `json:"artist"`
	WhyYouLoveIt string `json:"why_you_love_it"`
	PlayCount    int    `json:"play_count"`
}

// PlaylistTrack is one entry of the generated playlist.
type PlaylistTrack struct {
	Track  string `json:"track"`
	Artist string `json:"artist"`
}

// Playlist is the AI-generated mini playlist.
type Playlist struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Songs       []PlaylistTrack `json:"songs"`
}

// TopSongsAnalysis covers the top three tracks plus a playlist built from them.
type TopSongsAnalysis struct {
	SongAnalyses []SongAnalysis `json:"song_analyses"`
	Playlist     Playlist       `json:"playlist"`
}

// AdapterError marks a failure reaching an external collaborator (source,
// analysis, or sink). The orchestrator logs adapter and stage so a cycle
// failure is diagnosable from process output alone.
type AdapterError struct {
	Adapter string // "source", "analysis", "sink"
	Stage   string // e.g. "recently_played", "write_table:summary"
	Err     error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s adapter unavailable at %s: %v", e.Adapter, e.Stage, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }
