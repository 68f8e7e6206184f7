package source

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/loykin/groovewatch/internal/models"
)

const (
	defaultAPIBase  = "https://api.spotify.com/v1"
	defaultAuthBase = "https://accounts.spotify.com"
	pageSize        = 50
	// Spotify caps batch track/artist lookups at 50 ids per call.
	batchLimit = 50
)

// Credentials holds the refresh-token grant inputs.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Spotify talks to the Spotify Web API using a refresh token. The access
// token is renewed lazily when a call finds it missing or expired.
type Spotify struct {
	creds    Credentials
	http     *http.Client
	apiBase  string
	authBase string

	accessToken string
	tokenExp    time.Time
}

// SpotifyOption adjusts the client at construction time.
type SpotifyOption func(*Spotify)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) SpotifyOption {
	return func(s *Spotify) { s.http = c }
}

// WithBaseURLs points the client at alternate endpoints. Tests use this
// with httptest servers.
func WithBaseURLs(api, auth string) SpotifyOption {
	return func(s *Spotify) {
		s.apiBase = strings.TrimRight(api, "/")
		s.authBase = strings.TrimRight(auth, "/")
	}
}

// NewSpotify builds a Spotify source. Credentials are validated here so a
// misconfigured daemon fails at startup, not on the first cycle.
func NewSpotify(creds Credentials, opts ...SpotifyOption) (*Spotify, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" || creds.RefreshToken == "" {
		return nil, errors.New("spotify: client id, secret and refresh token are required")
	}
	s := &Spotify{
		creds:    creds,
		http:     &http.Client{Timeout: 30 * time.Second},
		apiBase:  defaultAPIBase,
		authBase: defaultAuthBase,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *Spotify) ensureToken(ctx context.Context) error {
	if s.accessToken != "" && time.Now().Before(s.tokenExp) {
		return nil
	}
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {s.creds.RefreshToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.authBase+"/api/token", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	basic := base64.StdEncoding.EncodeToString([]byte(s.creds.ClientID + ":" + s.creds.ClientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("spotify: refresh token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("spotify: refresh token: status %d: %s", resp.StatusCode, string(body))
	}
	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return fmt.Errorf("spotify: decode token: %w", err)
	}
	if tok.AccessToken == "" {
		return errors.New("spotify: empty access token in response")
	}
	s.accessToken = tok.AccessToken
	ttl := time.Duration(tok.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}
	// Renew a minute early so an in-flight cycle never races expiry.
	s.tokenExp = time.Now().Add(ttl - time.Minute)
	return nil
}

func (s *Spotify) get(ctx context.Context, path string, out any) error {
	if err := s.ensureToken(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiBase+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.accessToken)
	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("spotify: GET %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("spotify: GET %s: status %d: %s", path, resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Wire types for the subset of the Spotify payloads we read.
type apiArtist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
}

type apiAlbum struct {
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
}

type apiTrack struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Artists    []apiArtist `json:"artists"`
	Album      apiAlbum    `json:"album"`
	DurationMS int64       `json:"duration_ms"`
	Popularity int         `json:"popularity"`
	Explicit   bool        `json:"explicit"`
}

func joinArtists(artists []apiArtist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	if len(names) == 0 {
		return "Unknown"
	}
	return strings.Join(names, ", ")
}

// RecentlyPlayed implements Source.
func (s *Spotify) RecentlyPlayed(ctx context.Context, limit int) ([]models.PlaybackEvent, error) {
	if limit <= 0 || limit > pageSize {
		limit = pageSize
	}
	var payload struct {
		Items []struct {
			Track    apiTrack `json:"track"`
			PlayedAt string   `json:"played_at"`
		} `json:"items"`
	}
	if err := s.get(ctx, fmt.Sprintf("/me/player/recently-played?limit=%d", limit), &payload); err != nil {
		return nil, err
	}
	events := make([]models.PlaybackEvent, 0, len(payload.Items))
	for _, it := range payload.Items {
		playedAt, err := time.Parse(time.RFC3339, it.PlayedAt)
		if err != nil {
			return nil, fmt.Errorf("spotify: bad played_at %q: %w", it.PlayedAt, err)
		}
		events = append(events, models.PlaybackEvent{
			TrackID:    it.Track.ID,
			Name:       it.Track.Name,
			Artist:     joinArtists(it.Track.Artists),
			Album:      it.Track.Album.Name,
			PlayedAt:   playedAt,
			DurationMS: it.Track.DurationMS,
		})
	}
	return events, nil
}

// Library implements Source, paginating through saved tracks up to
// maxTracks.
func (s *Spotify) Library(ctx context.Context, maxTracks int) (models.LibraryData, error) {
	if maxTracks <= 0 {
		maxTracks = 500
	}
	var lib models.LibraryData
	for offset := 0; offset < maxTracks; offset += pageSize {
		var payload struct {
			Items []struct {
				AddedAt string   `json:"added_at"`
				Track   apiTrack `json:"track"`
			} `json:"items"`
			Total int `json:"total"`
		}
		limit := pageSize
		if rest := maxTracks - offset; rest < limit {
			limit = rest
		}
		if err := s.get(ctx, fmt.Sprintf("/me/tracks?limit=%d&offset=%d", limit, offset), &payload); err != nil {
			return models.LibraryData{}, err
		}
		if len(payload.Items) == 0 {
			break
		}
		for _, it := range payload.Items {
			addedAt, err := time.Parse(time.RFC3339, it.AddedAt)
			if err != nil {
				return models.LibraryData{}, fmt.Errorf("spotify: bad added_at %q: %w", it.AddedAt, err)
			}
			lib.Tracks = append(lib.Tracks, models.SavedTrack{
				TrackID:    it.Track.ID,
				Name:       it.Track.Name,
				Artist:     joinArtists(it.Track.Artists),
				Album:      it.Track.Album.Name,
				DurationMS: it.Track.DurationMS,
				AddedAt:    addedAt,
			})
		}
		if len(payload.Items) < limit {
			break
		}
	}
	return lib, nil
}

// TrackDetails implements Enricher using the track and artist endpoints.
// The audio-features endpoint is gone, so popularity and artist genres are
// the best signal available.
func (s *Spotify) TrackDetails(ctx context.Context, trackID string) (*models.TrackDetails, error) {
	if trackID == "" {
		return nil, nil
	}
	var track apiTrack
	if err := s.get(ctx, "/tracks/"+url.PathEscape(trackID), &track); err != nil {
		return nil, err
	}
	det := &models.TrackDetails{
		Popularity:   track.Popularity,
		DurationMS:   track.DurationMS,
		Explicit:     track.Explicit,
		AlbumName:    track.Album.Name,
		ReleaseDate:  track.Album.ReleaseDate,
		ArtistGenres: []string{},
	}
	if len(track.Artists) > 0 && track.Artists[0].ID != "" {
		var artist struct {
			Genres     []string `json:"genres"`
			Popularity int      `json:"popularity"`
		}
		if err := s.get(ctx, "/artists/"+url.PathEscape(track.Artists[0].ID), &artist); err == nil {
			det.ArtistGenres = artist.Genres
			det.ArtistPopularity = artist.Popularity
		}
	}
	return det, nil
}

// GenresForTracks implements Enricher with at most two batch calls for up
// to 50 tracks: one for tracks, one for their primary artists.
func (s *Spotify) GenresForTracks(ctx context.Context, trackIDs []string) (map[string][]string, error) {
	unique := make([]string, 0, len(trackIDs))
	seen := make(map[string]bool, len(trackIDs))
	for _, id := range trackIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
		if len(unique) == batchLimit {
			break
		}
	}
	if len(unique) == 0 {
		return map[string][]string{}, nil
	}

	var tracksPayload struct {
		Tracks []apiTrack `json:"tracks"`
	}
	if err := s.get(ctx, "/tracks?ids="+strings.Join(unique, ","), &tracksPayload); err != nil {
		return nil, err
	}

	trackToArtist := make(map[string]string)
	artistIDs := make([]string, 0, len(tracksPayload.Tracks))
	seenArtist := make(map[string]bool)
	for _, t := range tracksPayload.Tracks {
		if len(t.Artists) == 0 || t.Artists[0].ID == "" {
			continue
		}
		aid := t.Artists[0].ID
		trackToArtist[t.ID] = aid
		if !seenArtist[aid] && len(artistIDs) < batchLimit {
			seenArtist[aid] = true
			artistIDs = append(artistIDs, aid)
		}
	}
	if len(artistIDs) == 0 {
		return map[string][]string{}, nil
	}

	var artistsPayload struct {
		Artists []apiArtist `json:"artists"`
	}
	if err := s.get(ctx, "/artists?ids="+strings.Join(artistIDs, ","), &artistsPayload); err != nil {
		return nil, err
	}
	artistGenres := make(map[string][]string, len(artistsPayload.Artists))
	for _, a := range artistsPayload.Artists {
		artistGenres[a.ID] = a.Genres
	}

	out := make(map[string][]string, len(trackToArtist))
	for trackID, artistID := range trackToArtist {
		out[trackID] = artistGenres[artistID]
	}
	return out, nil
}
