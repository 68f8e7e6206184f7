package groovewatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const testFixture = `{
  "tracks": [
    {"id": "t1", "name": "First", "artist": "Alpha", "album": "A", "duration_ms": 200000, "added_at": "2025-01-15T10:00:00Z"},
    {"id": "t2", "name": "Second", "artist": "Beta", "album": "B", "duration_ms": 180000, "added_at": "2025-01-14T10:00:00Z"}
  ],
  "recently_played": [
    {"id": "t1", "name": "First", "artist": "Alpha", "album": "A", "duration_ms": 200000, "played_at": "-30m"},
    {"id": "t2", "name": "Second", "artist": "Beta", "album": "B", "duration_ms": 180000, "played_at": "-34m"},
    {"id": "t1", "name": "First", "artist": "Alpha", "album": "A", "duration_ms": 200000, "played_at": "-2h"}
  ]
}`

func TestOfflineFullCycleEndToEnd(t *testing.T) {
	dir := t.TempDir()
	fixture := filepath.Join(dir, "sample_data.json")
	if err := os.WriteFile(fixture, []byte(testFixture), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	out := filepath.Join(dir, "out")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.FixturePath = fixture
	cfg.SinkDSN = "csv://" + out
	cfg.HistoryDSN = ":memory:"

	w, err := New(cfg, true)
	if err != nil {
		t.Fatalf("new watchdog: %v", err)
	}
	defer func() { _ = w.Close() }()

	if err := w.RunTest(context.Background()); err != nil {
		t.Fatalf("test cycle: %v", err)
	}

	for _, name := range []string{
		"summary.csv", "top_artists.csv", "monthly_additions.csv",
		"recent_tracks.csv", "recently_played.csv", "suggestions.csv",
		"genres.csv", "weekly_favorite.csv", "favorite_recommendations.csv",
		"top_songs.csv", "playlist.csv", "history_playback.csv", "history_summary.csv",
	} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("expected %s to be written: %v", name, err)
		}
	}
}

func TestNewRequiresCredentialsOnline(t *testing.T) {
	t.Setenv("SPOTIFY_CLIENT_ID", "")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "")
	t.Setenv("SPOTIFY_REFRESH_TOKEN", "")
	t.Setenv("USE_SAMPLE_DATA", "")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if _, err := New(cfg, false); err == nil {
		t.Fatal("expected error without Spotify credentials")
	}
}
