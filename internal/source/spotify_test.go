package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

// fakeSpotify serves the minimal API surface the client touches.
func fakeSpotify(t *testing.T, totalLibrary int) (*httptest.Server, *httptest.Server) {
	t.Helper()
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-access-token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/me/player/recently-played":
			fmt.Fprint(w, `{"items":[
				{"played_at":"2025-03-01T08:30:00Z","track":{"id":"t1","name":"First","duration_ms":200000,"album":{"name":"A"},"artists":[{"id":"a1","name":"Alpha"}]}},
				{"played_at":"2025-03-01T08:26:00Z","track":{"id":"t2","name":"Second","duration_ms":180000,"album":{"name":"B"},"artists":[{"id":"a2","name":"Beta"},{"id":"a3","name":"Gamma"}]}}
			]}`)
		case "/me/tracks":
			offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			fmt.Fprint(w, `{"items":[`)
			n := 0
			for i := offset; i < totalLibrary && n < limit; i++ {
				if n > 0 {
					fmt.Fprint(w, ",")
				}
				fmt.Fprintf(w, `{"added_at":"2025-01-%02dT10:00:00Z","track":{"id":"lib%d","name":"Track %d","duration_ms":200000,"album":{"name":"A"},"artists":[{"id":"a1","name":"Alpha"}]}}`, i%27+1, i, i)
				n++
			}
			fmt.Fprintf(w, `],"total":%d}`, totalLibrary)
		case "/tracks":
			fmt.Fprint(w, `{"tracks":[
				{"id":"t1","name":"First","artists":[{"id":"a1","name":"Alpha"}]},
				{"id":"t2","name":"Second","artists":[{"id":"a2","name":"Beta"}]}
			]}`)
		case "/artists":
			fmt.Fprint(w, `{"artists":[
				{"id":"a1","name":"Alpha","genres":["indie rock"]},
				{"id":"a2","name":"Beta","genres":[]}
			]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/token" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil || r.Form.Get("grant_type") != "refresh_token" {
			http.Error(w, "bad grant", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"access_token":"test-access-token","expires_in":3600}`)
	}))
	t.Cleanup(api.Close)
	t.Cleanup(auth.Close)
	return api, auth
}

func testClient(t *testing.T, totalLibrary int) *Spotify {
	t.Helper()
	api, auth := fakeSpotify(t, totalLibrary)
	s, err := NewSpotify(Credentials{
		ClientID:     "id",
		ClientSecret: "secret",
		RefreshToken: "refresh",
	}, WithBaseURLs(api.URL, auth.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return s
}

func TestSpotifyRecentlyPlayed(t *testing.T) {
	s := testClient(t, 0)
	events, err := s.RecentlyPlayed(context.Background(), 50)
	if err != nil {
		t.Fatalf("recently played: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[1].Artist != "Beta, Gamma" {
		t.Errorf("multi-artist join: got %q", events[1].Artist)
	}
	if events[0].Key() == events[1].Key() {
		t.Error("distinct plays must have distinct identity keys")
	}
}

func TestSpotifyLibraryPagination(t *testing.T) {
	s := testClient(t, 120)
	lib, err := s.Library(context.Background(), 500)
	if err != nil {
		t.Fatalf("library: %v", err)
	}
	if len(lib.Tracks) != 120 {
		t.Fatalf("got %d tracks, want 120", len(lib.Tracks))
	}
}

func TestSpotifyLibraryCap(t *testing.T) {
	s := testClient(t, 120)
	lib, err := s.Library(context.Background(), 80)
	if err != nil {
		t.Fatalf("library: %v", err)
	}
	if len(lib.Tracks) != 80 {
		t.Fatalf("got %d tracks, want cap of 80", len(lib.Tracks))
	}
}

func TestSpotifyGenresForTracks(t *testing.T) {
	s := testClient(t, 0)
	genres, err := s.GenresForTracks(context.Background(), []string{"t1", "t2", "t1", ""})
	if err != nil {
		t.Fatalf("genres: %v", err)
	}
	if got := genres["t1"]; len(got) != 1 || got[0] != "indie rock" {
		t.Errorf("t1 genres: got %v", got)
	}
	if got := genres["t2"]; len(got) != 0 {
		t.Errorf("t2 genres: got %v, want empty", got)
	}
}

func TestSpotifyUnavailable(t *testing.T) {
	api, auth := fakeSpotify(t, 0)
	auth.Close() // token endpoint gone
	s, err := NewSpotify(Credentials{
		ClientID:     "id",
		ClientSecret: "secret",
		RefreshToken: "refresh",
	}, WithBaseURLs(api.URL, auth.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := s.RecentlyPlayed(context.Background(), 50); err == nil {
		t.Fatal("expected error when auth endpoint is unreachable")
	}
}

func TestNewSpotifyRequiresCredentials(t *testing.T) {
	if _, err := NewSpotify(Credentials{}); err == nil {
		t.Fatal("expected error for empty credentials")
	}
}
