package orchestrator

import (
	"strconv"
	"time"

	"github.com/loykin/groovewatch/internal/models"
	"github.com/loykin/groovewatch/internal/sink"
)

// Table builders. Every dashboard view becomes a sink.Table of string
// cells; numbers are formatted here so all backends render identically.

func itoa(n int) string { return strconv.Itoa(n) }

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func summaryTable(s models.LibrarySnapshot) sink.Table {
	return sink.Table{
		Name:   "summary",
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Total Tracks", itoa(s.TrackCount)},
			{"Total Hours", ftoa(s.TotalHours)},
			{"Average Song Minutes", ftoa(s.AvgMinutes)},
			{"Unique Artists", itoa(s.UniqueArtists)},
			{"Date Range", s.DateRange},
			{"Captured At", stamp(s.CapturedAt)},
		},
	}
}

func topArtistsTable(top []models.ArtistCount) sink.Table {
	rows := make([][]string, 0, len(top))
	for i, a := range top {
		rows = append(rows, []string{itoa(i + 1), a.Artist, itoa(a.Count)})
	}
	return sink.Table{Name: "top_artists", Header: []string{"Rank", "Artist", "Tracks"}, Rows: rows}
}

func monthlyAdditionsTable(monthly []models.MonthCount) sink.Table {
	rows := make([][]string, 0, len(monthly))
	for _, m := range monthly {
		rows = append(rows, []string{m.Month, itoa(m.Count)})
	}
	return sink.Table{Name: "monthly_additions", Header: []string{"Month", "Tracks Added"}, Rows: rows}
}

func recentTracksTable(recent []models.RecentTrack) sink.Table {
	rows := make([][]string, 0, len(recent))
	for _, t := range recent {
		rows = append(rows, []string{t.Name, t.Artist, t.Added})
	}
	return sink.Table{Name: "recent_tracks", Header: []string{"Track", "Artist", "Added"}, Rows: rows}
}

// localTables are the deterministic views of a full cycle.
func localTables(p models.Processed) []sink.Table {
	return []sink.Table{
		summaryTable(p.Summary),
		topArtistsTable(p.TopArtists),
		monthlyAdditionsTable(p.MonthlyAdditions),
		recentTracksTable(p.RecentTracks),
	}
}

func recentlyPlayedTable(events []models.PlaybackEvent) sink.Table {
	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		rows = append(rows, []string{stamp(ev.PlayedAt), ev.Name, ev.Artist, ev.Album})
	}
	return sink.Table{Name: "recently_played", Header: []string{"Played At", "Track", "Artist", "Album"}, Rows: rows}
}

func suggestionsTable(suggestions []models.Suggestion) sink.Table {
	rows := make([][]string, 0, len(suggestions))
	for _, s := range suggestions {
		rows = append(rows, []string{s.Song, s.Artist, s.Reason})
	}
	return sink.Table{Name: "suggestions", Header: []string{"Song", "Artist", "Reason"}, Rows: rows}
}

func genresTable(shares []models.GenreShare) sink.Table {
	rows := make([][]string, 0, len(shares))
	for _, s := range shares {
		rows = append(rows, []string{s.Genre, itoa(s.Percentage)})
	}
	return sink.Table{Name: "genres", Header: []string{"Genre", "Percentage"}, Rows: rows}
}

func weeklyFavoriteTable(f *models.FavoriteAnalysis) sink.Table {
	rows := [][]string{
		{"Track", f.Favorite.Track},
		{"Artist", f.Favorite.Artist},
		{"Plays", itoa(f.Favorite.Count)},
		{"Mood", f.MoodAnalysis},
		{"Taste Profile", f.TasteProfile},
	}
	if d := f.TrackDetails; d != nil {
		rows = append(rows,
			[]string{"Album", d.AlbumName},
			[]string{"Release Date", d.ReleaseDate},
			[]string{"Popularity", itoa(d.Popularity)},
		)
	}
	return sink.Table{Name: "weekly_favorite", Header: []string{"Field", "Value"}, Rows: rows}
}

func recommendationsTable(recs []models.Suggestion) sink.Table {
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []string{r.Song, r.Artist, r.Reason})
	}
	return sink.Table{Name: "favorite_recommendations", Header: []string{"Song", "Artist", "Reason"}, Rows: rows}
}

func topSongsTable(ts *models.TopSongsAnalysis) sink.Table {
	rows := make([][]string, 0, len(ts.SongAnalyses))
	for i, a := range ts.SongAnalyses {
		rows = append(rows, []string{itoa(i + 1), a.Track, a.Artist, itoa(a.PlayCount), a.WhyYouLoveIt})
	}
	return sink.Table{Name: "top_songs", Header: []string{"Rank", "Track", "Artist", "Plays", "Why You Love It"}, Rows: rows}
}

func playlistTable(p models.Playlist) sink.Table {
	rows := make([][]string, 0, len(p.Songs)+2)
	rows = append(rows, []string{"", p.Name, p.Description})
	for i, s := range p.Songs {
		rows = append(rows, []string{itoa(i + 1), s.Track, s.Artist})
	}
	return sink.Table{Name: "playlist", Header: []string{"Position", "Track", "Artist / Description"}, Rows: rows}
}

func playbackHistoryTable(events []models.PlaybackEvent) sink.Table {
	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		rows = append(rows, []string{stamp(ev.PlayedAt), ev.TrackID, ev.Name, ev.Artist, ev.Album, strconv.FormatInt(ev.DurationMS, 10)})
	}
	return sink.Table{
		Name:   "history_playback",
		Header: []string{"Played At", "Track ID", "Track", "Artist", "Album", "Duration MS"},
		Rows:   rows,
	}
}

func summaryHistoryTable(s models.LibrarySnapshot) sink.Table {
	return sink.Table{
		Name:   "history_summary",
		Header: []string{"Captured At", "Tracks", "Hours", "Avg Minutes", "Artists", "Date Range"},
		Rows: [][]string{
			{stamp(s.CapturedAt), itoa(s.TrackCount), ftoa(s.TotalHours), ftoa(s.AvgMinutes), itoa(s.UniqueArtists), s.DateRange},
		},
	}
}
