package analysis

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/loykin/groovewatch/internal/models"
)

const (
	topArtistCount   = 15
	recentTrackCount = 40
	maxGenreSlices   = 8
)

// Process computes the summary views from the library without any external
// call. This is the deterministic core of a full cycle.
func Process(lib models.LibraryData, capturedAt time.Time) models.Processed {
	var totalMS int64
	artists := make(map[string]int)
	months := make(map[string]int)
	var minDate, maxDate string

	for _, t := range lib.Tracks {
		totalMS += t.DurationMS
		artists[t.Artist]++
		if !t.AddedAt.IsZero() {
			d := t.AddedAt.UTC().Format("2006-01-02")
			if minDate == "" || d < minDate {
				minDate = d
			}
			if d > maxDate {
				maxDate = d
			}
			months[t.AddedAt.UTC().Format("2006-01")]++
		}
	}

	dateRange := "N/A to N/A"
	if minDate != "" {
		dateRange = minDate + " to " + maxDate
	}
	snap := models.LibrarySnapshot{
		CapturedAt:      capturedAt,
		TrackCount:      len(lib.Tracks),
		TotalDurationMS: totalMS,
		UniqueArtists:   len(artists),
		TotalHours:      round1(float64(totalMS) / 3600000.0),
		DateRange:       dateRange,
	}
	if len(lib.Tracks) > 0 {
		snap.AvgMinutes = round2(float64(totalMS) / float64(len(lib.Tracks)) / 60000.0)
	}

	top := make([]models.ArtistCount, 0, len(artists))
	for a, n := range artists {
		top = append(top, models.ArtistCount{Artist: a, Count: n})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Artist < top[j].Artist
	})
	if len(top) > topArtistCount {
		top = top[:topArtistCount]
	}

	monthly := make([]models.MonthCount, 0, len(months))
	for m, n := range months {
		monthly = append(monthly, models.MonthCount{Month: m, Count: n})
	}
	sort.Slice(monthly, func(i, j int) bool { return monthly[i].Month < monthly[j].Month })

	dated := make([]models.SavedTrack, 0, len(lib.Tracks))
	for _, t := range lib.Tracks {
		if !t.AddedAt.IsZero() {
			dated = append(dated, t)
		}
	}
	sort.SliceStable(dated, func(i, j int) bool { return dated[i].AddedAt.After(dated[j].AddedAt) })
	if len(dated) > recentTrackCount {
		dated = dated[:recentTrackCount]
	}
	recent := make([]models.RecentTrack, 0, len(dated))
	for _, t := range dated {
		recent = append(recent, models.RecentTrack{
			Name:   t.Name,
			Artist: t.Artist,
			Added:  t.AddedAt.UTC().Format("2006-01-02"),
		})
	}

	return models.Processed{
		Summary:          snap,
		TopArtists:       top,
		MonthlyAdditions: monthly,
		RecentTracks:     recent,
	}
}

// GenreShares folds per-genre play counts into percentage slices summing to
// exactly 100, keeping the top slices and grouping the tail into "Other".
func GenreShares(counts map[string]int) []models.GenreShare {
	total := 0
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return nil
	}
	shares := make([]models.GenreShare, 0, len(counts))
	for g, n := range counts {
		pct := int(math.Round(float64(n) * 100 / float64(total)))
		if pct > 0 {
			shares = append(shares, models.GenreShare{Genre: titleCase(g), Percentage: pct})
		}
	}
	if len(shares) == 0 {
		return nil
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Percentage != shares[j].Percentage {
			return shares[i].Percentage > shares[j].Percentage
		}
		return shares[i].Genre < shares[j].Genre
	})
	if len(shares) > maxGenreSlices {
		rest := 0
		for _, s := range shares[maxGenreSlices-1:] {
			rest += s.Percentage
		}
		shares = append(shares[:maxGenreSlices-1], models.GenreShare{Genre: "Other", Percentage: rest})
	}
	// Rounding drift lands on the largest slice.
	sum := 0
	for _, s := range shares {
		sum += s.Percentage
	}
	shares[0].Percentage += 100 - sum
	return shares
}

// UnknownArtists groups recently played tracks whose IDs have no genre
// data, for handoff to the Analyzer.
func UnknownArtists(recent []models.PlaybackEvent, known map[string][]string) []ArtistSample {
	byArtist := make(map[string]*ArtistSample)
	var order []string
	for _, ev := range recent {
		if len(known[ev.TrackID]) > 0 {
			continue
		}
		s, ok := byArtist[ev.Artist]
		if !ok {
			s = &ArtistSample{Artist: ev.Artist}
			byArtist[ev.Artist] = s
			order = append(order, ev.Artist)
		}
		s.PlayCount++
		if len(s.Tracks) < 3 {
			s.Tracks = append(s.Tracks, ev.Name)
		}
	}
	out := make([]ArtistSample, 0, len(order))
	for _, a := range order {
		out = append(out, *byArtist[a])
	}
	return out
}

// GenreCounts tallies plays per genre from the source's genre data.
func GenreCounts(recent []models.PlaybackEvent, known map[string][]string) map[string]int {
	counts := make(map[string]int)
	for _, ev := range recent {
		for _, g := range known[ev.TrackID] {
			counts[g]++
		}
	}
	return counts
}

func round1(f float64) float64 { return math.Round(f*10) / 10 }
func round2(f float64) float64 { return math.Round(f*100) / 100 }

func titleCase(s string) string {
	out := []rune(s)
	up := true
	for i, r := range out {
		switch {
		case up && r >= 'a' && r <= 'z':
			out[i] = r - 32
			up = false
		case r == ' ' || r == '-':
			up = true
		default:
			up = false
		}
	}
	return string(out)
}

// Describe renders a snapshot as the one-line summary used in logs.
func Describe(s models.LibrarySnapshot) string {
	return fmt.Sprintf("%d tracks, %.1f hours, %d artists, %s",
		s.TrackCount, s.TotalHours, s.UniqueArtists, s.DateRange)
}
