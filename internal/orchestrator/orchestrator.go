// Package orchestrator runs the collection cycles: light cycles that pull
// recent plays into the playback log, and full cycles that additionally
// snapshot the library, derive the dashboard views, and publish everything
// to the sink.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/loykin/groovewatch/internal/analysis"
	"github.com/loykin/groovewatch/internal/history"
	"github.com/loykin/groovewatch/internal/metrics"
	"github.com/loykin/groovewatch/internal/models"
	"github.com/loykin/groovewatch/internal/scheduler"
	"github.com/loykin/groovewatch/internal/sink"
	"github.com/loykin/groovewatch/internal/source"
)

// Options wires the orchestrator's collaborators. Source, Sink, Playback,
// and Snapshots are required; Enricher and Analyzer are optional and the
// views that need them degrade when absent.
type Options struct {
	Source    source.Source
	Enricher  source.Enricher
	Analyzer  analysis.Analyzer
	Sink      sink.Sink
	Playback  *history.Log
	Snapshots *history.Log

	Anchors      []scheduler.Anchor
	Location     *time.Location
	LightPeriod  time.Duration
	PollInterval time.Duration
	Retention    time.Duration
	FetchLimit   int
	RecentLimit  int

	Logger *slog.Logger
	Now    func() time.Time
}

type Orchestrator struct {
	opts  Options
	state scheduler.RunState
	log   *slog.Logger
	now   func() time.Time
}

func New(o Options) (*Orchestrator, error) {
	if o.Source == nil {
		return nil, errors.New("orchestrator: source is required")
	}
	if o.Sink == nil {
		return nil, errors.New("orchestrator: sink is required")
	}
	if o.Playback == nil || o.Snapshots == nil {
		return nil, errors.New("orchestrator: history logs are required")
	}
	if len(o.Anchors) == 0 {
		return nil, errors.New("orchestrator: at least one full-cycle anchor is required")
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.LightPeriod <= 0 {
		o.LightPeriod = scheduler.DefaultLightPeriod
	}
	if o.PollInterval <= 0 {
		o.PollInterval = time.Minute
	}
	if o.Retention <= 0 {
		o.Retention = history.DefaultRetention
	}
	if o.FetchLimit <= 0 {
		o.FetchLimit = 500
	}
	if o.RecentLimit <= 0 {
		o.RecentLimit = 50
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return &Orchestrator{opts: o, log: o.Logger, now: o.Now}, nil
}

// Run is the daemon loop. The full-cycle reference starts at boot time, so
// a daemon started just before an anchor waits for the anchor to actually
// pass instead of firing immediately.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.state.LastFull = o.now()
	o.log.Info("watchdog started",
		"poll_interval", o.opts.PollInterval,
		"light_period", o.opts.LightPeriod,
		"anchors", scheduler.FormatAnchors(o.opts.Anchors),
		"timezone", o.opts.Location.String())

	t := time.NewTicker(o.opts.PollInterval)
	defer t.Stop()

	o.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			o.log.Info("watchdog stopping")
			return ctx.Err()
		case <-t.C:
			o.Tick(ctx)
		}
	}
}

// RunOnce performs a single light cycle, upgraded to a full cycle when the
// current time falls in an anchor hour.
func (o *Orchestrator) RunOnce(ctx context.Context) error {
	now := o.now()
	if scheduler.FullDueNow(now, o.opts.Anchors, o.opts.Location) {
		return o.runCycle(ctx, "full", now)
	}
	return o.runCycle(ctx, "light", now)
}

// RunTest performs one unconditional full cycle. Used with the fixture
// source to exercise the whole pipeline offline.
func (o *Orchestrator) RunTest(ctx context.Context) error {
	return o.runCycle(ctx, "full", o.now())
}

// Tick evaluates the schedule once and runs the due cycle, if any. When a
// full and a light cycle land on the same tick, the full cycle runs and
// the light cycle is absorbed into it.
func (o *Orchestrator) Tick(ctx context.Context) {
	now := o.now()
	fullDue := scheduler.FullDue(now, o.state.LastFull, o.opts.Anchors, o.opts.Location)
	lightDue := scheduler.LightDue(now, o.state.LastLight, o.opts.LightPeriod)

	switch {
	case fullDue:
		err := o.runCycle(ctx, "full", now)
		o.state.LastFull = now
		o.state.LastLight = now
		o.recordOutcome(err)
	case lightDue:
		err := o.runCycle(ctx, "light", now)
		o.state.LastLight = now
		o.recordOutcome(err)
	}
}

func (o *Orchestrator) recordOutcome(err error) {
	if err != nil {
		o.state.ConsecutiveFailures++
	} else {
		o.state.ConsecutiveFailures = 0
	}
	metrics.SetConsecutiveFailures(o.state.ConsecutiveFailures)
}

// Failures reports consecutive failed cycles since the last success.
func (o *Orchestrator) Failures() int { return o.state.ConsecutiveFailures }

func (o *Orchestrator) runCycle(ctx context.Context, kind string, now time.Time) error {
	start := time.Now()
	var err error
	if kind == "full" {
		err = o.fullCycle(ctx, now)
	} else {
		err = o.lightCycle(ctx, now)
	}
	metrics.ObserveCycleDuration(kind, time.Since(start).Seconds())
	if err != nil {
		metrics.IncCycle(kind, "error")
		o.log.Error("cycle failed", "kind", kind, "error", err)
		return err
	}
	metrics.IncCycle(kind, "ok")
	return nil
}

// lightCycle pulls recent plays, ingests them, and refreshes the
// recently-played view when anything new arrived.
func (o *Orchestrator) lightCycle(ctx context.Context, now time.Time) error {
	delta, err := o.collectPlayback(ctx)
	if err != nil {
		return err
	}
	if len(delta) == 0 {
		o.log.Debug("light cycle: no new plays")
		return nil
	}
	if err := o.publishPlayback(ctx, delta); err != nil {
		return err
	}
	o.log.Info("light cycle complete", "new_plays", len(delta))
	return nil
}

// collectPlayback fetches recent plays and appends the new ones to the
// playback log. It returns the newly appended events in play order.
func (o *Orchestrator) collectPlayback(ctx context.Context) ([]models.PlaybackEvent, error) {
	events, err := o.opts.Source.RecentlyPlayed(ctx, o.opts.RecentLimit)
	if err != nil {
		return nil, &models.AdapterError{Adapter: "source", Stage: "recently_played", Err: err}
	}
	// Sources deliver most-recent-first; the log is chronological.
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].PlayedAt.Before(events[j].PlayedAt)
	})
	recs := make([]history.Record, len(events))
	for i, ev := range events {
		recs[i] = ev
	}
	res, delta, err := o.opts.Playback.Ingest(ctx, recs)
	if err != nil {
		return nil, fmt.Errorf("ingest playback: %w", err)
	}
	metrics.AddIngest("history_playback", res.Appended, res.Skipped, res.Purged)
	if res.Purged > 0 {
		o.log.Debug("playback retention", "purged", res.Purged)
	}
	out := make([]models.PlaybackEvent, 0, len(delta))
	for _, r := range delta {
		out = append(out, r.(models.PlaybackEvent))
	}
	return out, nil
}

// publishPlayback appends new plays to the history table and rewrites the
// recently-played view from the retained log. The view rewrite happens even
// when the delta is empty.
func (o *Orchestrator) publishPlayback(ctx context.Context, delta []models.PlaybackEvent) error {
	if len(delta) > 0 {
		if err := o.opts.Sink.AppendHistory(ctx, playbackHistoryTable(delta)); err != nil {
			return &models.AdapterError{Adapter: "sink", Stage: "append:history_playback", Err: err}
		}
	}
	retained, err := history.PlaybackEvents(ctx, o.opts.Playback)
	if err != nil {
		return fmt.Errorf("read playback log: %w", err)
	}
	if err := o.opts.Sink.WriteTable(ctx, recentlyPlayedTable(retained)); err != nil {
		return &models.AdapterError{Adapter: "sink", Stage: "write:recently_played", Err: err}
	}
	return nil
}

// fullCycle does everything the light cycle does, then snapshots the
// library, computes the local views, derives the analyzer views, and
// publishes all tables. A failing analyzer view is logged and skipped;
// the local views always land.
func (o *Orchestrator) fullCycle(ctx context.Context, now time.Time) error {
	delta, err := o.collectPlayback(ctx)
	if err != nil {
		return err
	}
	// A full cycle rewrites every table, so the recently-played view is
	// refreshed even when the fetch was all duplicates.
	if err := o.publishPlayback(ctx, delta); err != nil {
		return err
	}

	lib, err := o.opts.Source.Library(ctx, o.opts.FetchLimit)
	if err != nil {
		return &models.AdapterError{Adapter: "source", Stage: "library", Err: err}
	}
	processed := analysis.Process(lib, now)
	o.log.Info("library processed", "summary", analysis.Describe(processed.Summary))

	res, snapDelta, err := o.opts.Snapshots.Ingest(ctx, []history.Record{processed.Summary})
	if err != nil {
		return fmt.Errorf("ingest snapshot: %w", err)
	}
	metrics.AddIngest("history_summary", res.Appended, res.Skipped, res.Purged)
	if len(snapDelta) > 0 {
		if err := o.opts.Sink.AppendHistory(ctx, summaryHistoryTable(processed.Summary)); err != nil {
			return &models.AdapterError{Adapter: "sink", Stage: "append:history_summary", Err: err}
		}
	}

	for _, t := range localTables(processed) {
		if err := o.opts.Sink.WriteTable(ctx, t); err != nil {
			return &models.AdapterError{Adapter: "sink", Stage: "write:" + t.Name, Err: err}
		}
	}

	o.analyzerViews(ctx, now, processed)
	o.log.Info("full cycle complete", "new_plays", len(delta), "tracks", processed.Summary.TrackCount)
	return nil
}

// analyzerViews derives the analyzer-backed tables. Each view fails
// independently; an outage of the analyzer degrades the dashboard instead
// of failing the cycle.
func (o *Orchestrator) analyzerViews(ctx context.Context, now time.Time, processed models.Processed) {
	if o.opts.Analyzer == nil {
		o.log.Debug("no analyzer configured, skipping derived views")
		return
	}

	retained, err := history.PlaybackEvents(ctx, o.opts.Playback)
	if err != nil {
		o.log.Warn("derived views skipped", "error", err)
		return
	}

	if suggestions, err := o.opts.Analyzer.Suggestions(ctx, retained); err != nil {
		o.viewFailed("suggestions", err)
	} else if err := o.opts.Sink.WriteTable(ctx, suggestionsTable(suggestions)); err != nil {
		o.viewFailed("suggestions", err)
	}

	o.genreView(ctx, retained)

	counts, err := history.PlayCounts(ctx, o.opts.Playback, now.Add(-o.opts.Retention))
	if err != nil {
		o.log.Warn("play counts unavailable", "error", err)
		return
	}

	o.favoriteView(ctx, retained, counts)
	o.topSongsView(ctx, counts)

	if verdict, err := o.opts.Analyzer.Validate(ctx, processed.Summary, processed.TopArtists); err != nil {
		o.viewFailed("validation", err)
	} else if verdict != "OK" {
		o.log.Warn("library validation flagged data", "verdict", verdict)
	} else {
		o.log.Debug("library validation passed")
	}
}

func (o *Orchestrator) viewFailed(view string, err error) {
	o.log.Warn("derived view failed", "view", view, "error", err)
}

// genreView builds the genre breakdown: source genres where available,
// analyzer classification for the rest.
func (o *Orchestrator) genreView(ctx context.Context, retained []models.PlaybackEvent) {
	known := map[string][]string{}
	if o.opts.Enricher != nil {
		ids := make([]string, 0, len(retained))
		for _, ev := range retained {
			ids = append(ids, ev.TrackID)
		}
		var err error
		known, err = o.opts.Enricher.GenresForTracks(ctx, ids)
		if err != nil {
			o.log.Warn("genre lookup failed, classifying from scratch", "error", err)
			known = map[string][]string{}
		}
	}

	counts := analysis.GenreCounts(retained, known)
	unknown := analysis.UnknownArtists(retained, known)
	if len(unknown) > 0 {
		classified, err := o.opts.Analyzer.ClassifyGenres(ctx, unknown)
		if err != nil {
			o.viewFailed("genres", err)
		} else {
			for _, a := range unknown {
				if g, ok := classified[a.Artist]; ok && g != "" {
					counts[g] += a.PlayCount
				}
			}
		}
	}

	shares := analysis.GenreShares(counts)
	if err := o.opts.Sink.WriteTable(ctx, genresTable(shares)); err != nil {
		o.viewFailed("genres", err)
	}
}

func (o *Orchestrator) favoriteView(ctx context.Context, retained []models.PlaybackEvent, counts []models.PlayCount) {
	if len(counts) == 0 {
		return
	}
	var details *models.TrackDetails
	if o.opts.Enricher != nil {
		if id := trackIDFor(retained, counts[0]); id != "" {
			var err error
			details, err = o.opts.Enricher.TrackDetails(ctx, id)
			if err != nil {
				o.log.Warn("track details unavailable", "track", counts[0].Track, "error", err)
			}
		}
	}
	fav, err := o.opts.Analyzer.WeeklyFavorite(ctx, counts, details)
	if err != nil {
		o.viewFailed("weekly_favorite", err)
		return
	}
	if fav == nil {
		return
	}
	if err := o.opts.Sink.WriteTable(ctx, weeklyFavoriteTable(fav)); err != nil {
		o.viewFailed("weekly_favorite", err)
	}
	if err := o.opts.Sink.WriteTable(ctx, recommendationsTable(fav.Recommendations)); err != nil {
		o.viewFailed("favorite_recommendations", err)
	}
}

func (o *Orchestrator) topSongsView(ctx context.Context, counts []models.PlayCount) {
	ts, err := o.opts.Analyzer.TopSongs(ctx, counts)
	if err != nil {
		o.viewFailed("top_songs", err)
		return
	}
	if ts == nil {
		return
	}
	if err := o.opts.Sink.WriteTable(ctx, topSongsTable(ts)); err != nil {
		o.viewFailed("top_songs", err)
	}
	if err := o.opts.Sink.WriteTable(ctx, playlistTable(ts.Playlist)); err != nil {
		o.viewFailed("playlist", err)
	}
}

// trackIDFor finds the ID of the counted track by matching name and artist
// against the retained events, preferring the most recent occurrence.
func trackIDFor(retained []models.PlaybackEvent, pc models.PlayCount) string {
	id := ""
	var latest time.Time
	for _, ev := range retained {
		if ev.Name == pc.Track && ev.Artist == pc.Artist && ev.PlayedAt.After(latest) {
			id = ev.TrackID
			latest = ev.PlayedAt
		}
	}
	return id
}
