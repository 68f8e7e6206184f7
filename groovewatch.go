// Package groovewatch assembles the listening watchdog from its internal
// parts. The facade is what the CLI and embedders use: load a config,
// build a Watchdog, run it.
package groovewatch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/groovewatch/internal/analysis"
	"github.com/loykin/groovewatch/internal/config"
	"github.com/loykin/groovewatch/internal/history"
	"github.com/loykin/groovewatch/internal/metrics"
	"github.com/loykin/groovewatch/internal/orchestrator"
	"github.com/loykin/groovewatch/internal/sink"
	sinkfactory "github.com/loykin/groovewatch/internal/sink/factory"
	"github.com/loykin/groovewatch/internal/source"
)

// Re-export the types external consumers touch. These are aliases so
// conversions are zero-cost.

type Config = config.Config

type Source = source.Source

type Analyzer = analysis.Analyzer

type Sink = sink.Sink

// LoadConfig reads the TOML config at path (empty means defaults) and the
// environment secrets.
func LoadConfig(path string) (*Config, error) { return config.Load(path) }

// MetricsHandler serves the Prometheus scrape endpoint.
func MetricsHandler() http.Handler { return metrics.Handler() }

// Watchdog is the assembled collector.
type Watchdog struct {
	inner *orchestrator.Orchestrator
	db    *history.DB
	sink  sink.Sink
}

// New wires a Watchdog from config. offline forces the fixture source and
// the deterministic analyzer regardless of credentials; it is what --test
// and USE_SAMPLE_DATA use.
func New(cfg *Config, offline bool) (*Watchdog, error) {
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return nil, err
	}

	var (
		src      source.Source
		enricher source.Enricher
		analyzer analysis.Analyzer
	)
	if offline || cfg.UseSampleData {
		f := source.NewFixture(cfg.FixturePath)
		src, enricher = f, f
		analyzer = analysis.NewStatic()
		slog.Info("using fixture source", "path", cfg.FixturePath)
	} else {
		if !cfg.HasSpotify() {
			return nil, fmt.Errorf("groovewatch: Spotify credentials missing; set SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET, SPOTIFY_REFRESH_TOKEN or USE_SAMPLE_DATA=true")
		}
		sp, err := source.NewSpotify(cfg.Spotify)
		if err != nil {
			return nil, err
		}
		src, enricher = sp, sp
		if cfg.OpenAIKey != "" {
			analyzer, err = analysis.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel)
			if err != nil {
				return nil, err
			}
		} else {
			slog.Warn("OPENAI_API_KEY not set, derived views disabled")
		}
	}

	sinkDSN := cfg.SinkDSN
	if offline && strings.Contains(sinkDSN, "://") && !strings.HasPrefix(sinkDSN, "csv://") {
		// Test runs never touch a remote destination.
		sinkDSN = "csv://output"
		slog.Info("remote sink overridden for offline run", "sink", sinkDSN)
	}

	db, err := history.Open(cfg.HistoryDSN)
	if err != nil {
		return nil, fmt.Errorf("groovewatch: open history db: %w", err)
	}
	playback, err := history.NewLog(db, "history_playback", cfg.Retention)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	snapshots, err := history.NewLog(db, "history_summary", cfg.Retention)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	snk, err := sinkfactory.NewSinkFromDSN(sinkDSN)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("groovewatch: open sink: %w", err)
	}

	o, err := orchestrator.New(orchestrator.Options{
		Source:       src,
		Enricher:     enricher,
		Analyzer:     analyzer,
		Sink:         snk,
		Playback:     playback,
		Snapshots:    snapshots,
		Anchors:      cfg.Anchors,
		Location:     cfg.Location,
		LightPeriod:  cfg.LightPeriod,
		PollInterval: cfg.PollInterval,
		Retention:    cfg.Retention,
		FetchLimit:   cfg.FetchLimit,
		RecentLimit:  cfg.RecentLimit,
	})
	if err != nil {
		_ = snk.Close()
		_ = db.Close()
		return nil, err
	}
	return &Watchdog{inner: o, db: db, sink: snk}, nil
}

// Run starts the daemon loop and blocks until ctx is cancelled.
func (w *Watchdog) Run(ctx context.Context) error { return w.inner.Run(ctx) }

// RunOnce performs a single scheduled collection.
func (w *Watchdog) RunOnce(ctx context.Context) error { return w.inner.RunOnce(ctx) }

// RunTest performs one unconditional full cycle.
func (w *Watchdog) RunTest(ctx context.Context) error { return w.inner.RunTest(ctx) }

// Close releases the history database and the sink.
func (w *Watchdog) Close() error {
	serr := w.sink.Close()
	derr := w.db.Close()
	if serr != nil {
		return serr
	}
	return derr
}
