// Package config loads the watchdog's TOML configuration and the secrets
// that only ever arrive through the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/loykin/groovewatch/internal/scheduler"
	"github.com/loykin/groovewatch/internal/source"
)

// FileConfig represents the top-level TOML structure.
type FileConfig struct {
	PollInterval  time.Duration `toml:"poll_interval" mapstructure:"poll_interval"`
	LightPeriod   time.Duration `toml:"light_period" mapstructure:"light_period"`
	FullAnchors   string        `toml:"full_anchors" mapstructure:"full_anchors"`
	Timezone      string        `toml:"timezone" mapstructure:"timezone"`
	Retention     time.Duration `toml:"retention" mapstructure:"retention"`
	FetchLimit    int           `toml:"fetch_limit" mapstructure:"fetch_limit"`
	RecentLimit   int           `toml:"recent_limit" mapstructure:"recent_limit"`
	HistoryDSN    string        `toml:"history_dsn" mapstructure:"history_dsn"`
	SinkDSN       string        `toml:"sink_dsn" mapstructure:"sink_dsn"`
	FixturePath   string        `toml:"fixture_path" mapstructure:"fixture_path"`
	MetricsListen string        `toml:"metrics_listen" mapstructure:"metrics_listen"`
	Log           *LogConfig    `toml:"log" mapstructure:"log"`
}

// LogConfig mirrors the file-rotation settings handed to the logger.
type LogConfig struct {
	Dir        string `toml:"dir" mapstructure:"dir"`
	File       string `toml:"file" mapstructure:"file"`
	Level      string `toml:"level" mapstructure:"level"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

// Config is the resolved runtime configuration: file values with defaults
// applied, anchors parsed, timezone loaded, and secrets pulled from the
// environment.
type Config struct {
	PollInterval  time.Duration
	LightPeriod   time.Duration
	Anchors       []scheduler.Anchor
	Location      *time.Location
	Retention     time.Duration
	FetchLimit    int
	RecentLimit   int
	HistoryDSN    string
	SinkDSN       string
	FixturePath   string
	MetricsListen string
	Log           *LogConfig

	UseSampleData bool
	Spotify       source.Credentials
	OpenAIKey     string
	OpenAIModel   string
}

const (
	defaultPollInterval = time.Minute
	defaultAnchors      = "06:00,18:00"
	defaultFetchLimit   = 500
	defaultRecentLimit  = 50
	defaultFixturePath  = "sample_data.json"
	defaultSinkDSN      = "csv://output"
)

// Load reads the TOML file at path (optional; empty path means defaults
// only), applies defaults, and resolves environment secrets. Anchor and
// timezone errors surface here so a bad schedule never reaches the run loop.
func Load(path string) (*Config, error) {
	var fc FileConfig
	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := v.Unmarshal(&fc); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if fc.PollInterval <= 0 {
		fc.PollInterval = defaultPollInterval
	}
	if fc.LightPeriod <= 0 {
		fc.LightPeriod = scheduler.DefaultLightPeriod
	}
	if fc.FullAnchors == "" {
		fc.FullAnchors = defaultAnchors
	}
	if fc.Retention <= 0 {
		fc.Retention = 7 * 24 * time.Hour
	}
	if fc.FetchLimit <= 0 {
		fc.FetchLimit = defaultFetchLimit
	}
	if fc.RecentLimit <= 0 {
		fc.RecentLimit = defaultRecentLimit
	}
	if fc.HistoryDSN == "" {
		fc.HistoryDSN = "listening_history.db"
	}
	if fc.SinkDSN == "" {
		fc.SinkDSN = defaultSinkDSN
	}
	if fc.FixturePath == "" {
		fc.FixturePath = defaultFixturePath
	}

	anchors, err := scheduler.ParseAnchors(fc.FullAnchors)
	if err != nil {
		return nil, fmt.Errorf("config: full_anchors: %w", err)
	}

	loc := time.Local
	if fc.Timezone != "" {
		loc, err = time.LoadLocation(fc.Timezone)
		if err != nil {
			return nil, fmt.Errorf("config: timezone %q: %w", fc.Timezone, err)
		}
	}

	cfg := &Config{
		PollInterval:  fc.PollInterval,
		LightPeriod:   fc.LightPeriod,
		Anchors:       anchors,
		Location:      loc,
		Retention:     fc.Retention,
		FetchLimit:    fc.FetchLimit,
		RecentLimit:   fc.RecentLimit,
		HistoryDSN:    fc.HistoryDSN,
		SinkDSN:       fc.SinkDSN,
		FixturePath:   fc.FixturePath,
		MetricsListen: fc.MetricsListen,
		Log:           fc.Log,
	}
	cfg.loadEnv()
	return cfg, nil
}

// loadEnv pulls secrets and the sample-data switch from the environment.
// Secrets never live in the TOML file.
func (c *Config) loadEnv() {
	c.Spotify = source.Credentials{
		ClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
		ClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
		RefreshToken: os.Getenv("SPOTIFY_REFRESH_TOKEN"),
	}
	c.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	c.OpenAIModel = os.Getenv("OPENAI_MODEL")
	c.UseSampleData = isTruthy(os.Getenv("USE_SAMPLE_DATA"))
}

func isTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// HasSpotify reports whether live source credentials are fully present.
func (c *Config) HasSpotify() bool {
	return c.Spotify.ClientID != "" && c.Spotify.ClientSecret != "" && c.Spotify.RefreshToken != ""
}
