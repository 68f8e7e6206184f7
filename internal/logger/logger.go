// Package logger configures the process-wide slog output: colored text on
// stderr, plus an optional rotated file.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

const (
	DefaultMaxSizeMB  = 10 // MB
	DefaultMaxBackups = 3  // number of backup files
	DefaultMaxAgeDays = 7  // days
)

// Config describes the logging destination. If Dir is set, output also
// goes to Dir/File (default groovewatch.log) with lumberjack rotation.
type Config struct {
	Dir        string
	File       string
	Level      string // debug, info, warn, error
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup builds the logger and installs it as the slog default. The file
// writer is returned so the caller can close it on shutdown; it is nil
// when no directory is configured.
func Setup(c Config) (*slog.Logger, io.Closer) {
	level := ParseLevel(c.Level)
	opts := &slog.HandlerOptions{Level: level}

	var fileW *lj.Logger
	w := io.Writer(os.Stderr)
	if c.Dir != "" {
		name := c.File
		if name == "" {
			name = "groovewatch.log"
		}
		fileW = &lj.Logger{
			Filename:   filepath.Join(c.Dir, name),
			MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
			MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
			MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
			Compress:   c.Compress,
		}
		w = io.MultiWriter(os.Stderr, fileW)
	}

	l := slog.New(NewColorTextHandler(w, opts, true))
	slog.SetDefault(l)
	if fileW != nil {
		return l, fileW
	}
	return l, nil
}

func valOr(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
