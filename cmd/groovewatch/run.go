package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/groovewatch"
	"github.com/loykin/groovewatch/internal/logger"
	"github.com/loykin/groovewatch/internal/metrics"
)

// setup loads the dotenv file, the config, and the logger. Shared by all
// subcommands. The returned closer flushes the rotated log file; it is nil
// when logging goes to stderr only.
func setup(gf *GlobalFlags) (*groovewatch.Config, io.Closer, error) {
	if gf.EnvFile != "" {
		if err := godotenv.Load(gf.EnvFile); err != nil && !os.IsNotExist(err) {
			return nil, nil, err
		}
	}
	cfg, err := groovewatch.LoadConfig(gf.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	lc := logger.Config{}
	if cfg.Log != nil {
		lc = logger.Config{
			Dir:        cfg.Log.Dir,
			File:       cfg.Log.File,
			Level:      cfg.Log.Level,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
		}
	}
	_, closer := logger.Setup(lc)
	return cfg, closer, nil
}

func closeLog(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

func runDaemon(gf *GlobalFlags) error {
	cfg, logCloser, err := setup(gf)
	if err != nil {
		return err
	}
	defer closeLog(logCloser)
	w, err := groovewatch.New(cfg, false)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsListen != "" {
		go serveMetrics(ctx, cfg.MetricsListen)
	}
	if err := metrics.RegisterSelf(prometheus.DefaultRegisterer); err == nil {
		if mon, merr := metrics.NewSelfMonitor(30 * time.Second); merr == nil {
			mon.Start(ctx)
			defer mon.Stop()
		}
	}

	err = w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", groovewatch.MetricsHandler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	slog.Info("metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("metrics server failed", "error", err)
	}
}

func runOnce(gf *GlobalFlags) error {
	cfg, logCloser, err := setup(gf)
	if err != nil {
		return err
	}
	defer closeLog(logCloser)
	w, err := groovewatch.New(cfg, false)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()
	return w.RunOnce(context.Background())
}

func runTest(gf *GlobalFlags) error {
	cfg, logCloser, err := setup(gf)
	if err != nil {
		return err
	}
	defer closeLog(logCloser)
	w, err := groovewatch.New(cfg, true)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()
	if err := w.RunTest(context.Background()); err != nil {
		return err
	}
	slog.Info("test cycle complete", "sink", cfg.SinkDSN)
	return nil
}
