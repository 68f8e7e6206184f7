package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegisterIdempotentAndHelpersWork(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register: %v", err)
	}

	IncCycle("full", "ok")
	IncCycle("light", "error")
	AddIngest("history_playback", 3, 1, 2)
	SetConsecutiveFailures(2)
	ObserveCycleDuration("full", 1.5)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	wantNames := map[string]bool{
		"groovewatch_watchdog_cycles_total":           false,
		"groovewatch_history_records_appended_total":  false,
		"groovewatch_history_records_skipped_total":   false,
		"groovewatch_history_records_purged_total":    false,
		"groovewatch_watchdog_consecutive_failures":   false,
		"groovewatch_watchdog_cycle_duration_seconds": false,
	}
	for _, mf := range mfs {
		if _, ok := wantNames[mf.GetName()]; ok {
			wantNames[mf.GetName()] = true
			if len(mf.GetMetric()) == 0 {
				t.Fatalf("metric %s has no samples", mf.GetName())
			}
		}
	}
	for n, found := range wantNames {
		if !found {
			t.Errorf("expected to find metric %s", n)
		}
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != 200 {
		t.Fatalf("scrape status: %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "# HELP") {
		t.Error("scrape output is not in the text exposition format")
	}
}

func TestSelfMonitorSamples(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := RegisterSelf(reg); err != nil {
		t.Fatalf("register self: %v", err)
	}
	m, err := NewSelfMonitor(10 * time.Millisecond)
	if err != nil {
		t.Fatalf("new self monitor: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	m.Stop()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var sawRSS bool
	for _, mf := range mfs {
		if mf.GetName() == "groovewatch_self_memory_rss_bytes" {
			sawRSS = true
			if len(mf.GetMetric()) == 0 || mf.GetMetric()[0].GetGauge().GetValue() <= 0 {
				t.Error("rss gauge not populated")
			}
		}
	}
	if !sawRSS {
		t.Error("rss gauge not registered")
	}
}
