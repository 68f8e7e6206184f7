package metrics

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v4/process"
)

// Self-monitoring gauges for the daemon's own resource usage. A long-lived
// collector that leaks memory shows up here before it shows up in an OOM.
var (
	selfCPUPercent = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "groovewatch",
		Subsystem: "self",
		Name:      "cpu_percent",
		Help:      "CPU usage of the watchdog process.",
	})
	selfMemoryRSS = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "groovewatch",
		Subsystem: "self",
		Name:      "memory_rss_bytes",
		Help:      "Resident memory of the watchdog process.",
	})
	selfThreads = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "groovewatch",
		Subsystem: "self",
		Name:      "threads",
		Help:      "OS threads of the watchdog process.",
	})
)

// SelfMonitor samples the daemon's own process stats on an interval.
type SelfMonitor struct {
	proc     *process.Process
	interval time.Duration

	mu      sync.Mutex
	stopped bool
	stop    chan struct{}
	done    chan struct{}
}

// RegisterSelf registers the self-monitoring gauges. Separate from Register
// so tests can use isolated registries.
func RegisterSelf(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{selfCPUPercent, selfMemoryRSS, selfThreads} {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// NewSelfMonitor attaches to the current process.
func NewSelfMonitor(interval time.Duration) (*SelfMonitor, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &SelfMonitor{
		proc:     p,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start samples in the background until Stop or ctx cancellation.
func (m *SelfMonitor) Start(ctx context.Context) {
	go func() {
		defer close(m.done)
		t := time.NewTicker(m.interval)
		defer t.Stop()
		m.sample(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stop:
				return
			case <-t.C:
				m.sample(ctx)
			}
		}
	}()
}

func (m *SelfMonitor) sample(ctx context.Context) {
	if cpu, err := m.proc.CPUPercentWithContext(ctx); err == nil {
		selfCPUPercent.Set(cpu)
	} else {
		slog.Debug("self monitor: cpu sample failed", "error", err)
	}
	if mem, err := m.proc.MemoryInfoWithContext(ctx); err == nil && mem != nil {
		selfMemoryRSS.Set(float64(mem.RSS))
	}
	if n, err := m.proc.NumThreadsWithContext(ctx); err == nil {
		selfThreads.Set(float64(n))
	}
}

// Stop halts sampling and waits for the loop to exit.
func (m *SelfMonitor) Stop() {
	m.mu.Lock()
	if !m.stopped {
		m.stopped = true
		close(m.stop)
	}
	m.mu.Unlock()
	<-m.done
}
