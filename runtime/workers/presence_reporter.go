package workers

import (
	"chat-presence/sink"
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// ConnectionCounter is the part of the registry the reporter reads.
type ConnectionCounter interface {
	Len() int
}

// PresenceStats is one periodic snapshot of gateway load.
type PresenceStats struct {
	Connections int
	Enqueued    uint64
	Dropped     uint64
	Discarded   uint64
	RSSBytes    uint64
	CPUPercent  float64
}

// PresenceReporter logs connection count, delivery outcomes and process
// resources at a fixed interval.
type PresenceReporter struct {
	log      *slog.Logger
	counter  ConnectionCounter
	stats    *sink.DeliveryStats
	interval time.Duration
}

func NewPresenceReporter(log *slog.Logger, counter ConnectionCounter, stats *sink.DeliveryStats, interval time.Duration) *PresenceReporter {
	return &PresenceReporter{log: log, counter: counter, stats: stats, interval: interval}
}

func (w *PresenceReporter) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return fmt.Errorf("unable to inspect own process: %w", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	startTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			stats := w.Collect(p)
			w.log.Info("📊 Presence",
				"uptime", time.Since(startTime).Round(time.Second).String(),
				"connections", stats.Connections,
				"enqueued", stats.Enqueued,
				"dropped", stats.Dropped,
				"discarded", stats.Discarded,
				"ram_mb", stats.RSSBytes/1024/1024,
				"cpu_percent", fmt.Sprintf("%.2f", stats.CPUPercent),
			)
		}
	}
}

// Collect reads the current snapshot. Process metrics stay at zero when
// the platform does not expose them.
func (w *PresenceReporter) Collect(p *process.Process) PresenceStats {
	stats := PresenceStats{
		Connections: w.counter.Len(),
		Enqueued:    w.stats.Enqueued.Load(),
		Dropped:     w.stats.Dropped.Load(),
		Discarded:   w.stats.Discarded.Load(),
	}
	if p == nil {
		return stats
	}
	if memInfo, err := p.MemoryInfo(); err == nil {
		stats.RSSBytes = memInfo.RSS
	} else {
		w.log.Debug("Failed to collect memory usage", "error", err)
	}
	if cpu, err := p.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	} else {
		w.log.Debug("Failed to collect cpu usage", "error", err)
	}
	return stats
}
