package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// OnlineCounter decouples telemetry from the registry type.
type OnlineCounter interface {
	OnlineCount() int
}

// TelemetryWorker periodically logs self-process resource usage and the
// number of live connections. Purely observational.
type TelemetryWorker struct {
	log      *slog.Logger
	counter  OnlineCounter
	interval time.Duration
}

func NewTelemetryWorker(log *slog.Logger, counter OnlineCounter, interval time.Duration) *TelemetryWorker {
	return &TelemetryWorker{log: log, counter: counter, interval: interval}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping telemetry worker")
			return nil
		case <-ticker.C:
			cpu, err := p.CPUPercent()
			if err != nil {
				w.log.Debug("Error while reading process cpu usage", "err", err)
				continue
			}
			mem, err := p.MemoryInfo()
			if err != nil {
				w.log.Debug("Error while reading process memory", "err", err)
				continue
			}
			w.log.Info("Gateway telemetry",
				"online_users", w.counter.OnlineCount(),
				"cpu_percent", cpu,
				"rss_bytes", mem.RSS)
		}
	}
}
