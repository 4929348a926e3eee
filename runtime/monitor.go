package runtime

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"chat-relay/contract"
)

// Monitor periodically logs the relay's own process stats together with the
// number of registered sessions. Observation only; it never touches the
// message path.
type Monitor struct {
	log      *slog.Logger
	registry contract.IRegistry
	interval time.Duration
}

func NewMonitor(log *slog.Logger, registry contract.IRegistry, interval time.Duration) *Monitor {
	return &Monitor{log: log, registry: registry, interval: interval}
}

func (m *Monitor) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Debug("Context done, stopping monitor")
			return nil
		case <-ticker.C:
			cpu, err := p.CPUPercent()
			if err != nil {
				m.log.Error("Error while finding process cpu usage", "err", err)
				continue
			}
			mem, err := p.MemoryInfo()
			if err != nil {
				m.log.Error("Error while finding process memory usage", "err", err)
				continue
			}
			m.log.Info("relay health",
				"sessions", m.registry.Len(),
				"cpu_percent", cpu,
				"rss_bytes", mem.RSS)
		}
	}
}
