package metrics

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
)

// SystemSampler periodically refreshes host and runtime resource gauges.
type SystemSampler struct {
	registry   *Registry
	interval   time.Duration
	cpuPercent float64
}

// NewSystemSampler creates a sampler feeding the given registry.
func NewSystemSampler(registry *Registry, interval time.Duration) *SystemSampler {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &SystemSampler{registry: registry, interval: interval}
}

// Run samples until the context is cancelled.
func (s *SystemSampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sample()
		}
	}
}

func (s *SystemSampler) sample() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	s.registry.System.HeapAllocMB.Set(float64(mem.HeapAlloc) / 1024 / 1024)
	s.registry.System.GoroutineNum.Set(float64(runtime.NumGoroutine()))

	percents, err := cpu.Percent(0, false)
	if err != nil || len(percents) == 0 {
		return
	}

	// Exponential moving average to smooth out spikes.
	if s.cpuPercent == 0 {
		s.cpuPercent = percents[0]
	} else {
		const alpha = 0.3
		s.cpuPercent = alpha*percents[0] + (1-alpha)*s.cpuPercent
	}
	s.registry.System.CPUPercent.Set(s.cpuPercent)
}
