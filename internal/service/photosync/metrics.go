package photosync

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

type resourceMonitor struct {
	proc      *process.Process
	startTime time.Time
	cpuBefore float64
	done      chan struct{}
	peak      chan uint64
}

func startResourceMonitor() *resourceMonitor {
	m := &resourceMonitor{startTime: time.Now()}

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		slog.Warn("Gagal mendapatkan info proses untuk metrik", "error", err)
		return m
	}
	m.proc = p
	if times, err := p.Times(); err == nil {
		m.cpuBefore = times.User + times.System
	}

	m.done = make(chan struct{})
	m.peak = make(chan uint64, 1)
	go func() {
		m.peak <- monitorPeakRAM(p, m.done)
	}()
	return m
}

func (m *resourceMonitor) stop() {
	duration := time.Since(m.startTime)
	if m.proc == nil {
		slog.Info("Metrik Kinerja Proses Selesai", "total_duration", duration.String())
		return
	}

	close(m.done)
	peakRAM := <-m.peak

	var cpuAfter float64
	if times, err := m.proc.Times(); err == nil {
		cpuAfter = times.User + times.System
	}
	logResourceUsage(duration, m.cpuBefore, cpuAfter, peakRAM)
}

func monitorPeakRAM(p *process.Process, done <-chan struct{}) uint64 {
	var currentPeakRAM uint64
	sample := func() {
		memInfo, err := p.MemoryInfo()
		if err == nil && memInfo.RSS > currentPeakRAM {
			currentPeakRAM = memInfo.RSS
		}
	}
	sample()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return currentPeakRAM
		case <-ticker.C:
			sample()
		}
	}
}

func logResourceUsage(duration time.Duration, cpuTimeBefore, cpuTimeAfter float64, peakRAM uint64) {
	cpuTimeUsed := cpuTimeAfter - cpuTimeBefore
	cpuPercent := 0.0
	if duration.Seconds() > 0 {
		cpuPercent = (cpuTimeUsed / duration.Seconds()) * 100.0
	}

	slog.Info("Metrik Kinerja Proses Selesai",
		"total_duration", duration.String(),
		"cpu_utilization_percent", fmt.Sprintf("%.2f%%", cpuPercent),
		"peak_ram_mb", fmt.Sprintf("%.2f MB", float64(peakRAM)/1024/1024),
	)
}
