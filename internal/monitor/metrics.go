// internal/monitor/metrics.go

package monitor

import (
	"sync"
	"time"
)

// MetricsCollector aggregates pass statistics for status reporting.
type MetricsCollector struct {
	mu sync.RWMutex

	passes          int64
	changesDetected int64
	errors          int64

	// last 1000 pass durations
	passTimes []time.Duration
	startTime time.Time

	filesMonitored int
	lastChange     time.Time
	lastPass       time.Time
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		startTime: time.Now(),
		passTimes: make([]time.Duration, 0, 1000),
	}
}

// RecordPass records one finished reconciliation pass.
func (mc *MetricsCollector) RecordPass(duration time.Duration, changes int, filesMonitored int) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := time.Now()
	mc.passes++
	mc.lastPass = now
	mc.filesMonitored = filesMonitored
	if changes > 0 {
		mc.changesDetected += int64(changes)
		mc.lastChange = now
	}

	if len(mc.passTimes) >= 1000 {
		mc.passTimes = mc.passTimes[1:]
	}
	mc.passTimes = append(mc.passTimes, duration)
}

// RecordError records a failed pass or log write.
func (mc *MetricsCollector) RecordError() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.errors++
}

// GetSnapshot returns a snapshot of current metrics
func (mc *MetricsCollector) GetSnapshot() MetricsSnapshot {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	var avg time.Duration
	if len(mc.passTimes) > 0 {
		var total time.Duration
		for _, d := range mc.passTimes {
			total += d
		}
		avg = total / time.Duration(len(mc.passTimes))
	}

	return MetricsSnapshot{
		Passes:          mc.passes,
		ChangesDetected: mc.changesDetected,
		Errors:          mc.errors,
		FilesMonitored:  mc.filesMonitored,
		LastChange:      mc.lastChange,
		LastPass:        mc.lastPass,
		Uptime:          time.Since(mc.startTime),
		AveragePassTime: avg,
	}
}

// MetricsSnapshot represents a point-in-time snapshot of metrics
type MetricsSnapshot struct {
	Passes          int64         `json:"passes"`
	ChangesDetected int64         `json:"changes_detected"`
	Errors          int64         `json:"errors"`
	FilesMonitored  int           `json:"files_monitored"`
	LastChange      time.Time     `json:"last_change"`
	LastPass        time.Time     `json:"last_pass"`
	Uptime          time.Duration `json:"uptime"`
	AveragePassTime time.Duration `json:"average_pass_time"`
}
