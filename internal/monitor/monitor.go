// internal/monitor/monitor.go

package monitor

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Monitor periodically reconciles a directory tree against its registry and
// appends the differences to the change log.
type Monitor struct {
	registry       *Registry
	changeLog      *ChangeLog
	metrics        *MetricsCollector
	batchProcessor *BatchProcessor
	pollInterval   time.Duration
	watch          bool
	logRel         string

	// passMu orders passes, status reports and commits.
	passMu sync.Mutex

	pubMu          sync.RWMutex
	eventPublisher func(ChangeEvent)

	nudge     chan struct{}
	lifeMu    sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	running   bool
	startTime time.Time
}

// StatusReport is what the status command shows the operator.
type StatusReport struct {
	Events []ChangeEvent `json:"events"`
}

// Lines renders the report, one event per line.
func (s StatusReport) Lines() []string {
	lines := make([]string, len(s.Events))
	for i, ev := range s.Events {
		lines[i] = ev.String()
	}
	return lines
}

// NewMonitor validates cfg and creates a monitor. Nothing runs until Start.
func NewMonitor(cfg Config) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	root, err := filepath.Abs(cfg.RootPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	logPath, err := filepath.Abs(cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("invalid log file: %w", err)
	}

	m := &Monitor{
		registry:     NewRegistry(root),
		changeLog:    NewChangeLog(logPath),
		metrics:      NewMetricsCollector(),
		pollInterval: cfg.PollInterval(),
		watch:        cfg.Watch,
		nudge:        make(chan struct{}, 1),
	}

	// A log inside the watched tree would report itself on every pass.
	if rel, err := filepath.Rel(root, logPath); err == nil && !strings.HasPrefix(rel, "..") {
		m.logRel = filepath.ToSlash(rel)
		m.registry.Ignore(m.logRel)
	}

	if cfg.Sink != nil {
		m.batchProcessor = NewBatchProcessor(cfg.BatchSize, cfg.BatchInterval(), cfg.Sink.SaveEvents)
	}

	return m, nil
}

// SetEventPublisher configures a callback for every logged change event.
func (m *Monitor) SetEventPublisher(publisher func(ChangeEvent)) {
	m.pubMu.Lock()
	m.eventPublisher = publisher
	m.pubMu.Unlock()
}

// Registry exposes the tracked files for read-only queries.
func (m *Monitor) Registry() *Registry {
	return m.registry
}

// ChangeLog returns the log the monitor writes to.
func (m *Monitor) ChangeLog() *ChangeLog {
	return m.changeLog
}

// Start scans the root and launches the background workers.
func (m *Monitor) Start(ctx context.Context) error {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()

	if m.running {
		return fmt.Errorf("monitor already running")
	}

	if err := m.registry.Scan(); err != nil {
		return fmt.Errorf("initial scan failed: %w", err)
	}
	log.Printf("Tracking %d files under %s", m.registry.Len(), m.registry.Root())

	var n *notifier
	if m.watch {
		ignore := ""
		if m.logRel != "" {
			ignore = m.changeLog.Path()
		}
		var err error
		n, err = newNotifier(m.registry.Root(), ignore, m.nudge)
		if err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.startTime = time.Now()

	m.wg.Add(1)
	go m.reconcileLoop(ctx)

	if m.batchProcessor != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.batchProcessor.Start(ctx)
		}()
	}

	if n != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			n.run(ctx)
		}()
	}

	return nil
}

// Stop signals every worker and waits for all of them to return. A pass
// that is already running completes and is logged first.
func (m *Monitor) Stop() error {
	m.lifeMu.Lock()
	if !m.running {
		m.lifeMu.Unlock()
		return nil
	}
	m.running = false
	cancel := m.cancel
	m.lifeMu.Unlock()

	cancel()
	m.wg.Wait()
	return nil
}

// IsRunning reports whether the workers are active.
func (m *Monitor) IsRunning() bool {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()
	return m.running
}

// StartTime returns when Start last succeeded.
func (m *Monitor) StartTime() time.Time {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()
	return m.startTime
}

// Nudge asks the reconcile loop for a pass without waiting for the ticker.
func (m *Monitor) Nudge() {
	select {
	case m.nudge <- struct{}{}:
	default:
	}
}

func (m *Monitor) reconcileLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-m.nudge:
		}
		if ctx.Err() != nil {
			return
		}
		if _, err := m.RunPass(); err != nil {
			log.Printf("Reconciliation pass failed: %v", err)
		}
	}
}

// RunPass performs one reconciliation pass and logs its events as a single
// append.
func (m *Monitor) RunPass() ([]ChangeEvent, error) {
	m.passMu.Lock()
	defer m.passMu.Unlock()

	return m.passLocked()
}

// Status runs a pass on demand and reports the files added and deleted since
// the previous report, net of anything that came and went in between,
// followed by the pass's drift. Scheduled passes have already logged the
// additions and deletions with their own timestamps; the report stamps them
// with the status time.
func (m *Monitor) Status() (StatusReport, error) {
	m.passMu.Lock()
	defer m.passMu.Unlock()

	events, err := m.passLocked()
	now := time.Now()
	diff := m.registry.rebaseline()

	report := StatusReport{Events: make([]ChangeEvent, 0, len(diff.added)+len(diff.removed))}
	for _, p := range diff.added {
		report.Events = append(report.Events, ChangeEvent{Type: EventAdded, Path: p, Timestamp: now})
	}
	for _, p := range diff.removed {
		report.Events = append(report.Events, ChangeEvent{Type: EventDeleted, Path: p, Timestamp: now})
	}
	for _, ev := range events {
		if ev.Type == EventModified {
			report.Events = append(report.Events, ev)
		}
	}

	return report, err
}

// passLocked reconciles, writes the log, then fans the events out. On a log
// write failure the pass's events are dropped; modified files are reported
// again next pass anyway.
func (m *Monitor) passLocked() ([]ChangeEvent, error) {
	start := time.Now()

	events, err := m.registry.Reconcile()
	if err != nil {
		m.metrics.RecordError()
		return nil, err
	}

	if err := m.changeLog.Append(events); err != nil {
		m.metrics.RecordError()
		return nil, err
	}

	m.metrics.RecordPass(time.Since(start), len(events), m.registry.Len())

	m.pubMu.RLock()
	publish := m.eventPublisher
	m.pubMu.RUnlock()
	if publish != nil {
		for _, ev := range events {
			publish(ev)
		}
	}

	if m.batchProcessor != nil {
		m.batchProcessor.Add(events...)
	}

	return events, nil
}

// Commit snapshots every tracked file.
func (m *Monitor) Commit() int {
	m.passMu.Lock()
	defer m.passMu.Unlock()
	return m.registry.Commit()
}

// CommitFile snapshots one tracked file.
func (m *Monitor) CommitFile(path string) error {
	m.passMu.Lock()
	defer m.passMu.Unlock()
	return m.registry.CommitFile(path)
}

// Files returns the tracked records sorted by path.
func (m *Monitor) Files() []FileRecord {
	return m.registry.Records()
}

// Info renders the info report for a tracked path.
func (m *Monitor) Info(ctx context.Context, path string) (string, error) {
	rec, ok := m.registry.Lookup(path)
	if !ok {
		return "", fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return RenderInfo(ctx, rec)
}

// Stats bundles monitor and mirror metrics.
type Stats struct {
	MetricsSnapshot
	Batch         *BatchMetrics `json:"batch,omitempty"`
	PendingMirror int           `json:"pending_mirror"`
	PollInterval  time.Duration `json:"poll_interval"`
	ChangeLogPath string        `json:"change_log"`
	WatchedRoot   string        `json:"root"`
	NotifyEnabled bool          `json:"notify"`
}

// GetStats returns current statistics.
func (m *Monitor) GetStats() Stats {
	s := Stats{
		MetricsSnapshot: m.metrics.GetSnapshot(),
		PollInterval:    m.pollInterval,
		ChangeLogPath:   m.changeLog.Path(),
		WatchedRoot:     m.registry.Root(),
		NotifyEnabled:   m.watch,
	}
	if m.batchProcessor != nil {
		bm := m.batchProcessor.GetMetrics()
		s.Batch = &bm
		s.PendingMirror = m.batchProcessor.GetPendingCount()
	}
	return s
}
