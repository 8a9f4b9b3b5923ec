// internal/monitor/batch_processor.go

package monitor

import (
	"context"
	"log"
	"sync"
	"time"
)

const maxBatchRetries = 3

// EventSink receives change events mirrored out of the change log, for
// example into a database table.
type EventSink interface {
	SaveEvents(ctx context.Context, events []ChangeEvent) error
}

// ProcessBatchFunc is the function that processes a batch of events
type ProcessBatchFunc func(ctx context.Context, events []ChangeEvent) error

// BatchProcessor groups change events and hands them to a ProcessBatchFunc
// either when batchSize is reached or every flushInterval. Pass order is kept.
type BatchProcessor struct {
	mu            sync.Mutex
	pending       []pendingEvent
	batchSize     int
	flushInterval time.Duration
	processFunc   ProcessBatchFunc
	lastFlush     time.Time
	metrics       *BatchMetrics
	flushChan     chan struct{}
}

type pendingEvent struct {
	event   ChangeEvent
	retries int
}

// BatchMetrics tracks batch processing performance
type BatchMetrics struct {
	TotalBatches int64         `json:"total_batches"`
	TotalEvents  int64         `json:"total_events"`
	Dropped      int64         `json:"dropped"`
	Errors       int64         `json:"errors"`
	ProcessTime  time.Duration `json:"process_time"`
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(batchSize int, flushInterval time.Duration, processFunc ProcessBatchFunc) *BatchProcessor {
	if batchSize <= 0 {
		batchSize = 50
	}
	if flushInterval <= 0 {
		flushInterval = 10 * time.Second
	}
	return &BatchProcessor{
		batchSize:     batchSize,
		flushInterval: flushInterval,
		processFunc:   processFunc,
		lastFlush:     time.Now(),
		metrics:       &BatchMetrics{},
		flushChan:     make(chan struct{}, 1),
	}
}

// Add queues events for the next flush.
func (bp *BatchProcessor) Add(events ...ChangeEvent) {
	if len(events) == 0 {
		return
	}

	bp.mu.Lock()
	defer bp.mu.Unlock()

	for _, ev := range events {
		bp.pending = append(bp.pending, pendingEvent{event: ev})
	}

	if len(bp.pending) >= bp.batchSize {
		select {
		case bp.flushChan <- struct{}{}:
		default:
		}
	}
}

// Start runs the flush loop until ctx is cancelled, then flushes once more.
func (bp *BatchProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(bp.flushInterval)
	defer ticker.Stop()

	log.Printf("Batch processor started (size: %d, interval: %v)", bp.batchSize, bp.flushInterval)

	for {
		select {
		case <-ticker.C:
			bp.Flush(ctx)
		case <-bp.flushChan:
			bp.Flush(ctx)
		case <-ctx.Done():
			log.Println("Batch processor: Shutting down, final flush")
			final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			bp.Flush(final)
			cancel()
			return
		}
	}
}

// Flush processes all pending events now.
func (bp *BatchProcessor) Flush(ctx context.Context) {
	bp.mu.Lock()
	if len(bp.pending) == 0 {
		bp.mu.Unlock()
		return
	}
	batch := bp.pending
	bp.pending = nil
	bp.lastFlush = time.Now()
	bp.mu.Unlock()

	events := make([]ChangeEvent, len(batch))
	for i, p := range batch {
		events[i] = p.event
	}

	start := time.Now()
	err := bp.processFunc(ctx, events)
	elapsed := time.Since(start)

	bp.mu.Lock()
	defer bp.mu.Unlock()

	bp.metrics.TotalBatches++
	bp.metrics.ProcessTime += elapsed
	if err == nil {
		bp.metrics.TotalEvents += int64(len(events))
		return
	}

	log.Printf("Batch processing error: %v", err)
	bp.metrics.Errors++

	// Failed events go back in front of anything queued meanwhile.
	retry := make([]pendingEvent, 0, len(batch)+len(bp.pending))
	for _, p := range batch {
		p.retries++
		if p.retries >= maxBatchRetries {
			bp.metrics.Dropped++
			continue
		}
		retry = append(retry, p)
	}
	if dropped := len(batch) - len(retry); dropped > 0 {
		log.Printf("Batch processor: Dropped %d events after %d attempts", dropped, maxBatchRetries)
	}
	bp.pending = append(retry, bp.pending...)
}

// GetMetrics returns current metrics
func (bp *BatchProcessor) GetMetrics() BatchMetrics {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return *bp.metrics
}

// GetPendingCount returns the number of pending events
func (bp *BatchProcessor) GetPendingCount() int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return len(bp.pending)
}
