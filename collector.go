package spanz

import (
	"sync"
	"sync/atomic"
	"time"
)

// RecordCollector buffers emitted records for batch export.
// Safe for concurrent use by multiple goroutines.
//
// The collector satisfies RecordEmitter, so a RecordLayer can emit
// straight into it. Records are immutable, so no copies are taken on
// either side of the buffer.
//
//nolint:govet // Field alignment optimized for readability over memory efficiency
type RecordCollector struct {
	records      []Record
	recordsCh    chan Record
	stopCh       chan struct{}
	done         chan struct{}
	droppedCount atomic.Int64
	name         string
	mu           sync.Mutex
	closed       atomic.Bool // Track if collector is closed.
	syncMode     bool        // Bypass channel for synchronous collection.
}

var _ RecordEmitter = (*RecordCollector)(nil)

// NewRecordCollector creates a collector with the specified name and
// buffer size.
func NewRecordCollector(name string, bufferSize int) *RecordCollector {
	c := &RecordCollector{
		name:      name,
		records:   make([]Record, 0, 8), // Start with small capacity.
		recordsCh: make(chan Record, bufferSize),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	go c.start()
	return c
}

// Name returns the collector's name.
func (c *RecordCollector) Name() string {
	return c.name
}

// start runs the collector's main loop, receiving records from the channel.
func (c *RecordCollector) start() {
	defer close(c.done)

	for {
		select {
		case <-c.stopCh:
			// Drain remaining records before shutdown.
			for {
				select {
				case record := <-c.recordsCh:
					c.buffer(record)
				default:
					return // Clean shutdown.
				}
			}
		case record := <-c.recordsCh:
			c.buffer(record)
		}
	}
}

// Emit buffers a record with backpressure protection. If the internal
// channel is full, the record is dropped and the drop counter is
// incremented; the closing goroutine is never blocked. In sync mode,
// records are buffered directly for deterministic testing.
func (c *RecordCollector) Emit(record Record) error {
	if c.syncMode {
		// Direct synchronous collection for tests.
		if c.closed.Load() {
			// Collector is closed - drop record.
			c.droppedCount.Add(1)
			return nil
		}
		c.buffer(record)
		return nil
	}

	select {
	case c.recordsCh <- record:
		// Successfully queued.
	default:
		// Channel full - drop record to prevent blocking.
		c.droppedCount.Add(1)
	}
	return nil
}

// buffer adds a record to the internal buffer.
func (c *RecordCollector) buffer(record Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, record)
}

// Export returns all buffered records and clears the internal buffer.
// Records are immutable, so the returned slice shares no mutable state
// with the collector.
func (c *RecordCollector) Export() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.records) == 0 {
		return nil
	}

	result := make([]Record, len(c.records))
	copy(result, c.records)

	// Only shrink if buffer is very oversized to avoid allocation churn.
	if cap(c.records) > 256 && len(c.records) < cap(c.records)/8 {
		newCap := cap(c.records) / 4
		if newCap < 32 {
			newCap = 32
		}
		c.records = make([]Record, 0, newCap)
	} else {
		c.records = c.records[:0] // Keep capacity, reset length.
	}

	return result
}

// Count returns the current number of buffered records.
func (c *RecordCollector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// DroppedCount returns the total number of records dropped due to backpressure.
func (c *RecordCollector) DroppedCount() int64 {
	return c.droppedCount.Load()
}

// SetSyncMode enables synchronous collection for testing.
// When enabled, records are buffered directly without using the channel.
// This makes tests deterministic by eliminating async behavior.
func (c *RecordCollector) SetSyncMode(sync bool) {
	c.syncMode = sync
}

// Reset clears all buffered records and resets the drop counter.
// Does not affect the running goroutine - use Close for that.
func (c *RecordCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = c.records[:0]
	c.droppedCount.Store(0)
}

// Close shuts down the collector gracefully, draining buffered records.
// Safe to call multiple times - subsequent calls are no-ops.
func (c *RecordCollector) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}

	close(c.stopCh)
	select {
	case <-c.done:
		// Clean shutdown completed.
	case <-time.After(100 * time.Millisecond):
		// Timeout - the drain goroutine is wedged, give up waiting.
	}
}
