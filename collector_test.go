package spanz

import (
	"sync"
	"testing"
	"time"
)

// testRecord builds a record with a single marker field.
func testRecord(n int) Record {
	store := NewFieldStore()
	store.Record("n", n)
	return store.Finalize(0)
}

func TestCollectorName(t *testing.T) {
	collector := NewRecordCollector("checkout", 4)
	defer collector.Close()

	if collector.Name() != "checkout" {
		t.Errorf("Expected name 'checkout', got %s", collector.Name())
	}
}

func TestCollectorEmitAndExport(t *testing.T) {
	collector := NewRecordCollector("test", 8)
	defer collector.Close()
	collector.SetSyncMode(true)

	for i := 0; i < 3; i++ {
		if err := collector.Emit(testRecord(i)); err != nil {
			t.Fatalf("Emit failed: %v", err)
		}
	}

	if collector.Count() != 3 {
		t.Errorf("Expected 3 buffered records, got %d", collector.Count())
	}

	records := collector.Export()
	if len(records) != 3 {
		t.Fatalf("Expected 3 exported records, got %d", len(records))
	}

	for i, record := range records {
		v, ok := record.Get("n")
		if !ok || v.Int64() != int64(i) {
			t.Errorf("Expected record %d in order, got %v", i, v.Any())
		}
	}

	// After export, collector should be empty.
	if collector.Count() != 0 {
		t.Errorf("Expected empty buffer after export, got %d", collector.Count())
	}
	if collector.Export() != nil {
		t.Error("Expected nil export from empty buffer")
	}
}

func TestCollectorAsyncEmit(t *testing.T) {
	collector := NewRecordCollector("test", 16)

	for i := 0; i < 5; i++ {
		if err := collector.Emit(testRecord(i)); err != nil {
			t.Fatalf("Emit failed: %v", err)
		}
	}

	// Close drains the channel into the buffer.
	collector.Close()

	records := collector.Export()
	if len(records) != 5 {
		t.Errorf("Expected 5 records after drain, got %d", len(records))
	}
	if collector.DroppedCount() != 0 {
		t.Errorf("Expected no drops, got %d", collector.DroppedCount())
	}
}

func TestCollectorDropsWhenChannelFull(t *testing.T) {
	collector := NewRecordCollector("test", 1)

	// Stop the drain loop so the channel stays full.
	collector.Close()

	for i := 0; i < 3; i++ {
		if err := collector.Emit(testRecord(i)); err != nil {
			t.Fatalf("Emit failed: %v", err)
		}
	}

	// One record fit the channel, the rest were dropped.
	if dropped := collector.DroppedCount(); dropped != 2 {
		t.Errorf("Expected 2 dropped records, got %d", dropped)
	}
}

func TestCollectorSyncModeDropsWhenClosed(t *testing.T) {
	collector := NewRecordCollector("test", 4)
	collector.SetSyncMode(true)
	collector.Close()

	if err := collector.Emit(testRecord(1)); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}

	if dropped := collector.DroppedCount(); dropped != 1 {
		t.Errorf("Expected 1 dropped record, got %d", dropped)
	}
	if collector.Count() != 0 {
		t.Errorf("Expected no buffered records, got %d", collector.Count())
	}
}

func TestCollectorReset(t *testing.T) {
	collector := NewRecordCollector("test", 4)
	defer collector.Close()
	collector.SetSyncMode(true)

	collector.Emit(testRecord(1)) //nolint:errcheck // Emit never fails in sync mode
	collector.Reset()

	if collector.Count() != 0 {
		t.Errorf("Expected empty buffer after reset, got %d", collector.Count())
	}
	if collector.DroppedCount() != 0 {
		t.Errorf("Expected drop counter reset, got %d", collector.DroppedCount())
	}
}

func TestCollectorConcurrentEmit(t *testing.T) {
	collector := NewRecordCollector("test", 256)

	var wg sync.WaitGroup
	numGoroutines := 10
	recordsPerGoroutine := 10

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := 0; j < recordsPerGoroutine; j++ {
				collector.Emit(testRecord(base*recordsPerGoroutine + j)) //nolint:errcheck // Drops are counted, not returned
			}
		}(i)
	}

	wg.Wait()
	collector.Close()

	total := len(collector.Export()) + int(collector.DroppedCount())
	if total != numGoroutines*recordsPerGoroutine {
		t.Errorf("Expected %d records accounted for, got %d",
			numGoroutines*recordsPerGoroutine, total)
	}
}

func TestCollectorCloseIsIdempotent(t *testing.T) {
	collector := NewRecordCollector("test", 4)

	collector.Close()
	collector.Close()

	// Emit after close must not block or panic.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			collector.Emit(testRecord(i)) //nolint:errcheck // Drops are counted, not returned
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked after Close")
	}
}

func TestCollectorExportShrinksOversizedBuffer(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping buffer stress test in short mode")
	}

	collector := NewRecordCollector("test", 4)
	defer collector.Close()
	collector.SetSyncMode(true)

	// Grow the buffer well past the shrink threshold.
	for i := 0; i < 1000; i++ {
		collector.Emit(testRecord(i)) //nolint:errcheck // Emit never fails in sync mode
	}
	if got := len(collector.Export()); got != 1000 {
		t.Fatalf("Expected 1000 records, got %d", got)
	}

	// A small follow-up batch still exports correctly.
	for i := 0; i < 5; i++ {
		collector.Emit(testRecord(i)) //nolint:errcheck // Emit never fails in sync mode
	}
	if got := len(collector.Export()); got != 5 {
		t.Errorf("Expected 5 records after shrink, got %d", got)
	}
}
