// Package spanz provides a minimal span field-aggregation and lifecycle library.
//
// spanz gathers the fields attached to a span over its lifetime - creation.
// attributes, events, late record calls - and emits one immutable JSON record
// when the span closes. Child spans start from a snapshot of their parent's
// fields taken at creation time.
//
// Core Components:.
//   - Registry: Tracks live spans and dispatches lifecycle notifications.
//   - Span: Live handle for a single unit of work.
//   - Layer: Observer interface for span lifecycle hooks.
//   - RecordLayer: Aggregates fields and emits one record per closed span.
//   - RecordCollector: Buffers emitted records for batch export.
//
// Basic Usage:.
//
//	registry := spanz.NewRegistry()
//	defer registry.Close()
//	registry.AddLayer(spanz.NewRecordLayer(spanz.NewJSONEmitter(os.Stdout)))
//
//	// Start and enter a span.
//	span := registry.StartSpan(ctx, "operation-name", spanz.Fields{"user.id": 123})
//	ctx = span.Enter(ctx)
//	defer span.Close()
//
//	// Report an event against the current span.
//	registry.Event(ctx, spanz.Fields{"message": "cache miss"})
//
//	// Child spans inherit the parent's fields as of creation.
//	child := registry.StartSpan(ctx, "child-operation", nil)
//	childCtx := child.Enter(ctx)
//	defer child.Close()
//
// Thread Safety:.
//
// Registry is safe for concurrent use by multiple goroutines.
// Span extension storage is guarded by a per-span lock with scoped
// exclusive and shared accessors.
// RecordCollector is safe for concurrent record buffering.
//
// Layer hooks run synchronously on the goroutine driving the span - the.
// library starts no goroutines of its own on the span path.
//
// Context Propagation:.
//
// Enter returns a derived context carrying the span. Spans started from
// that context become children of the carried span.
//
// Timing:.
//
// A span's clock starts the first time it is entered; re-entry does not
// reset it. Elapsed wall time lands on the record as elapsed_time in
// whole milliseconds, zero for spans that were never entered.
//
// Resource Cleanup:.
//
// Call registry.Close() to shut down the ID pool. Call
// collector.Close() to stop a collector's buffering goroutine.
package spanz

// Key represents a span operation name.
type Key = string
