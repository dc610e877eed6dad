package spanz

import (
	"sort"

	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
)

// Layer observes span lifecycle notifications from a Registry. Hooks run
// synchronously on the goroutine driving the span; implementations own
// their internal synchronization.
type Layer interface {
	// OnSpanCreate fires once per span, before the span can be entered.
	OnSpanCreate(attrs FieldSet, id SpanID, sctx SpanContext)

	// OnEvent fires for a point-in-time occurrence, attributed to the
	// span current at the call site.
	OnEvent(event FieldSet, sctx SpanContext)

	// OnRecord fires when values are added to a span after creation.
	OnRecord(id SpanID, values FieldSet, sctx SpanContext)

	// OnEnter fires each time a span becomes current.
	OnEnter(id SpanID, sctx SpanContext)

	// OnClose fires once when a span closes, while the span is still
	// addressable through sctx.
	OnClose(id SpanID, sctx SpanContext)
}

// RecordLayer aggregates span fields across the lifecycle and emits one
// immutable record per closed span.
//
// Children start from a snapshot of their parent's fields taken at
// creation; events and late record calls merge into the owning span's
// store, overwriting on collision; the first entry starts the span clock.
// At close the layer stamps elapsed_time and hands the sealed record to
// the emitter on the closing goroutine.
type RecordLayer struct {
	emitter RecordEmitter
	clock   clockz.Clock
	logger  *zap.Logger
}

var _ Layer = (*RecordLayer)(nil)

// NewRecordLayer creates a layer emitting through emitter.
// Uses the real clock; diagnostics go to zap's no-op logger.
func NewRecordLayer(emitter RecordEmitter) *RecordLayer {
	return &RecordLayer{
		emitter: emitter,
		clock:   clockz.RealClock,
		logger:  zap.NewNop(),
	}
}

// WithClock returns a copy of the layer reading from the specified clock.
// Enables clock injection for deterministic testing.
func (l *RecordLayer) WithClock(clock clockz.Clock) *RecordLayer {
	return &RecordLayer{
		emitter: l.emitter,
		clock:   clock,
		logger:  l.logger,
	}
}

// WithLogger returns a copy of the layer reporting diagnostics to logger.
func (l *RecordLayer) WithLogger(logger *zap.Logger) *RecordLayer {
	return &RecordLayer{
		emitter: l.emitter,
		clock:   l.clock,
		logger:  logger,
	}
}

// OnSpanCreate seeds the span's field store with a snapshot of its
// parent's fields, then merges the creation attrs over the snapshot.
func (l *RecordLayer) OnSpanCreate(attrs FieldSet, id SpanID, sctx SpanContext) {
	span := sctx.Span(id)
	if span == nil {
		panic("spanz: no live span for id " + string(id))
	}

	// A parent without a store contributes nothing. Happens when the
	// layer attached after the parent was created.
	store := NewFieldStore()
	if parent := span.Parent(); parent != nil {
		parent.ViewExtensions(func(ext ExtensionReader) {
			if v, ok := ext.Get(extensionFieldStore); ok {
				store = v.(*FieldStore).Clone()
			}
		})
	}

	store.Merge(attrs)

	span.WithExtensions(func(ext *Extensions) {
		ext.Insert(extensionFieldStore, store)
	})
}

// OnEvent merges event fields into the current span's store. An event
// with no live current span is reported on the diagnostic channel and
// dropped - it never becomes a record.
func (l *RecordLayer) OnEvent(event FieldSet, sctx SpanContext) {
	span := sctx.Current()
	if span == nil || span.Closed() {
		l.logger.Debug("event without an active span, dropping fields",
			zap.Strings("fields", fieldNames(event)))
		return
	}

	span.WithExtensions(func(ext *Extensions) {
		v, ok := ext.Get(extensionFieldStore)
		if !ok {
			panic("spanz: span " + string(span.ID()) + " has no field store")
		}
		v.(*FieldStore).Merge(event)
	})
}

// OnRecord merges late values into the identified span's store,
// overwriting on collision.
func (l *RecordLayer) OnRecord(id SpanID, values FieldSet, sctx SpanContext) {
	span := sctx.Span(id)
	if span == nil {
		panic("spanz: no live span for id " + string(id))
	}

	span.WithExtensions(func(ext *Extensions) {
		v, ok := ext.Get(extensionFieldStore)
		if !ok {
			panic("spanz: span " + string(id) + " has no field store")
		}
		v.(*FieldStore).Merge(values)
	})
}

// OnEnter starts the span clock on first entry. Re-entry finds the timer
// already present and leaves it running.
func (l *RecordLayer) OnEnter(id SpanID, sctx SpanContext) {
	span := sctx.Span(id)
	if span == nil {
		panic("spanz: no live span for id " + string(id))
	}

	span.WithExtensions(func(ext *Extensions) {
		v, ok := ext.Get(extensionTimer)
		if !ok {
			v = NewSpanTimer(l.clock)
			ext.Insert(extensionTimer, v)
		}
		v.(*SpanTimer).StartIfUnset()
	})
}

// OnClose stamps the elapsed time, seals the record, and emits it. A span
// that was never entered reports zero elapsed milliseconds. Emission
// failures are reported through the logger; the record is lost, the span
// lifecycle is not.
func (l *RecordLayer) OnClose(id SpanID, sctx SpanContext) {
	span := sctx.Span(id)
	if span == nil {
		panic("spanz: no live span for id " + string(id))
	}

	var record Record
	span.ViewExtensions(func(ext ExtensionReader) {
		var elapsedMS uint64
		if v, ok := ext.Get(extensionTimer); ok {
			elapsedMS = v.(*SpanTimer).ElapsedMS()
		}

		v, ok := ext.Get(extensionFieldStore)
		if !ok {
			panic("spanz: span " + string(id) + " has no field store")
		}
		record = v.(*FieldStore).Finalize(elapsedMS)
	})

	if err := l.emitter.Emit(record); err != nil {
		l.logger.DPanic("failed to emit span record",
			zap.String("span", span.Name()),
			zap.String("id", string(id)),
			zap.Error(err))
	}
}

// fieldNames lists a set's field names in sorted order for diagnostics.
func fieldNames(set FieldSet) []string {
	if set == nil {
		return nil
	}
	var names []string
	set.EachField(func(name string, _ any) {
		names = append(names, name)
	})
	sort.Strings(names)
	return names
}
