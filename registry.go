package spanz

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"runtime"
	"sync"

	"github.com/zoobzio/clockz"
)

// SpanID identifies one span for the lifetime of the process.
type SpanID string

// SpanContext is the registry view handed to layer hooks. It resolves
// span IDs against the live table and exposes the span current at the
// hook site.
type SpanContext struct {
	registry *Registry
	current  *Span
}

// Span returns the live span with the given ID.
// Returns nil once the registry no longer tracks the ID.
func (c SpanContext) Span(id SpanID) *Span {
	return c.registry.lookupSpan(id)
}

// Current returns the span current at the hook site, nil if none.
func (c SpanContext) Current() *Span {
	return c.current
}

// Registry tracks live spans and fans lifecycle notifications out to
// layers. Safe for concurrent use by multiple goroutines.
//
// Every hook runs synchronously on the goroutine driving the span, in
// layer registration order. A hook that panics propagates to the caller.
//
//nolint:govet // Field order optimized for functionality over memory
type Registry struct {
	spans      map[SpanID]*Span
	layers     []Layer
	spanIDPool *idPool
	clock      clockz.Clock
	spansLock  sync.RWMutex
	layersLock sync.RWMutex
	idPoolOnce sync.Once
}

// NewRegistry creates a registry with no layers attached.
// Uses the real clock for production behavior.
func NewRegistry() *Registry {
	return &Registry{
		spans: make(map[SpanID]*Span),
		clock: clockz.RealClock,
	}
}

// WithClock returns a new registry with the specified clock.
// Enables clock injection for deterministic testing.
func (*Registry) WithClock(clock clockz.Clock) *Registry {
	return &Registry{
		spans: make(map[SpanID]*Span),
		clock: clock,
	}
}

// ensureIDPool initializes the span ID pool if not already created.
func (r *Registry) ensureIDPool() {
	r.idPoolOnce.Do(func() {
		// Pool size based on number of CPUs for optimal contention balance.
		poolSize := runtime.NumCPU() * 100

		r.spanIDPool = newIDPool(poolSize, func() string {
			bytes := make([]byte, 8)
			if _, err := rand.Read(bytes); err != nil {
				// Fallback to time-based ID if crypto/rand fails.
				return hex.EncodeToString([]byte(r.clock.Now().Format("15:04:05.000000")))
			}
			return hex.EncodeToString(bytes)
		})
	})
}

// AddLayer attaches a layer. Layers observe every span started after the
// call; attach layers before the first StartSpan to see complete
// lifecycles.
func (r *Registry) AddLayer(layer Layer) {
	if layer == nil {
		return
	}

	r.layersLock.Lock()
	defer r.layersLock.Unlock()

	r.layers = append(r.layers, layer)
}

// StartSpan creates a span, registers it in the live table, and notifies
// layers. The parent is whatever span ctx carries; the new span is not
// current until Enter.
func (r *Registry) StartSpan(ctx context.Context, name Key, attrs FieldSet) *Span {
	r.ensureIDPool()

	span := &Span{
		registry: r,
		parent:   GetSpan(ctx),
		name:     name,
		id:       SpanID(r.spanIDPool.Get()),
	}

	r.spansLock.Lock()
	r.spans[span.id] = span
	r.spansLock.Unlock()

	r.dispatchCreate(span, attrs)

	return span
}

// Event reports a point-in-time occurrence against the span current on
// ctx. A context carrying a closed span dispatches with nil current, the
// same as one carrying no span; layers decide what to do with an
// unattributed event.
func (r *Registry) Event(ctx context.Context, fields FieldSet) {
	current := GetSpan(ctx)
	if current != nil && current.Closed() {
		current = nil
	}
	sctx := SpanContext{registry: r, current: current}
	for _, layer := range r.snapshotLayers() {
		layer.OnEvent(fields, sctx)
	}
}

// LiveCount returns the number of spans created but not yet closed.
func (r *Registry) LiveCount() int {
	r.spansLock.RLock()
	defer r.spansLock.RUnlock()
	return len(r.spans)
}

// Close shuts down the registry and cleans up resources.
// This should be called when the registry is no longer needed.
func (r *Registry) Close() {
	// Stop new layer notifications.
	r.layersLock.Lock()
	r.layers = nil
	r.layersLock.Unlock()

	if r.spanIDPool != nil {
		r.spanIDPool.Close()
	}
}

// lookupSpan resolves an ID against the live table.
func (r *Registry) lookupSpan(id SpanID) *Span {
	r.spansLock.RLock()
	defer r.spansLock.RUnlock()
	return r.spans[id]
}

// snapshotLayers copies the layer list so hooks run without holding the
// registry lock.
func (r *Registry) snapshotLayers() []Layer {
	r.layersLock.RLock()
	defer r.layersLock.RUnlock()

	if len(r.layers) == 0 {
		return nil
	}

	layers := make([]Layer, len(r.layers))
	copy(layers, r.layers)
	return layers
}

func (r *Registry) dispatchCreate(span *Span, attrs FieldSet) {
	sctx := SpanContext{registry: r, current: span.parent}
	for _, layer := range r.snapshotLayers() {
		layer.OnSpanCreate(attrs, span.id, sctx)
	}
}

func (r *Registry) dispatchEnter(span *Span) {
	sctx := SpanContext{registry: r, current: span}
	for _, layer := range r.snapshotLayers() {
		layer.OnEnter(span.id, sctx)
	}
}

func (r *Registry) dispatchRecord(span *Span, values FieldSet) {
	sctx := SpanContext{registry: r}
	for _, layer := range r.snapshotLayers() {
		layer.OnRecord(span.id, values, sctx)
	}
}

// closeSpan dispatches OnClose while the span is still addressable, then
// drops it from the live table.
func (r *Registry) closeSpan(span *Span) {
	sctx := SpanContext{registry: r}
	for _, layer := range r.snapshotLayers() {
		layer.OnClose(span.id, sctx)
	}

	r.spansLock.Lock()
	delete(r.spans, span.id)
	r.spansLock.Unlock()
}
