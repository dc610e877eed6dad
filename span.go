package spanz

import (
	"context"
	"sync"
	"sync/atomic"
)

// currentKeyType is a private type for context keys to avoid collisions.
type currentKeyType string

const (
	currentKey currentKeyType = "spanz"
)

// ExtensionKey tags one slot of a span's extension storage. Keys below
// ExtensionKeyUserBase are reserved for the library; hosts declare their
// own keys at or above it.
type ExtensionKey int

const (
	extensionFieldStore ExtensionKey = iota
	extensionTimer

	// ExtensionKeyUserBase is the first key free for host layers.
	ExtensionKeyUserBase ExtensionKey = 64
)

// Extensions is one span's keyed extension storage. Layers hang per-span
// state off it. Reach it through the span's WithExtensions and
// ViewExtensions accessors - the span's lock guards every access.
type Extensions struct {
	slots map[ExtensionKey]any
}

// Get returns the value stored under key.
func (e *Extensions) Get(key ExtensionKey) (any, bool) {
	v, ok := e.slots[key]
	return v, ok
}

// Insert stores a value under key, replacing any existing value.
func (e *Extensions) Insert(key ExtensionKey, value any) {
	if e.slots == nil {
		e.slots = make(map[ExtensionKey]any)
	}
	e.slots[key] = value
}

// Remove deletes the value under key and returns it.
func (e *Extensions) Remove(key ExtensionKey) (any, bool) {
	v, ok := e.slots[key]
	if ok {
		delete(e.slots, key)
	}
	return v, ok
}

// Len returns the number of occupied slots.
func (e *Extensions) Len() int {
	return len(e.slots)
}

// ExtensionReader is the read-only view of a span's extension storage,
// handed out under the span's shared lock.
type ExtensionReader interface {
	Get(key ExtensionKey) (any, bool)
	Len() int
}

// Span is the live handle for a single unit of work. The registry keeps
// it addressable from creation until Close. Safe for concurrent use by
// multiple goroutines.
//
//nolint:govet // Field order optimized for readability over memory
type Span struct {
	registry   *Registry
	parent     *Span
	name       Key
	id         SpanID
	extensions Extensions
	extMu      sync.RWMutex
	closed     atomic.Bool
}

// ID returns the span's identifier.
func (s *Span) ID() SpanID {
	return s.id
}

// Name returns the span's operation name.
func (s *Span) Name() Key {
	return s.name
}

// Parent returns the parent span handle, nil for a root span.
func (s *Span) Parent() *Span {
	return s.parent
}

// Closed reports whether Close has run.
func (s *Span) Closed() bool {
	return s.closed.Load()
}

// WithExtensions runs fn with exclusive access to the span's extension
// storage. The lock is held exactly for the duration of fn; do not retain
// the storage or anything fetched from it past the call.
func (s *Span) WithExtensions(fn func(ext *Extensions)) {
	s.extMu.Lock()
	defer s.extMu.Unlock()
	fn(&s.extensions)
}

// ViewExtensions runs fn with shared read access to the span's extension
// storage. Multiple readers may hold the view concurrently; writers wait.
func (s *Span) ViewExtensions(fn func(ext ExtensionReader)) {
	s.extMu.RLock()
	defer s.extMu.RUnlock()
	fn(&s.extensions)
}

// Enter makes the span current on the returned context and notifies
// layers. Every Enter dispatches; only the first one starts the span's
// clock. No-op on a closed span - the input context comes back unchanged.
func (s *Span) Enter(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.closed.Load() {
		return ctx
	}
	s.registry.dispatchEnter(s)
	return context.WithValue(ctx, currentKey, s)
}

// Record merges late field values into the span.
// No-op if the span is already closed.
func (s *Span) Record(values FieldSet) {
	if s.closed.Load() {
		return
	}
	s.registry.dispatchRecord(s, values)
}

// Close finalizes the span. Layers observe it while it is still
// addressable; afterwards the registry forgets it.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Span) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.registry.closeSpan(s)
}

// GetSpan extracts the current span from a context.
// Returns nil if no span is present.
func GetSpan(ctx context.Context) *Span {
	if ctx == nil {
		return nil
	}

	if span, ok := ctx.Value(currentKey).(*Span); ok {
		return span
	}

	return nil
}
