package spanz

import (
	"time"

	"github.com/zoobzio/clockz"
)

// SpanTimer records the first moment a span became active. It is NOT safe
// for concurrent use - callers reach it through the owning span's
// extension accessors, which hold the span's lock.
type SpanTimer struct {
	clock clockz.Clock
	start time.Time
}

// NewSpanTimer returns an unstarted timer reading from clock.
func NewSpanTimer(clock clockz.Clock) *SpanTimer {
	return &SpanTimer{clock: clock}
}

// StartIfUnset marks the current instant as the span's start.
// Later calls are no-ops, so re-entry never resets the clock.
func (t *SpanTimer) StartIfUnset() {
	if t.start.IsZero() {
		t.start = t.clock.Now()
	}
}

// Started reports whether the timer has a start instant.
func (t *SpanTimer) Started() bool {
	return !t.start.IsZero()
}

// ElapsedMS returns whole milliseconds since the start instant. It
// returns zero if the timer never started or the clock ran backwards.
func (t *SpanTimer) ElapsedMS() uint64 {
	if t.start.IsZero() {
		return 0
	}
	elapsed := t.clock.Since(t.start)
	if elapsed < 0 {
		return 0
	}
	return uint64(elapsed / time.Millisecond)
}
