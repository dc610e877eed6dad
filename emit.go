package spanz

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// RecordEmitter receives the record of each closed span. Emit runs on the
// goroutine that closed the span, so implementations that block stall the
// closing code path.
type RecordEmitter interface {
	Emit(record Record) error
}

// JSONEmitter writes records as compact JSON, one line per record. Writes
// are serialized so records from concurrent closes never interleave.
type JSONEmitter struct {
	w  io.Writer
	mu sync.Mutex
}

var _ RecordEmitter = (*JSONEmitter)(nil)

// NewJSONEmitter creates an emitter writing to w.
// A nil writer means os.Stdout.
func NewJSONEmitter(w io.Writer) *JSONEmitter {
	if w == nil {
		w = os.Stdout
	}
	return &JSONEmitter{w: w}
}

// Emit writes one record as a single JSON line.
func (e *JSONEmitter) Emit(record Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	data = append(data, '\n')

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.w.Write(data); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}
