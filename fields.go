package spanz

import (
	"encoding/json"
)

// ElapsedTimeField is the record field carrying a span's elapsed wall time
// in whole milliseconds. It is stamped at finalization and overwrites any
// field recorded under the same name.
const ElapsedTimeField = "elapsed_time"

// FieldSet is the protocol for handing one batch of fields to the library.
// EachField calls fn once per field with the field name and its raw value;
// values are normalized through the closed Value set as they are stored.
type FieldSet interface {
	EachField(fn func(name string, value any))
}

// Fields is a literal FieldSet backed by a map.
type Fields map[string]any

// EachField calls fn for every field in the map.
func (f Fields) EachField(fn func(name string, value any)) {
	for name, value := range f {
		fn(name, value)
	}
}

// FieldStore accumulates the fields of one span. It is NOT safe for
// concurrent use - callers reach it through the owning span's extension
// accessors, which hold the span's lock.
type FieldStore struct {
	fields map[string]Value
}

// NewFieldStore returns an empty store.
func NewFieldStore() *FieldStore {
	return &FieldStore{fields: make(map[string]Value)}
}

// Set stores a value, overwriting any existing value under the name.
func (s *FieldStore) Set(name string, value Value) {
	s.fields[name] = value
}

// Record normalizes a raw host value and stores it.
func (s *FieldStore) Record(name string, value any) {
	s.fields[name] = fieldValue(value)
}

// Merge records every field from the set, overwriting on collision.
// A nil set is a no-op.
func (s *FieldStore) Merge(set FieldSet) {
	if set == nil {
		return
	}
	set.EachField(func(name string, value any) {
		s.fields[name] = fieldValue(value)
	})
}

// Get returns the stored value for name.
func (s *FieldStore) Get(name string) (Value, bool) {
	v, ok := s.fields[name]
	return v, ok
}

// Len returns the number of stored fields.
func (s *FieldStore) Len() int {
	return len(s.fields)
}

// Clone returns a detached copy. Writes to either store after cloning are
// invisible to the other.
func (s *FieldStore) Clone() *FieldStore {
	fields := make(map[string]Value, len(s.fields))
	for name, v := range s.fields {
		fields[name] = v
	}
	return &FieldStore{fields: fields}
}

// Finalize seals the store's current contents into a Record, stamping the
// elapsed time field. The stamp overwrites any value recorded under the
// same name. The store stays usable and the record does not observe
// writes made after finalization.
func (s *FieldStore) Finalize(elapsedMS uint64) Record {
	fields := make(map[string]Value, len(s.fields)+1)
	for name, v := range s.fields {
		fields[name] = v
	}
	fields[ElapsedTimeField] = Uint64Value(elapsedMS)
	return Record{fields: fields}
}

// Record is the immutable field snapshot of one closed span. Records have
// no setters and are safe to share across goroutines.
type Record struct {
	fields map[string]Value
}

// Get returns the value recorded under name.
func (r Record) Get(name string) (Value, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// Len returns the number of fields in the record.
func (r Record) Len() int {
	return len(r.fields)
}

// ElapsedTime returns the stamped elapsed milliseconds.
func (r Record) ElapsedTime() uint64 {
	return r.fields[ElapsedTimeField].Uint64()
}

// Fields returns a copy of the record's fields.
func (r Record) Fields() map[string]Value {
	fields := make(map[string]Value, len(r.fields))
	for name, v := range r.fields {
		fields[name] = v
	}
	return fields
}

// MarshalJSON encodes the record as a single JSON object with keys in
// sorted order.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.fields)
}
