// Package domain defines the record model, relationship descriptors, and the
// persistence contracts consumed by the duplication engine.
package domain

import (
	"maps"
	"time"
)

// RecordType names a kind of record, e.g. "Project" or "LineItem".
type RecordType string

// Attributes holds the named, writable values of a record.
type Attributes map[string]any

// Clone returns a shallow copy of the attribute map.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	return maps.Clone(a)
}

// Record is an opaque host entity: a type, an identifier assigned on
// persistence, and a set of attributes.
type Record struct {
	Type       RecordType `json:"type"`
	ID         string     `json:"id,omitempty"`
	Attributes Attributes `json:"attributes"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Key returns the identity of the record as "<type>:<id>".
func (r Record) Key() string {
	return RecordRef{Type: r.Type, ID: r.ID}.String()
}

// Ref returns a lightweight reference to the record.
func (r Record) Ref() RecordRef {
	return RecordRef{Type: r.Type, ID: r.ID}
}

// Get returns the attribute value for name.
func (r Record) Get(name string) (any, bool) {
	v, ok := r.Attributes[name]
	return v, ok
}

// Set writes an attribute value, allocating the attribute map when needed.
func (r *Record) Set(name string, value any) {
	if r.Attributes == nil {
		r.Attributes = make(Attributes)
	}
	r.Attributes[name] = value
}

// Persisted reports whether an identifier has been assigned.
func (r Record) Persisted() bool { return r.ID != "" }

// CloneRecord returns a copy of r that shares no attribute storage with it.
func CloneRecord(r Record) Record {
	cp := r
	cp.Attributes = r.Attributes.Clone()
	return cp
}

// RecordRef identifies a record without carrying its attributes.
type RecordRef struct {
	Type RecordType `json:"type"`
	ID   string     `json:"id"`
}

func (r RecordRef) String() string {
	return string(r.Type) + ":" + r.ID
}
