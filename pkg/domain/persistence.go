package domain

import "context"

// Transaction exposes the operations a persistence implementation must
// support within an atomic scope. It doubles as the RecordGraph driven by the
// duplication engine, so every copy of a duplication commits or rolls back together.
type Transaction interface {
	RecordGraph
	Snapshot() TransactionView
	Create(r Record) (Record, error)
	Update(t RecordType, id string, mutator func(*Record) error) (Record, error)
	Delete(t RecordType, id string) error
	Find(t RecordType, id string) (Record, bool)
}

// TransactionView provides read-only access to snapshot data for rules.
type TransactionView interface {
	Types() []RecordType
	List(t RecordType) []Record
	Find(t RecordType, id string) (Record, bool)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	Get(t RecordType, id string) (Record, bool)
	List(t RecordType) []Record
	Schema() Schema
}
