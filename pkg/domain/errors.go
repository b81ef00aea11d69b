package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrNotFound is returned when a referenced record does not exist.
type ErrNotFound struct {
	Type RecordType
	ID   string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Type, e.ID)
}

// PersistenceError reports a copy that could not be saved.
type PersistenceError struct {
	Source RecordRef
	Type   RecordType
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist copy of %s: %v", e.Source, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// UnresolvedRelationshipError reports a declared relationship the data layer
// could not produce records for.
type UnresolvedRelationshipError struct {
	Record       RecordRef
	Relationship string
	Err          error
}

func (e *UnresolvedRelationshipError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("unresolved relationship %s on %s", e.Relationship, e.Record)
	}
	return fmt.Sprintf("unresolved relationship %s on %s: %v", e.Relationship, e.Record, e.Err)
}

func (e *UnresolvedRelationshipError) Unwrap() error { return e.Err }

// CyclicGraphError reports a record reached again while it is still open on
// the active duplication path. Path ends with the record that closed the cycle.
type CyclicGraphError struct {
	Path []RecordRef
}

func (e *CyclicGraphError) Error() string {
	parts := make([]string, len(e.Path))
	for i, ref := range e.Path {
		parts[i] = ref.String()
	}
	return "cyclic relationship graph: " + strings.Join(parts, " -> ")
}

// PartialDuplicationError accompanies a Duplication whose failed branches
// were skipped. The copies that were created remain valid.
type PartialDuplicationError struct {
	Failures []error
}

func (e *PartialDuplicationError) Error() string {
	return fmt.Sprintf("duplication incomplete: %d branch(es) skipped: %v", len(e.Failures), errors.Join(e.Failures...))
}

func (e *PartialDuplicationError) Unwrap() []error { return e.Failures }

// ValidationError lists the attributes of a record that failed validation,
// keyed by attribute name.
type ValidationError struct {
	Type   RecordType
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	slices.Sort(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + e.Fields[name]
	}
	return fmt.Sprintf("invalid %s: %s", e.Type, strings.Join(parts, "; "))
}
