package domain

import "context"

// Schema exposes the statically registered description of every record type.
type Schema interface {
	// RelationshipsOf lists the declared relationships of t in declaration order.
	RelationshipsOf(t RecordType) []RelationshipDescriptor
	// Relationship looks up a single declared relationship by name.
	Relationship(t RecordType, name string) (RelationshipDescriptor, bool)
	// DefaultRelationships lists the relationships duplicated when no include
	// list is given. A nil result means every duplicable relationship.
	DefaultRelationships(t RecordType) []string
	// DefaultOverridesFor returns the attributes forced onto every copy of t.
	DefaultOverridesFor(t RecordType) (Attributes, bool)
	// TypeFieldName returns the foreign-key field name used for t, e.g. "project_id".
	TypeFieldName(t RecordType) string
	// Writable reports whether records of t expose a writable attribute name.
	Writable(t RecordType, name string) bool
}

// RecordGraph is the data-access collaborator the duplication engine drives.
type RecordGraph interface {
	// RelatedRecords returns the records reachable from r through the named
	// relationship: none, one, or many.
	RelatedRecords(ctx context.Context, r Record, relationship string) ([]Record, error)
	// Clone returns an unsaved in-memory copy of r with no identifier.
	Clone(r Record) Record
	// Persist saves r, assigning its identifier. Validation runs only when validate is true.
	Persist(ctx context.Context, r *Record, validate bool) error
}
