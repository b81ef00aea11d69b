package domain

// RelationshipKind mirrors the declaration style of the host data layer.
type RelationshipKind string

const (
	// RelationshipHasOne declares a single owned record carrying this record's foreign key.
	RelationshipHasOne RelationshipKind = "has_one"
	// RelationshipHasMany declares a collection of owned records carrying this record's foreign key.
	RelationshipHasMany RelationshipKind = "has_many"
	// RelationshipBelongsTo declares the inverse side: this record carries the foreign key.
	RelationshipBelongsTo RelationshipKind = "belongs_to"
)

// Cardinality is the number of records a relationship yields.
type Cardinality string

const (
	CardinalityOne  Cardinality = "one"
	CardinalityMany Cardinality = "many"
)

// RelationshipDescriptor describes one declared relationship of a record type.
//
// A non-empty Through marks an indirect relationship realised via the
// relationship named Through on the owner, followed by the relationship named
// Source (defaulting to Name) on each intermediate record.
type RelationshipDescriptor struct {
	Name       string           `json:"name" yaml:"name"`
	Kind       RelationshipKind `json:"kind" yaml:"kind"`
	Target     RecordType       `json:"target" yaml:"target"`
	ForeignKey string           `json:"foreign_key,omitempty" yaml:"foreign_key,omitempty"`
	Through    string           `json:"through,omitempty" yaml:"through,omitempty"`
	Source     string           `json:"source,omitempty" yaml:"source,omitempty"`
}

// Cardinality reports whether the relationship yields one record or many.
func (d RelationshipDescriptor) Cardinality() Cardinality {
	if d.Kind == RelationshipHasMany {
		return CardinalityMany
	}
	return CardinalityOne
}

// Indirect reports whether the relationship is realised through a join record.
func (d RelationshipDescriptor) Indirect() bool { return d.Through != "" }

// SourceName returns the relationship followed on intermediate records.
func (d RelationshipDescriptor) SourceName() string {
	if d.Source != "" {
		return d.Source
	}
	return d.Name
}

// Owned reports whether the relationship points down the tree (has_one or
// has_many) rather than outward (belongs_to).
func (d RelationshipDescriptor) Owned() bool {
	return d.Kind == RelationshipHasOne || d.Kind == RelationshipHasMany
}
