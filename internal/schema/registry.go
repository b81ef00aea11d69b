// Package schema holds the statically registered description of record types:
// their writable attributes, validation rules, declared relationships and
// duplication defaults. The Registry implements domain.Schema.
package schema

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"deepcopy/pkg/domain"
)

var _ domain.Schema = (*Registry)(nil)

// AttributeSchema declares a single attribute of a record type.
type AttributeSchema struct {
	Name     string `json:"name" yaml:"name"`
	Validate string `json:"validate,omitempty" yaml:"validate,omitempty"`
	ReadOnly bool   `json:"read_only,omitempty" yaml:"read_only,omitempty"`
}

// TypeSchema declares a record type.
//
// Duplicable lists the relationships duplicated by default; nil means every
// duplicable relationship, an empty list means none. Defaults are forced onto
// every copy of the type.
type TypeSchema struct {
	Name          domain.RecordType               `json:"name" yaml:"name"`
	Attributes    []AttributeSchema               `json:"attributes" yaml:"attributes"`
	Relationships []domain.RelationshipDescriptor `json:"relationships,omitempty" yaml:"relationships,omitempty"`
	Duplicable    []string                        `json:"duplicable,omitempty" yaml:"duplicable,omitempty"`
	Defaults      domain.Attributes               `json:"defaults,omitempty" yaml:"defaults,omitempty"`
}

func (ts TypeSchema) attribute(name string) (AttributeSchema, bool) {
	for _, a := range ts.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return AttributeSchema{}, false
}

func (ts TypeSchema) relationship(name string) (domain.RelationshipDescriptor, bool) {
	for _, rel := range ts.Relationships {
		if rel.Name == name {
			return rel, true
		}
	}
	return domain.RelationshipDescriptor{}, false
}

// Registry is the set of known record types.
type Registry struct {
	mu    sync.RWMutex
	types map[domain.RecordType]TypeSchema
	order []domain.RecordType
}

// NewRegistry registers the given types and validates cross-type references.
func NewRegistry(types ...TypeSchema) (*Registry, error) {
	r := &Registry{types: make(map[domain.RecordType]TypeSchema, len(types))}
	for _, ts := range types {
		if err := r.add(ts); err != nil {
			return nil, err
		}
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds a type after construction. References to types not yet
// registered are only checked by Validate.
func (r *Registry) Register(ts TypeSchema) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.add(ts)
}

func (r *Registry) add(ts TypeSchema) error {
	if ts.Name == "" {
		return errors.New("schema: type name required")
	}
	if r.types == nil {
		r.types = make(map[domain.RecordType]TypeSchema)
	}
	if _, exists := r.types[ts.Name]; exists {
		return fmt.Errorf("schema: type %s already registered", ts.Name)
	}
	seenAttrs := make(map[string]struct{}, len(ts.Attributes))
	for _, a := range ts.Attributes {
		if a.Name == "" {
			return fmt.Errorf("schema: %s: attribute name required", ts.Name)
		}
		if _, dup := seenAttrs[a.Name]; dup {
			return fmt.Errorf("schema: %s: duplicate attribute %s", ts.Name, a.Name)
		}
		seenAttrs[a.Name] = struct{}{}
	}
	rels := make([]domain.RelationshipDescriptor, 0, len(ts.Relationships))
	seenRels := make(map[string]struct{}, len(ts.Relationships))
	for _, rel := range ts.Relationships {
		if rel.Name == "" {
			return fmt.Errorf("schema: %s: relationship name required", ts.Name)
		}
		if _, dup := seenRels[rel.Name]; dup {
			return fmt.Errorf("schema: %s: duplicate relationship %s", ts.Name, rel.Name)
		}
		seenRels[rel.Name] = struct{}{}
		switch rel.Kind {
		case domain.RelationshipHasOne, domain.RelationshipHasMany:
			if rel.ForeignKey == "" && !rel.Indirect() {
				rel.ForeignKey = FieldName(ts.Name)
			}
		case domain.RelationshipBelongsTo:
			if rel.Indirect() {
				return fmt.Errorf("schema: %s.%s: belongs_to cannot be indirect", ts.Name, rel.Name)
			}
			if rel.ForeignKey == "" {
				rel.ForeignKey = FieldName(rel.Target)
			}
		default:
			return fmt.Errorf("schema: %s.%s: unknown relationship kind %q", ts.Name, rel.Name, rel.Kind)
		}
		rels = append(rels, rel)
	}
	ts.Relationships = rels
	ts.Attributes = slices.Clone(ts.Attributes)
	ts.Defaults = ts.Defaults.Clone()
	r.types[ts.Name] = ts
	r.order = append(r.order, ts.Name)
	return nil
}

// Validate checks every cross-type reference: relationship targets, foreign
// keys, through chains and default relationship lists.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var errs []error
	for _, name := range r.order {
		ts := r.types[name]
		for _, rel := range ts.Relationships {
			if err := r.validateRelationship(ts, rel); err != nil {
				errs = append(errs, err)
			}
		}
		for _, dup := range ts.Duplicable {
			if _, ok := ts.relationship(dup); !ok {
				errs = append(errs, fmt.Errorf("schema: %s: duplicable relationship %s not declared", ts.Name, dup))
			}
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) validateRelationship(owner TypeSchema, rel domain.RelationshipDescriptor) error {
	target, ok := r.types[rel.Target]
	if !ok {
		return fmt.Errorf("schema: %s.%s: unknown target type %s", owner.Name, rel.Name, rel.Target)
	}
	if rel.Indirect() {
		through, ok := owner.relationship(rel.Through)
		if !ok {
			return fmt.Errorf("schema: %s.%s: through relationship %s not declared", owner.Name, rel.Name, rel.Through)
		}
		mid, ok := r.types[through.Target]
		if !ok {
			return fmt.Errorf("schema: %s.%s: unknown intermediate type %s", owner.Name, rel.Name, through.Target)
		}
		source, ok := mid.relationship(rel.SourceName())
		if !ok {
			return fmt.Errorf("schema: %s.%s: source relationship %s not declared on %s", owner.Name, rel.Name, rel.SourceName(), mid.Name)
		}
		if source.Target != rel.Target {
			return fmt.Errorf("schema: %s.%s: source %s.%s targets %s, want %s", owner.Name, rel.Name, mid.Name, source.Name, source.Target, rel.Target)
		}
		return nil
	}
	if rel.Kind == domain.RelationshipBelongsTo {
		if _, ok := owner.attribute(rel.ForeignKey); !ok {
			return fmt.Errorf("schema: %s.%s: foreign key %s not an attribute of %s", owner.Name, rel.Name, rel.ForeignKey, owner.Name)
		}
		return nil
	}
	if _, ok := target.attribute(rel.ForeignKey); !ok {
		return fmt.Errorf("schema: %s.%s: foreign key %s not an attribute of %s", owner.Name, rel.Name, rel.ForeignKey, target.Name)
	}
	return nil
}

// Lookup returns the declaration of t.
func (r *Registry) Lookup(t domain.RecordType) (TypeSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ts, ok := r.types[t]
	return ts, ok
}

// Known reports whether t is registered.
func (r *Registry) Known(t domain.RecordType) bool {
	_, ok := r.Lookup(t)
	return ok
}

// Types lists registered types in registration order.
func (r *Registry) Types() []domain.RecordType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// RelationshipsOf implements domain.Schema.
func (r *Registry) RelationshipsOf(t domain.RecordType) []domain.RelationshipDescriptor {
	ts, ok := r.Lookup(t)
	if !ok {
		return nil
	}
	return slices.Clone(ts.Relationships)
}

// Relationship implements domain.Schema.
func (r *Registry) Relationship(t domain.RecordType, name string) (domain.RelationshipDescriptor, bool) {
	ts, ok := r.Lookup(t)
	if !ok {
		return domain.RelationshipDescriptor{}, false
	}
	return ts.relationship(name)
}

// DefaultRelationships implements domain.Schema.
func (r *Registry) DefaultRelationships(t domain.RecordType) []string {
	ts, ok := r.Lookup(t)
	if !ok || ts.Duplicable == nil {
		return nil
	}
	return slices.Clone(ts.Duplicable)
}

// DefaultOverridesFor implements domain.Schema.
func (r *Registry) DefaultOverridesFor(t domain.RecordType) (domain.Attributes, bool) {
	ts, ok := r.Lookup(t)
	if !ok || len(ts.Defaults) == 0 {
		return nil, false
	}
	return ts.Defaults.Clone(), true
}

// TypeFieldName implements domain.Schema.
func (r *Registry) TypeFieldName(t domain.RecordType) string { return FieldName(t) }

// Writable implements domain.Schema.
func (r *Registry) Writable(t domain.RecordType, name string) bool {
	ts, ok := r.Lookup(t)
	if !ok {
		return false
	}
	a, ok := ts.attribute(name)
	return ok && !a.ReadOnly
}

// ValidationRules returns the validator rules keyed by attribute for t.
func (r *Registry) ValidationRules(t domain.RecordType) map[string]any {
	ts, ok := r.Lookup(t)
	if !ok {
		return nil
	}
	rules := make(map[string]any)
	for _, a := range ts.Attributes {
		if a.Validate != "" {
			rules[a.Name] = a.Validate
		}
	}
	return rules
}
