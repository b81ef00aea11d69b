package core

import (
	"slices"

	"deepcopy/pkg/domain"
)

// duplicable reports whether copying a relationship produces owned child
// records. has_many through would only add join-table rows and belongs_to
// points outward, so both are skipped.
func duplicable(rel domain.RelationshipDescriptor) bool {
	switch rel.Kind {
	case domain.RelationshipHasOne:
		return true
	case domain.RelationshipHasMany:
		return !rel.Indirect()
	default:
		return false
	}
}

// classifyRelationships selects the relationships of t that a duplication
// follows, in declaration order.
//
// An explicit include list wins over exclude. Without one, the type's
// declared default list (when it has one) narrows the selection and exclude
// is applied on top of it.
func classifyRelationships(schema domain.Schema, t domain.RecordType, include, exclude []string) []domain.RelationshipDescriptor {
	all := schema.RelationshipsOf(t)
	selected := make([]domain.RelationshipDescriptor, 0, len(all))
	allowed := include
	if len(allowed) == 0 {
		allowed = schema.DefaultRelationships(t)
	} else {
		exclude = nil
	}
	for _, rel := range all {
		if !duplicable(rel) {
			continue
		}
		if allowed != nil && !slices.Contains(allowed, rel.Name) {
			continue
		}
		if slices.Contains(exclude, rel.Name) {
			continue
		}
		selected = append(selected, rel)
	}
	return selected
}
