package core

import "deepcopy/pkg/domain"

// orderRelationships moves indirect relationships behind direct ones,
// preserving relative order within each group. Join records reached through a
// direct relationship are then copied, and their identifiers recorded, before
// any through relationship is followed.
func orderRelationships(rels []domain.RelationshipDescriptor) []domain.RelationshipDescriptor {
	ordered := make([]domain.RelationshipDescriptor, 0, len(rels))
	var deferred []domain.RelationshipDescriptor
	for _, rel := range rels {
		if rel.Indirect() {
			deferred = append(deferred, rel)
			continue
		}
		ordered = append(ordered, rel)
	}
	return append(ordered, deferred...)
}
