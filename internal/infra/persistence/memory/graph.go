package memory

import (
	"context"
	"fmt"

	"deepcopy/pkg/domain"
)

// RelatedRecords resolves a declared relationship of r against the
// transaction state. Results follow insertion order of the target type.
func (tx *transaction) RelatedRecords(ctx context.Context, r Record, name string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if tx.store.schema == nil {
		return nil, fmt.Errorf("resolve %s.%s: store has no schema", r.Type, name)
	}
	rel, ok := tx.store.schema.Relationship(r.Type, name)
	if !ok {
		return nil, fmt.Errorf("relationship %s not declared on %s", name, r.Type)
	}
	var out []Record
	switch {
	case rel.Indirect():
		mids, err := tx.RelatedRecords(ctx, r, rel.Through)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]struct{})
		for _, mid := range mids {
			targets, err := tx.RelatedRecords(ctx, mid, rel.SourceName())
			if err != nil {
				return nil, err
			}
			for _, target := range targets {
				if _, dup := seen[target.ID]; dup {
					continue
				}
				seen[target.ID] = struct{}{}
				out = append(out, target)
			}
		}
	case rel.Kind == domain.RelationshipBelongsTo:
		id := idValue(r.Attributes[rel.ForeignKey])
		if id == "" {
			return nil, nil
		}
		owner, ok := tx.state.find(rel.Target, id)
		if !ok {
			return nil, domain.ErrNotFound{Type: rel.Target, ID: id}
		}
		out = append(out, owner)
	default:
		if r.ID == "" {
			return nil, nil
		}
		for _, candidate := range tx.state.list(rel.Target) {
			if idValue(candidate.Attributes[rel.ForeignKey]) == r.ID {
				out = append(out, candidate)
			}
		}
	}
	if rel.Cardinality() == domain.CardinalityOne && len(out) > 1 {
		out = out[:1]
	}
	return out, nil
}

// idValue normalises a foreign-key attribute to its string form.
func idValue(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case fmt.Stringer:
		return id.String()
	default:
		return fmt.Sprint(id)
	}
}
