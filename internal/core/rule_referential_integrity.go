package core

import (
	"context"
	"fmt"

	"deepcopy/pkg/domain"
)

const referentialIntegrityRuleName = "referential_integrity"

// NewReferentialIntegrityRule blocks commits that leave a belongs_to foreign
// key pointing at a record that does not exist: either a created or updated
// record referencing a missing owner, or a deleted owner that is still
// referenced.
func NewReferentialIntegrityRule(schema domain.Schema) Rule {
	return referentialIntegrityRule{schema: schema}
}

type referentialIntegrityRule struct {
	schema domain.Schema
}

func (referentialIntegrityRule) Name() string { return referentialIntegrityRuleName }

func (r referentialIntegrityRule) Evaluate(_ context.Context, view domain.TransactionView, changes []Change) (Result, error) {
	res := Result{}
	if r.schema == nil {
		return res, nil
	}
	deleted := make(map[domain.RecordType]map[string]struct{})
	for _, change := range changes {
		switch change.Action {
		case domain.ActionCreate, domain.ActionUpdate:
			if change.After == nil {
				continue
			}
			rec, ok := view.Find(change.After.Type, change.After.ID)
			if !ok {
				continue
			}
			r.checkOwners(&res, view, rec)
		case domain.ActionDelete:
			if change.Before == nil {
				continue
			}
			if deleted[change.Type] == nil {
				deleted[change.Type] = make(map[string]struct{})
			}
			deleted[change.Type][change.Before.ID] = struct{}{}
		}
	}
	if len(deleted) > 0 {
		r.checkDangling(&res, view, deleted)
	}
	return res, nil
}

func (r referentialIntegrityRule) checkOwners(res *Result, view domain.TransactionView, rec domain.Record) {
	for _, rel := range r.schema.RelationshipsOf(rec.Type) {
		if rel.Kind != domain.RelationshipBelongsTo {
			continue
		}
		id := foreignKeyValue(rec.Attributes[rel.ForeignKey])
		if id == "" {
			continue
		}
		if _, ok := view.Find(rel.Target, id); !ok {
			res.Violations = append(res.Violations, integrityViolation(rec.Ref(),
				fmt.Sprintf("%s %s references missing %s %s through %s", rec.Type, rec.ID, rel.Target, id, rel.ForeignKey)))
		}
	}
}

func (r referentialIntegrityRule) checkDangling(res *Result, view domain.TransactionView, deleted map[domain.RecordType]map[string]struct{}) {
	for _, t := range view.Types() {
		for _, rel := range r.schema.RelationshipsOf(t) {
			if rel.Kind != domain.RelationshipBelongsTo {
				continue
			}
			gone, ok := deleted[rel.Target]
			if !ok {
				continue
			}
			for _, rec := range view.List(t) {
				id := foreignKeyValue(rec.Attributes[rel.ForeignKey])
				if _, hit := gone[id]; hit {
					res.Violations = append(res.Violations, integrityViolation(rec.Ref(),
						fmt.Sprintf("%s %s still references deleted %s %s", rec.Type, rec.ID, rel.Target, id)))
				}
			}
		}
	}
}

func integrityViolation(ref domain.RecordRef, message string) Violation {
	return Violation{
		Rule:     referentialIntegrityRuleName,
		Severity: domain.SeverityBlock,
		Message:  message,
		Record:   ref,
	}
}

func foreignKeyValue(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	default:
		return fmt.Sprint(id)
	}
}
