package core

import (
	"context"
	"testing"
	"time"

	"deepcopy/internal/infra/persistence/memory"
	"deepcopy/internal/schema/schematest"
	"deepcopy/pkg/domain"
)

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// planRecords is a project with two milestones. m1 has two tasks and a review
// with a checklist; m2 has a review and no tasks.
func planRecords() []domain.Record {
	return []domain.Record{
		{Type: "Person", ID: "u1", Attributes: domain.Attributes{"name": "Ada"}},
		{Type: "Project", ID: "p1", Attributes: domain.Attributes{"name": "Apollo", "status": "active", "owner_id": "u1"}},
		{Type: "Milestone", ID: "m1", Attributes: domain.Attributes{"title": "Design", "project_id": "p1"}},
		{Type: "Milestone", ID: "m2", Attributes: domain.Attributes{"title": "Build", "project_id": "p1"}},
		{Type: "Task", ID: "t1", Attributes: domain.Attributes{"title": "Sketch", "milestone_id": "m1", "project_id": "p1"}},
		{Type: "Task", ID: "t2", Attributes: domain.Attributes{"title": "Review", "milestone_id": "m1", "project_id": "p1"}},
		{Type: "Review", ID: "r1", Attributes: domain.Attributes{"verdict": "ok", "milestone_id": "m1"}},
		{Type: "Review", ID: "r2", Attributes: domain.Attributes{"verdict": "pending", "milestone_id": "m2"}},
		{Type: "Checklist", ID: "c1", Attributes: domain.Attributes{"items": "a,b", "review_id": "r1"}},
		{Type: "Charter", ID: "h1", Attributes: domain.Attributes{"body": "Go", "project_id": "p1", "signed_at": "2024-01-01"}},
	}
}

func newPlanStore(t *testing.T, extra ...domain.Record) *memory.Store {
	t.Helper()
	reg := schematest.Projects(t)
	store := memory.NewStore(reg, NewDefaultRulesEngine(reg))
	seed(t, store, append(planRecords(), extra...))
	return store
}

func newPlanService(t *testing.T, opts ...ServiceOption) *Service {
	t.Helper()
	return NewService(newPlanStore(t), opts...)
}

func seed(t *testing.T, store domain.PersistentStore, records []domain.Record) {
	t.Helper()
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		for _, r := range records {
			if _, err := tx.Create(r); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func countRecords(store domain.PersistentStore) int {
	n := 0
	_ = store.View(context.Background(), func(v domain.TransactionView) error {
		for _, t := range v.Types() {
			n += len(v.List(t))
		}
		return nil
	})
	return n
}

func sourceIDs(dup domain.Duplication) []string {
	out := make([]string, len(dup.Entries))
	for i, e := range dup.Entries {
		out[i] = e.Source.ID
	}
	return out
}

func names(rels []domain.RelationshipDescriptor) []string {
	out := make([]string, len(rels))
	for i, r := range rels {
		out[i] = r.Name
	}
	return out
}
