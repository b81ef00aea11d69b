package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"deepcopy/internal/schema/schematest"
	"deepcopy/pkg/domain"
)

func newProjectStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(schematest.Projects(t), nil)
}

func TestStoreRunInTransactionAndSnapshots(t *testing.T) {
	store := newProjectStore(t)
	ctx := context.Background()
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, ok := tx.Find("Project", "missing"); ok {
			t.Fatalf("expected missing project lookup")
		}
		created, err := tx.Create(domain.Record{Type: "Project", Attributes: domain.Attributes{"name": "Apollo"}})
		if err != nil {
			return err
		}
		if created.ID == "" {
			t.Fatalf("expected generated ID")
		}
		if created.CreatedAt.IsZero() || !created.CreatedAt.Equal(created.UpdatedAt) {
			t.Fatalf("expected creation timestamps, got %+v", created)
		}
		view := tx.Snapshot()
		if len(view.List("Project")) != 1 {
			t.Fatalf("snapshot mismatch")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run transaction: %v", err)
	}
	if len(store.List("Project")) != 1 {
		t.Fatalf("expected persisted project")
	}
	snapshot := store.ExportState()
	store.ImportState(Snapshot{})
	if len(store.List("Project")) != 0 {
		t.Fatalf("expected cleared state")
	}
	store.ImportState(snapshot)
	if len(store.List("Project")) != 1 {
		t.Fatalf("expected restored state")
	}
	if store.RulesEngine() == nil {
		t.Fatalf("expected rules engine")
	}
	if store.Schema() == nil {
		t.Fatalf("expected schema")
	}
}

func TestStoreRollsBackOnError(t *testing.T) {
	store := newProjectStore(t)
	boom := errors.New("boom")
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.Create(domain.Record{Type: "Project", Attributes: domain.Attributes{"name": "Apollo"}}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(store.List("Project")) != 0 {
		t.Fatalf("expected rollback")
	}
}

type blockingRule struct{}

func (blockingRule) Name() string { return "block" }

func (blockingRule) Evaluate(_ context.Context, _ domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	if len(changes) == 0 {
		return domain.Result{}, nil
	}
	return domain.Result{Violations: []domain.Violation{{Rule: "block", Severity: domain.SeverityBlock, Message: "no writes"}}}, nil
}

func TestStoreRuleViolation(t *testing.T) {
	store := newProjectStore(t)
	store.RulesEngine().Register(blockingRule{})
	res, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.Create(domain.Record{Type: "Project", Attributes: domain.Attributes{"name": "Fail"}})
		return e
	})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	if !res.HasBlocking() {
		t.Fatalf("expected blocking result")
	}
	if len(store.List("Project")) != 0 {
		t.Fatalf("blocked transaction must not commit")
	}
}

func TestTransactionCRUD(t *testing.T) {
	store := newProjectStore(t)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store.SetNowFunc(func() time.Time { return fixed })
	ctx := context.Background()

	var id string
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		p, err := tx.Create(domain.Record{Type: "Project", ID: "p1", Attributes: domain.Attributes{"name": "Apollo"}})
		if err != nil {
			return err
		}
		id = p.ID
		if _, err := tx.Create(domain.Record{Type: "Project", ID: "p1"}); err == nil {
			t.Fatalf("expected duplicate id error")
		}
		if _, err := tx.Create(domain.Record{Type: "Spaceship"}); !errors.Is(err, ErrUnknownType) {
			t.Fatalf("expected unknown type error, got %v", err)
		}
		return nil
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if id != "p1" {
		t.Fatalf("expected caller-supplied id, got %s", id)
	}

	later := fixed.Add(time.Hour)
	store.SetNowFunc(func() time.Time { return later })
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		updated, err := tx.Update("Project", id, func(r *domain.Record) error {
			r.ID = "hijack"
			r.Set("status", "active")
			return nil
		})
		if err != nil {
			return err
		}
		if updated.ID != id || !updated.CreatedAt.Equal(fixed) || !updated.UpdatedAt.Equal(later) {
			t.Fatalf("unexpected update result %+v", updated)
		}
		if _, err := tx.Update("Project", "missing", func(*domain.Record) error { return nil }); err == nil {
			t.Fatalf("expected not found on update")
		}
		mutErr := errors.New("mutator")
		if _, err := tx.Update("Project", id, func(*domain.Record) error { return mutErr }); !errors.Is(err, mutErr) {
			t.Fatalf("expected mutator error, got %v", err)
		}
		return nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, ok := store.Get("Project", id)
	if !ok || got.Attributes["status"] != "active" {
		t.Fatalf("expected updated project, got %+v", got)
	}

	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var nf domain.ErrNotFound
		if err := tx.Delete("Project", "missing"); !errors.As(err, &nf) {
			t.Fatalf("expected not found, got %v", err)
		}
		return tx.Delete("Project", id)
	}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := store.Get("Project", id); ok {
		t.Fatalf("expected project removed")
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	store := newProjectStore(t)
	ctx := context.Background()
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.Create(domain.Record{Type: "Project", ID: "p1", Attributes: domain.Attributes{"name": "Apollo"}})
		return err
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, _ := store.Get("Project", "p1")
	got.Set("name", "mutated")
	again, _ := store.Get("Project", "p1")
	if again.Attributes["name"] != "Apollo" {
		t.Fatalf("store state leaked through returned record")
	}
	err := store.View(ctx, func(view domain.TransactionView) error {
		if types := view.Types(); len(types) != 1 || types[0] != "Project" {
			t.Fatalf("unexpected types %v", types)
		}
		if _, ok := view.Find("Project", "p1"); !ok {
			t.Fatalf("expected project in view")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestListKeepsInsertionOrder(t *testing.T) {
	store := newProjectStore(t)
	ids := []string{"c", "a", "b"}
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		for _, id := range ids {
			if _, err := tx.Create(domain.Record{Type: "Person", ID: id}); err != nil {
				return err
			}
		}
		return tx.Delete("Person", "a")
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	got := store.List("Person")
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "b" {
		t.Fatalf("unexpected order %+v", got)
	}
	snapshot := store.ExportState()
	restored := newProjectStore(t)
	restored.ImportState(snapshot)
	again := restored.List("Person")
	if len(again) != 2 || again[0].ID != "c" || again[1].ID != "b" {
		t.Fatalf("snapshot lost order %+v", again)
	}
}

func TestImportStateSkipsRecordsWithoutID(t *testing.T) {
	store := newProjectStore(t)
	store.ImportState(Snapshot{Records: map[domain.RecordType][]domain.Record{
		"Person": {{ID: "p1"}, {Attributes: domain.Attributes{"name": "ghost"}}},
	}})
	people := store.List("Person")
	if len(people) != 1 || people[0].Type != "Person" || people[0].Attributes == nil {
		t.Fatalf("unexpected import result %+v", people)
	}
}
