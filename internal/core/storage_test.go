package core

import (
	"context"
	"path/filepath"
	"testing"

	"deepcopy/internal/infra/persistence/memory"
	"deepcopy/internal/infra/persistence/sqlite"
	"deepcopy/internal/schema/schematest"
	"deepcopy/pkg/domain"
)

func TestOpenPersistentStoreMemory(t *testing.T) {
	t.Setenv("DEEPCOPY_STORAGE_DRIVER", "memory")
	reg := schematest.Projects(t)
	store, err := OpenPersistentStore(reg, NewDefaultRulesEngine(reg))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("expected *memory.Store, got %T", store)
	}
}

func TestOpenPersistentStoreDefaultSQLite(t *testing.T) {
	t.Setenv("DEEPCOPY_STORAGE_DRIVER", "")
	path := filepath.Join(t.TempDir(), "plan.db")
	t.Setenv("DEEPCOPY_SQLITE_PATH", path)
	reg := schematest.Projects(t)
	store, err := OpenPersistentStore(reg, NewDefaultRulesEngine(reg))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ss, ok := store.(*sqlite.Store)
	if !ok {
		t.Fatalf("expected *sqlite.Store, got %T", store)
	}
	defer func() { _ = ss.Close() }()
	if ss.Path() != path {
		t.Fatalf("unexpected path %s", ss.Path())
	}

	svc := NewService(store)
	seed(t, store, planRecords())
	if _, _, err := svc.DuplicateRecord(context.Background(), "Project", "p1", domain.DuplicateOptions{}); err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	_ = ss.Close()

	reopened, err := sqlite.NewStore(path, reg, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	if got := len(reopened.List("Project")); got != 2 {
		t.Fatalf("expected original and copy after reload, got %d projects", got)
	}
}

func TestOpenPersistentStoreUnknownDriver(t *testing.T) {
	t.Setenv("DEEPCOPY_STORAGE_DRIVER", "cassandra")
	if _, err := OpenPersistentStore(nil, nil); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
