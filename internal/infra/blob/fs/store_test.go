package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"deepcopy/internal/blob/core"
)

func TestStoreLifecycle(t *testing.T) {
	root := filepath.Join(t.TempDir(), "blobs")
	store, err := New(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if store.Driver() != core.DriverFilesystem || store.Root() != root {
		t.Fatalf("unexpected store identity")
	}
	ctx := context.Background()
	key := "manifests/Project/c1.json"
	info, err := store.Put(ctx, key, strings.NewReader(`{"entries":[]}`), core.PutOptions{ContentType: "application/json", Metadata: map[string]string{"source": "Project:p1"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len(`{"entries":[]}`)) || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := os.Stat(filepath.Join(root, "manifests", "Project", "c1.json.meta")); err != nil {
		t.Fatalf("expected sidecar: %v", err)
	}
	if _, err := store.Put(ctx, key, bytes.NewReader(nil), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	got, rc, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != `{"entries":[]}` || got.Metadata["source"] != "Project:p1" || got.ContentType != "application/json" {
		t.Fatalf("unexpected get %q %+v", body, got)
	}
	head, err := store.Head(ctx, key)
	if err != nil || head.ETag != info.ETag {
		t.Fatalf("head: %+v %v", head, err)
	}

	if _, err := store.Put(ctx, "manifests/Task/c2.json", strings.NewReader("{}"), core.PutOptions{}); err != nil {
		t.Fatalf("put second: %v", err)
	}
	list, err := store.List(ctx, "manifests/Project/")
	if err != nil || len(list) != 1 || list[0].Key != key {
		t.Fatalf("list prefix: %+v %v", list, err)
	}
	all, err := store.List(ctx, "")
	if err != nil || len(all) != 2 {
		t.Fatalf("list all: %+v %v", all, err)
	}

	if ok, err := store.Delete(ctx, key); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, err := store.Delete(ctx, key); err != nil || ok {
		t.Fatalf("second delete: %v %v", ok, err)
	}
	if _, err := store.Head(ctx, key); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if _, _, err := store.Get(ctx, key); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected get not found, got %v", err)
	}
}

func TestStoreRejectsUnsafeKeys(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"", "  ", "/abs", "../escape", "a/../../b", "x.meta"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Fatalf("expected rejection for %q", key)
		}
		if _, err := store.Head(ctx, key); err == nil {
			t.Fatalf("expected head rejection for %q", key)
		}
		if _, err := store.Delete(ctx, key); err == nil {
			t.Fatalf("expected delete rejection for %q", key)
		}
	}
}

func TestStoreCorruptSidecar(t *testing.T) {
	root := t.TempDir()
	store, err := New(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	if _, err := store.Put(ctx, "k.json", strings.NewReader("{}"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "k.json.meta"), []byte("{"), 0o600); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	if _, err := store.Head(ctx, "k.json"); err == nil || errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
	if _, err := store.List(ctx, ""); err == nil {
		t.Fatalf("expected list to surface decode error")
	}
}
