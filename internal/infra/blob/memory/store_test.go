package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"stockroom/internal/blob/core"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	if s.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver %s", s.Driver())
	}
	md := map[string]string{"kind": "items"}
	info, err := s.Put(ctx, "snapshots/a/items.txt", strings.NewReader("ITEM001,Milk,SUP001,1,1.00\n"), core.PutOptions{ContentType: "text/plain", Metadata: md})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	md["kind"] = "mutated"
	if info.Size != 27 || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := s.Put(ctx, "snapshots/a/items.txt", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if _, err := s.Put(ctx, "snapshots/b/users.txt", strings.NewReader(""), core.PutOptions{}); err != nil {
		t.Fatalf("put second: %v", err)
	}

	got, rc, err := s.Get(ctx, "snapshots/a/items.txt")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "ITEM001,Milk,SUP001,1,1.00\n" || got.Metadata["kind"] != "items" {
		t.Fatalf("unexpected content %q / %+v", body, got.Metadata)
	}

	list, err := s.List(ctx, "snapshots/a/")
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v %+v", err, list)
	}
	all, _ := s.List(ctx, "")
	if len(all) != 2 || all[0].Key > all[1].Key {
		t.Fatalf("expected two sorted entries, got %+v", all)
	}

	if ok, _ := s.Delete(ctx, "snapshots/a/items.txt"); !ok {
		t.Fatalf("expected delete to report existing blob")
	}
	if ok, _ := s.Delete(ctx, "snapshots/a/items.txt"); ok {
		t.Fatalf("second delete should report missing")
	}
	if _, _, err := s.Get(ctx, "snapshots/a/items.txt"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Put(ctx, "k", strings.NewReader("v"), core.PutOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
