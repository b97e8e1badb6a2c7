package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"stockroom/pkg/domain"
)

func TestStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "stock.db")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Save(ctx, domain.KindStock, []string{"ITEM001,Milk,5,Aisle 1,,LowStock"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, domain.KindStock, []string{"ITEM001,Milk,25,Aisle 1,,InStock", "ITEM002,Rice,0,Aisle 2,,OutOfStock"}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	got, err := reopened.Load(ctx, domain.KindStock)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[0] != "ITEM001,Milk,25,Aisle 1,,InStock" {
		t.Fatalf("unexpected lines %q", got)
	}
	if reopened.Path() != path {
		t.Fatalf("path mismatch: %s", reopened.Path())
	}
}

func TestStoreLoadUnknownKind(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "empty.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()
	got, err := store.Load(context.Background(), domain.KindUser)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestStoreEmptyTable(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(filepath.Join(t.TempDir(), "t.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()
	if err := store.Save(ctx, domain.KindItem, nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(ctx, domain.KindItem)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty table, got %v", got)
	}
	var n int
	if err := store.DB().QueryRow(`SELECT COUNT(*) FROM record_tables`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one row, got %d", n)
	}
}

func TestStoreSaveCancelledContext(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "c.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.Save(ctx, domain.KindItem, []string{"x"}); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}
