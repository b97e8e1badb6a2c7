package core_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"stockroom/internal/codec"
	"stockroom/internal/core"
	"stockroom/internal/infra/persistence/memory"
	"stockroom/pkg/domain"
)

func milk() domain.Item {
	return domain.Item{ItemName: "Milk", SupplierID: "S1", StockQuantity: 50, PricePerUnit: decimal.RequireFromString("3.20")}
}

func TestAddThenFetchItem(t *testing.T) {
	reg := newRegistry(t, nil)
	ctx := context.Background()

	code, err := reg.Items().Add(ctx, milk())
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if code != "ITEM001" {
		t.Fatalf("expected ITEM001, got %s", code)
	}
	got, err := reg.Items().Get(ctx, code)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if got.ItemCode != "ITEM001" || got.ItemName != "Milk" || got.SupplierID != "S1" || got.StockQuantity != 50 {
		t.Fatalf("unexpected item: %+v", got)
	}
	if !got.PricePerUnit.Equal(decimal.RequireFromString("3.20")) {
		t.Fatalf("expected price 3.20, got %s", got.PricePerUnit)
	}

	entry := lastLog(t, reg)
	if entry.Action != domain.ActionCreate || entry.Details != "Added new item: ITEM001" {
		t.Fatalf("unexpected audit entry: %+v", entry)
	}
	if entry.UserID != domain.SystemActor.UserID {
		t.Fatalf("expected system actor, got %s", entry.UserID)
	}
}

func TestItemUniquenessLeavesStoreUnchanged(t *testing.T) {
	reg := newRegistry(t, nil)
	ctx := context.Background()
	if _, err := reg.Items().Add(ctx, milk()); err != nil {
		t.Fatalf("add item: %v", err)
	}
	logsBefore := logCount(t, reg)

	dup := milk()
	dup.ItemName = "  MILK "
	_, err := reg.Items().Add(ctx, dup)
	if !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	items, err := reg.Items().List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if logCount(t, reg) != logsBefore {
		t.Fatalf("rejected add must not be audited")
	}

	other := milk()
	other.SupplierID = "S2"
	if _, err := reg.Items().Add(ctx, other); err != nil {
		t.Fatalf("same name for another supplier should be accepted: %v", err)
	}
}

func TestItemValidation(t *testing.T) {
	reg := newRegistry(t, nil)
	ctx := context.Background()
	cases := []struct {
		name   string
		mutate func(*domain.Item)
	}{
		{"missing name", func(it *domain.Item) { it.ItemName = " " }},
		{"missing supplier", func(it *domain.Item) { it.SupplierID = "" }},
		{"negative quantity", func(it *domain.Item) { it.StockQuantity = -1 }},
		{"negative price", func(it *domain.Item) { it.PricePerUnit = decimal.RequireFromString("-0.01") }},
		{"sub-cent price", func(it *domain.Item) { it.PricePerUnit = decimal.RequireFromString("3.205") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			it := milk()
			tc.mutate(&it)
			_, err := reg.Items().Add(ctx, it)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
	items, _ := reg.Items().List(ctx)
	if len(items) != 0 {
		t.Fatalf("expected empty store, got %d items", len(items))
	}
}

func TestSequentialKeySkipsTakenCodes(t *testing.T) {
	seed := milk()
	seed.ItemCode = "ITEM002"
	store := memory.NewStoreFromSnapshot(memory.Snapshot{
		domain.KindItem: {codec.EncodeItem(seed)},
	})
	reg := newRegistry(t, store)

	bread := domain.Item{ItemName: "Bread", SupplierID: "S1", PricePerUnit: decimal.RequireFromString("1.50")}
	code, err := reg.Items().Add(context.Background(), bread)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if code != "ITEM003" {
		t.Fatalf("expected ITEM003 after collision with ITEM002, got %s", code)
	}
}

func TestCallerSuppliedKey(t *testing.T) {
	reg := newRegistry(t, nil)
	ctx := context.Background()
	it := milk()
	it.ItemCode = "ITEM900"
	code, err := reg.Items().Add(ctx, it)
	require.NoError(t, err)
	require.Equal(t, "ITEM900", code)

	again := milk()
	again.ItemCode = "ITEM900"
	again.SupplierID = "S9"
	_, err = reg.Items().Add(ctx, again)
	require.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestUpdateAndDeleteItem(t *testing.T) {
	reg := newRegistry(t, nil)
	ctx := context.Background()
	code, err := reg.Items().Add(ctx, milk())
	require.NoError(t, err)
	bread := domain.Item{ItemName: "Bread", SupplierID: "S1", PricePerUnit: decimal.RequireFromString("1.50")}
	breadCode, err := reg.Items().Add(ctx, bread)
	require.NoError(t, err)

	updated := milk()
	updated.ItemCode = code
	updated.StockQuantity = 75
	require.NoError(t, reg.Items().Update(ctx, updated))
	require.Equal(t, "Updated item: "+code, lastLog(t, reg).Details)
	require.Equal(t, domain.ActionUpdate, lastLog(t, reg).Action)

	clash := bread
	clash.ItemCode = code
	require.ErrorIs(t, reg.Items().Update(ctx, clash), domain.ErrDuplicate)

	missing := milk()
	missing.ItemCode = "ITEM404"
	err = reg.Items().Update(ctx, missing)
	require.ErrorIs(t, err, domain.ErrNotFound)
	var de *domain.Error
	require.True(t, errors.As(err, &de))
	require.Equal(t, "update", de.Op)
	require.Equal(t, domain.KindItem, de.Kind)
	require.Equal(t, "ITEM404", de.Key)

	require.NoError(t, reg.Items().Delete(ctx, breadCode))
	require.Equal(t, "Deleted item: "+breadCode, lastLog(t, reg).Details)
	require.Equal(t, domain.ActionDelete, lastLog(t, reg).Action)
	require.ErrorIs(t, reg.Items().Delete(ctx, breadCode), domain.ErrNotFound)

	got, err := reg.Items().Get(ctx, code)
	require.NoError(t, err)
	require.Equal(t, 75, got.StockQuantity)
}

func TestListingIsIdempotent(t *testing.T) {
	reg := newRegistry(t, nil)
	ctx := context.Background()
	for _, name := range []string{"Milk", "Bread", "Rice"} {
		it := milk()
		it.ItemName = name
		_, err := reg.Items().Add(ctx, it)
		require.NoError(t, err)
	}
	first, err := reg.Items().List(ctx)
	require.NoError(t, err)
	second, err := reg.Items().List(ctx)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, []string{"ITEM001", "ITEM002", "ITEM003"}, []string{first[0].ItemCode, first[1].ItemCode, first[2].ItemCode})

	empty, err := reg.Suppliers().List(ctx)
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)
}

func TestItemFilters(t *testing.T) {
	reg := newRegistry(t, nil)
	ctx := context.Background()
	_, err := reg.Items().Add(ctx, milk())
	require.NoError(t, err)
	_, err = reg.Items().Add(ctx, domain.Item{ItemName: "Brown Bread", SupplierID: "S2"})
	require.NoError(t, err)

	bySupplier, err := reg.Items().BySupplier(ctx, "s2")
	require.NoError(t, err)
	require.Len(t, bySupplier, 1)
	require.Equal(t, "Brown Bread", bySupplier[0].ItemName)

	found, err := reg.Items().Search(ctx, "bread")
	require.NoError(t, err)
	require.Len(t, found, 1)
	found, err = reg.Items().Search(ctx, "item00")
	require.NoError(t, err)
	require.Len(t, found, 2)
}

func TestFailedSaveLeavesTableUntouched(t *testing.T) {
	store := newFailingStore(domain.KindItem)
	logger := &recordingLogger{}
	reg := newRegistry(t, store, core.WithLogger(logger))
	ctx := context.Background()

	_, err := reg.Items().Add(ctx, milk())
	require.ErrorIs(t, err, domain.ErrIO)
	require.ErrorIs(t, err, errDiskFull)
	items, err := reg.Items().List(ctx)
	require.NoError(t, err)
	require.Empty(t, items)
	require.Equal(t, 0, logCount(t, reg))
	require.Equal(t, 1, logger.count("error", "store operation failed"))

	store.setFailing(domain.KindItem, false)
	code, err := reg.Items().Add(ctx, milk())
	require.NoError(t, err)
	require.Equal(t, "ITEM001", code)
}
