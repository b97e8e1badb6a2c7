package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestDeriveStockStatus(t *testing.T) {
	for q := 0; q <= 25; q++ {
		got := DeriveStockStatus(q)
		var want StockStatus
		switch {
		case q == 0:
			want = StockOutOfStock
		case q < 10:
			want = StockLowStock
		default:
			want = StockInStock
		}
		if got != want {
			t.Fatalf("quantity %d: expected %s, got %s", q, want, got)
		}
	}
}

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"Administrator":     RoleAdministrator,
		"admin":             RoleAdministrator,
		"Inventory Manager": RoleInventoryManager,
		"purchase_manager":  RolePurchaseManager,
		"finance":           RoleFinanceManager,
		" SalesManager ":    RoleSalesManager,
	}
	for raw, want := range cases {
		got, ok := ParseRole(raw)
		if !ok || got != want {
			t.Fatalf("ParseRole(%q) = %s, %v", raw, got, ok)
		}
	}
	if _, ok := ParseRole("janitor"); ok {
		t.Fatalf("unexpected role accepted")
	}
	if Role("admin").Valid() {
		t.Fatalf("aliases are not canonical roles")
	}
}

func TestCategoryForItem(t *testing.T) {
	cases := map[string]string{
		"Whole Milk":    "Dairy",
		"Brown Rice":    "Grains",
		"Green Apple":   "Fruits",
		"Baby Spinach":  "Vegetables",
		"Salmon Fillet": "Meat & Seafood",
		"Dish Soap":     "General",
	}
	for name, want := range cases {
		if got := CategoryForItem(name); got != want {
			t.Fatalf("%s: expected %s, got %s", name, want, got)
		}
	}
}

func TestKindsHaveLabels(t *testing.T) {
	for _, k := range Kinds() {
		if k.Label() == string(k) {
			t.Fatalf("kind %s has no label", k)
		}
	}
}

func TestErrorCarriesContext(t *testing.T) {
	cause := errors.New("permission denied")
	err := fmt.Errorf("wrapped: %w", NewError("update", KindItem, "ITEM001", ErrIO, "").WithCause(cause))
	if !errors.Is(err, ErrIO) || !errors.Is(err, cause) {
		t.Fatalf("expected category and cause to match: %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("unexpected category match")
	}
	msg := err.Error()
	for _, part := range []string{"update", "item", "ITEM001", "storage unavailable", "permission denied"} {
		if !strings.Contains(msg, part) {
			t.Fatalf("message %q missing %q", msg, part)
		}
	}
	if !IsNotFound(NewError("get", KindUser, "USR9", ErrNotFound, "")) {
		t.Fatalf("IsNotFound should match")
	}
}

func TestCorruptRecordError(t *testing.T) {
	err := error(&CorruptRecordError{Kind: KindStock, Line: 4, Reason: "bad quantity"})
	if !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("expected corrupt record match")
	}
	if got := err.Error(); got != "corrupt stock record at line 4: bad quantity" {
		t.Fatalf("unexpected message %q", got)
	}
}
