package core

import (
	"context"
	"strings"

	"stockroom/internal/codec"
	"stockroom/internal/logdetail"
	"stockroom/pkg/domain"
)

// ItemStore holds catalogue items. An item name may appear once per supplier.
type ItemStore struct {
	*Table[domain.Item]
}

func newItemStore(reg *Registry) *ItemStore {
	return &ItemStore{Table: newTable(reg, schema[domain.Item]{
		codec:    codec.Items,
		key:      func(it domain.Item) string { return it.ItemCode },
		setKey:   func(it *domain.Item, k string) { it.ItemCode = k },
		strategy: keySequential,
		prefix:   PrefixItem,
		prepare: func(it *domain.Item) error {
			it.ItemName = strings.TrimSpace(it.ItemName)
			it.SupplierID = strings.TrimSpace(it.SupplierID)
			return normalizeMoney(&it.PricePerUnit, "price")
		},
		validate: validateItem,
		conflict: func(existing, candidate domain.Item) string {
			if strings.EqualFold(existing.ItemName, candidate.ItemName) && strings.EqualFold(existing.SupplierID, candidate.SupplierID) {
				return "item " + existing.ItemCode + " already uses this name for supplier " + existing.SupplierID
			}
			return ""
		},
		audit: &auditTemplate[domain.Item]{noun: "item", createVerb: logdetail.VerbAdded, updateVerb: logdetail.VerbUpdated},
	})}
}

func validateItem(it domain.Item) string {
	switch {
	case it.ItemName == "":
		return "item name is required"
	case it.SupplierID == "":
		return "supplier is required"
	case it.StockQuantity < 0:
		return "stock quantity must not be negative"
	case it.PricePerUnit.IsNegative():
		return "price must not be negative"
	}
	return ""
}

// BySupplier lists the items sourced from supplierID.
func (s *ItemStore) BySupplier(ctx context.Context, supplierID string) ([]domain.Item, error) {
	return s.Filter(ctx, func(it domain.Item) bool { return strings.EqualFold(it.SupplierID, supplierID) })
}

// Search lists items whose code or name contains term, case-insensitively.
func (s *ItemStore) Search(ctx context.Context, term string) ([]domain.Item, error) {
	needle := strings.ToLower(strings.TrimSpace(term))
	return s.Filter(ctx, func(it domain.Item) bool {
		return strings.Contains(strings.ToLower(it.ItemCode), needle) || strings.Contains(strings.ToLower(it.ItemName), needle)
	})
}
