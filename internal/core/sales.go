package core

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockroom/internal/codec"
	"stockroom/internal/logdetail"
	"stockroom/pkg/domain"
)

// SalesStore holds daily sales entries. Entry keys are time based and the
// total is always recomputed from quantity and unit price.
type SalesStore struct {
	*Table[domain.SalesEntry]
}

func newSalesStore(reg *Registry) *SalesStore {
	return &SalesStore{Table: newTable(reg, schema[domain.SalesEntry]{
		codec:    codec.Sales,
		key:      func(e domain.SalesEntry) string { return e.EntryID },
		setKey:   func(e *domain.SalesEntry, k string) { e.EntryID = k },
		strategy: keyTimed,
		prefix:   PrefixSale,
		prepare: func(e *domain.SalesEntry) error {
			e.ItemID = strings.TrimSpace(e.ItemID)
			e.ItemName = strings.TrimSpace(e.ItemName)
			e.SalesManagerID = strings.TrimSpace(e.SalesManagerID)
			if e.Date.IsZero() {
				e.Date = reg.clock.Now()
			}
			e.Date = codec.NormalizeDate(e.Date)
			if strings.TrimSpace(e.Category) == "" {
				e.Category = domain.CategoryForItem(e.ItemName)
			}
			if err := normalizeMoney(&e.PricePerUnit, "price"); err != nil {
				return err
			}
			e.TotalPrice = e.PricePerUnit.Mul(decimal.NewFromInt(int64(e.Quantity)))
			return nil
		},
		validate: func(e domain.SalesEntry) string {
			if problem := missing("item", e.ItemID, "item name", e.ItemName); problem != "" {
				return problem
			}
			if e.Quantity <= 0 {
				return "quantity must be positive"
			}
			if e.PricePerUnit.IsNegative() {
				return "price must not be negative"
			}
			return ""
		},
		audit: &auditTemplate[domain.SalesEntry]{
			noun:       "sales entry for item",
			createVerb: logdetail.VerbCreated,
			updateVerb: logdetail.VerbEdited,
			subject:    func(e domain.SalesEntry) string { return e.ItemID },
		},
	})}
}

// RecordSale adds a sales entry for itemCode, taking the name and unit price
// from the item catalogue. A zero date means today.
func (s *SalesStore) RecordSale(ctx context.Context, date time.Time, itemCode string, qty int, salesManagerID string) (domain.SalesEntry, error) {
	if qty <= 0 {
		return domain.SalesEntry{}, domain.NewError("record sale", domain.KindSalesEntry, "", domain.ErrInvalidInput, "quantity must be positive")
	}
	item, err := s.reg.items.Get(ctx, itemCode)
	if err != nil {
		return domain.SalesEntry{}, err
	}
	stored, err := s.add(ctx, domain.SalesEntry{
		Date:           date,
		ItemID:         item.ItemCode,
		ItemName:       item.ItemName,
		Quantity:       qty,
		PricePerUnit:   item.PricePerUnit,
		SalesManagerID: salesManagerID,
	})
	if err != nil {
		return domain.SalesEntry{}, err
	}
	s.auditRecord(ctx, domain.ActionCreate, logdetail.VerbCreated, stored)
	return stored, nil
}

// BySalesManager lists entries recorded by userID.
func (s *SalesStore) BySalesManager(ctx context.Context, userID string) ([]domain.SalesEntry, error) {
	return s.Filter(ctx, func(e domain.SalesEntry) bool { return e.SalesManagerID == userID })
}

// Between lists entries dated within [from, to], both inclusive.
func (s *SalesStore) Between(ctx context.Context, from, to time.Time) ([]domain.SalesEntry, error) {
	from, to = codec.NormalizeDate(from), codec.NormalizeDate(to)
	return s.Filter(ctx, func(e domain.SalesEntry) bool { return !e.Date.Before(from) && !e.Date.After(to) })
}
