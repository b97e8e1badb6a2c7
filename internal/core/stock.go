package core

import (
	"context"
	"fmt"
	"strings"

	"stockroom/internal/codec"
	"stockroom/internal/logdetail"
	"stockroom/pkg/domain"
)

// StockStore holds one stock level per item code. Status is recomputed from
// quantity on every write.
type StockStore struct {
	*Table[domain.Stock]
}

func newStockStore(reg *Registry) *StockStore {
	return &StockStore{Table: newTable(reg, schema[domain.Stock]{
		codec:    codec.Stock,
		key:      func(s domain.Stock) string { return s.ItemCode },
		setKey:   func(s *domain.Stock, k string) { s.ItemCode = k },
		strategy: keyProvided,
		prepare: func(s *domain.Stock) error {
			s.ItemName = strings.TrimSpace(s.ItemName)
			s.Status = domain.DeriveStockStatus(s.Quantity)
			if s.LastUpdated.IsZero() {
				s.LastUpdated = reg.clock.Now()
			}
			s.LastUpdated = codec.NormalizeTimestamp(s.LastUpdated)
			return nil
		},
		validate: func(s domain.Stock) string {
			if problem := missing("item name", s.ItemName); problem != "" {
				return problem
			}
			if s.Quantity < 0 {
				return "quantity must not be negative"
			}
			return ""
		},
		audit: &auditTemplate[domain.Stock]{noun: "stock", createVerb: logdetail.VerbAdded, updateVerb: logdetail.VerbUpdated},
	})}
}

// LowStock lists stock below domain.LowStockThreshold, out-of-stock included.
func (s *StockStore) LowStock(ctx context.Context) ([]domain.Stock, error) {
	return s.Filter(ctx, func(st domain.Stock) bool { return st.Quantity < domain.LowStockThreshold })
}

// ByStatus lists stock with the given derived status.
func (s *StockStore) ByStatus(ctx context.Context, status domain.StockStatus) ([]domain.Stock, error) {
	return s.Filter(ctx, func(st domain.Stock) bool { return st.Status == status })
}

// StockService changes stock quantities. Each successful call persists the new
// quantity and status and appends exactly one Update audit entry describing
// the change.
type StockService struct {
	reg *Registry
}

// SetQuantity overwrites the quantity of itemCode.
func (s *StockService) SetQuantity(ctx context.Context, itemCode string, qty int) (domain.Stock, error) {
	const op = "set quantity"
	if qty < 0 {
		return domain.Stock{}, domain.NewError(op, domain.KindStock, itemCode, domain.ErrInvalidInput, "quantity must not be negative")
	}
	st, err := s.reg.stock.replace(ctx, op, itemCode, func(cur domain.Stock) (domain.Stock, error) {
		cur.Quantity = qty
		cur.LastUpdated = s.reg.clock.Now()
		return cur, nil
	})
	if err != nil {
		return domain.Stock{}, err
	}
	s.reg.audit.record(ctx, domain.ActionUpdate, logdetail.StockSet(itemCode, qty))
	return st, nil
}

// Adjust applies a signed manual correction. A reason is required and the
// resulting quantity must not be negative.
func (s *StockService) Adjust(ctx context.Context, itemCode string, delta int, reason string) (domain.Stock, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Stock{}, domain.NewError("adjust", domain.KindStock, itemCode, domain.ErrInvalidInput, "a reason is required for manual adjustments")
	}
	return s.apply(ctx, "adjust", itemCode, delta, logdetail.Adjustment(itemCode, delta, reason))
}

// ConfirmReceipt adds the quantity of a Completed purchase order to stock.
// The order status is left unchanged. Orders in any other status fail with
// domain.ErrInvalidStatus and stock is not touched.
func (s *StockService) ConfirmReceipt(ctx context.Context, orderID string) (domain.Stock, error) {
	const op = "confirm receipt"
	order, err := s.reg.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Stock{}, err
	}
	if order.Status != domain.OrderCompleted {
		return domain.Stock{}, domain.NewError(op, domain.KindPurchaseOrder, orderID, domain.ErrInvalidStatus,
			fmt.Sprintf("order is %s, only %s orders can be received", order.Status, domain.OrderCompleted))
	}
	if order.Quantity < 0 {
		return domain.Stock{}, domain.NewError(op, domain.KindPurchaseOrder, orderID, domain.ErrInvalidInput, "order quantity is negative")
	}
	return s.apply(ctx, op, order.ItemCode, order.Quantity, logdetail.Receipt(order.ItemCode, order.Quantity))
}

func (s *StockService) apply(ctx context.Context, op, itemCode string, delta int, detail logdetail.Detail) (domain.Stock, error) {
	st, err := s.reg.stock.replace(ctx, op, itemCode, func(cur domain.Stock) (domain.Stock, error) {
		next := cur.Quantity + delta
		if next < 0 {
			return cur, domain.NewError(op, domain.KindStock, itemCode, domain.ErrInvalidInput,
				fmt.Sprintf("quantity %d with change %d would be negative", cur.Quantity, delta))
		}
		cur.Quantity = next
		cur.LastUpdated = s.reg.clock.Now()
		return cur, nil
	})
	if err != nil {
		return domain.Stock{}, err
	}
	s.reg.audit.record(ctx, domain.ActionUpdate, detail)
	return st, nil
}
