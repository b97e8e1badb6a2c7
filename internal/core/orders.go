package core

import (
	"context"
	"fmt"
	"strings"

	"stockroom/internal/codec"
	"stockroom/internal/logdetail"
	"stockroom/pkg/domain"
)

const orderNoun = "purchase order"

// OrderStore holds purchase orders. New orders start Pending and dated today.
type OrderStore struct {
	*Table[domain.PurchaseOrder]
}

func newOrderStore(reg *Registry) *OrderStore {
	return &OrderStore{Table: newTable(reg, schema[domain.PurchaseOrder]{
		codec:    codec.Orders,
		key:      func(o domain.PurchaseOrder) string { return o.OrderID },
		setKey:   func(o *domain.PurchaseOrder, k string) { o.OrderID = k },
		strategy: keySequential,
		prefix:   PrefixOrder,
		prepare: func(o *domain.PurchaseOrder) error {
			o.ItemCode = strings.TrimSpace(o.ItemCode)
			o.ItemName = strings.TrimSpace(o.ItemName)
			o.SupplierID = strings.TrimSpace(o.SupplierID)
			if o.Status == "" {
				o.Status = domain.OrderPending
			}
			if o.OrderDate.IsZero() {
				o.OrderDate = reg.clock.Now()
			}
			o.OrderDate = codec.NormalizeDate(o.OrderDate)
			return nil
		},
		validate: func(o domain.PurchaseOrder) string {
			if problem := missing("item code", o.ItemCode, "item name", o.ItemName, "supplier", o.SupplierID); problem != "" {
				return problem
			}
			if o.Quantity < 0 {
				return "quantity must not be negative"
			}
			switch o.Status {
			case domain.OrderPending, domain.OrderCompleted, domain.OrderCancelled:
			default:
				return "status " + string(o.Status) + " is not recognised"
			}
			return ""
		},
		guard: func(existing domain.PurchaseOrder, candidate *domain.PurchaseOrder) error {
			if candidate.Status == "" {
				candidate.Status = existing.Status
			}
			if candidate.Status != existing.Status {
				return domain.NewError("update", domain.KindPurchaseOrder, existing.OrderID, domain.ErrInvalidStatus,
					fmt.Sprintf("order is %s, status changes only through complete or cancel", existing.Status))
			}
			return nil
		},
		audit: &auditTemplate[domain.PurchaseOrder]{noun: orderNoun, createVerb: logdetail.VerbAdded, updateVerb: logdetail.VerbUpdated},
	})}
}

// ByStatus lists orders in status.
func (s *OrderStore) ByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.PurchaseOrder, error) {
	return s.Filter(ctx, func(o domain.PurchaseOrder) bool { return o.Status == status })
}

// Completed lists the orders whose stock may be received.
func (s *OrderStore) Completed(ctx context.Context) ([]domain.PurchaseOrder, error) {
	return s.ByStatus(ctx, domain.OrderCompleted)
}

// Complete moves a Pending order to Completed.
func (s *OrderStore) Complete(ctx context.Context, orderID string) (domain.PurchaseOrder, error) {
	return s.transition(ctx, "complete", orderID, domain.OrderCompleted, logdetail.VerbCompleted)
}

// Cancel moves a Pending order to Cancelled.
func (s *OrderStore) Cancel(ctx context.Context, orderID string) (domain.PurchaseOrder, error) {
	return s.transition(ctx, "cancel", orderID, domain.OrderCancelled, logdetail.VerbCancelled)
}

func (s *OrderStore) transition(ctx context.Context, op, orderID string, to domain.OrderStatus, verb string) (domain.PurchaseOrder, error) {
	o, err := s.replace(ctx, op, orderID, func(cur domain.PurchaseOrder) (domain.PurchaseOrder, error) {
		if cur.Status != domain.OrderPending {
			return cur, domain.NewError(op, domain.KindPurchaseOrder, orderID, domain.ErrInvalidStatus,
				fmt.Sprintf("order is %s, only %s orders can change status", cur.Status, domain.OrderPending))
		}
		cur.Status = to
		return cur, nil
	})
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	s.reg.audit.record(ctx, domain.ActionUpdate, logdetail.Record(verb, orderNoun, orderID))
	return o, nil
}
