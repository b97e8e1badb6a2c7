package core

import (
	"context"
	"errors"

	"stockroom/pkg/domain"
)

// Sentinels returned when a referenced record cannot be resolved.
const (
	UnknownItem  = "Unknown Item"
	NotAvailable = "N/A"
)

// Resolver turns foreign keys into display names. Lookups never fail: a
// missing or unreadable record yields a sentinel so a listing with a dangling
// reference still renders.
type Resolver struct {
	reg *Registry
}

// ResolveItemName returns the item's name or UnknownItem.
func (r *Resolver) ResolveItemName(ctx context.Context, itemCode string) string {
	it, err := r.reg.items.Get(ctx, itemCode)
	if err != nil {
		r.miss("item", itemCode, err)
		return UnknownItem
	}
	return it.ItemName
}

// ResolveSupplierName returns the supplier's name, or supplierID itself when
// the supplier is not on file.
func (r *Resolver) ResolveSupplierName(ctx context.Context, supplierID string) string {
	s, err := r.reg.suppliers.Get(ctx, supplierID)
	if err != nil {
		r.miss("supplier", supplierID, err)
		return supplierID
	}
	return s.SupplierName
}

// ResolveUsername returns the user's username or NotAvailable.
func (r *Resolver) ResolveUsername(ctx context.Context, userID string) string {
	u, err := r.reg.users.Get(ctx, userID)
	if err != nil {
		r.miss("user", userID, err)
		return NotAvailable
	}
	return u.Username
}

// ResolveItemSupplier returns the supplier name of the item's supplier.
func (r *Resolver) ResolveItemSupplier(ctx context.Context, itemCode string) string {
	it, err := r.reg.items.Get(ctx, itemCode)
	if err != nil {
		r.miss("item", itemCode, err)
		return NotAvailable
	}
	return r.ResolveSupplierName(ctx, it.SupplierID)
}

// RequisitionRow is a requisition with its references resolved for display.
type RequisitionRow struct {
	domain.PurchaseRequisition
	ResolvedItemName string
	SalesManagerName string
	SupplierName     string
}

// RequisitionRows lists every requisition with item, sales manager and
// supplier names resolved. Only a failure to list requisitions is returned.
func (r *Resolver) RequisitionRows(ctx context.Context) ([]RequisitionRow, error) {
	reqs, err := r.reg.requisitions.List(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]RequisitionRow, 0, len(reqs))
	for _, req := range reqs {
		rows = append(rows, RequisitionRow{
			PurchaseRequisition: req,
			ResolvedItemName:    r.ResolveItemName(ctx, req.ItemCode),
			SalesManagerName:    r.ResolveUsername(ctx, req.SalesManagerID),
			SupplierName:        r.ResolveItemSupplier(ctx, req.ItemCode),
		})
	}
	return rows, nil
}

func (r *Resolver) miss(what, key string, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		r.reg.logger.Debug("reference not found", "kind", what, "key", key)
		return
	}
	r.reg.logger.Warn("reference lookup failed", "kind", what, "key", key, "error", err)
}
