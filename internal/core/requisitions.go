package core

import (
	"context"
	"fmt"
	"strings"

	"stockroom/internal/codec"
	"stockroom/internal/logdetail"
	"stockroom/pkg/domain"
)

const requisitionNoun = "purchase requisition"

// RequisitionStore holds purchase requisitions raised by sales managers.
type RequisitionStore struct {
	*Table[domain.PurchaseRequisition]
}

func newRequisitionStore(reg *Registry) *RequisitionStore {
	return &RequisitionStore{Table: newTable(reg, schema[domain.PurchaseRequisition]{
		codec:    codec.Requisitions,
		key:      func(r domain.PurchaseRequisition) string { return r.RequisitionID },
		setKey:   func(r *domain.PurchaseRequisition, k string) { r.RequisitionID = k },
		strategy: keySequential,
		prefix:   PrefixRequisition,
		prepare: func(r *domain.PurchaseRequisition) error {
			r.ItemCode = strings.TrimSpace(r.ItemCode)
			r.ItemName = strings.TrimSpace(r.ItemName)
			r.SalesManagerID = strings.TrimSpace(r.SalesManagerID)
			if r.Status == "" {
				r.Status = domain.RequisitionPending
			}
			if !r.RequiredDate.IsZero() {
				r.RequiredDate = codec.NormalizeDate(r.RequiredDate)
			}
			return nil
		},
		validate: func(r domain.PurchaseRequisition) string {
			if problem := missing("item code", r.ItemCode, "item name", r.ItemName, "sales manager", r.SalesManagerID); problem != "" {
				return problem
			}
			if r.Quantity < 0 {
				return "quantity must not be negative"
			}
			if r.RequiredDate.IsZero() {
				return "required date is required"
			}
			switch r.Status {
			case domain.RequisitionPending, domain.RequisitionApproved, domain.RequisitionRejected:
			default:
				return "status " + string(r.Status) + " is not recognised"
			}
			return ""
		},
		guard: func(existing domain.PurchaseRequisition, candidate *domain.PurchaseRequisition) error {
			if candidate.Status == "" {
				candidate.Status = existing.Status
			}
			if candidate.Status == existing.Status {
				return nil
			}
			detail := "status changes only through approve or reject"
			if existing.Status.Terminal() {
				detail = fmt.Sprintf("requisition is already %s", existing.Status)
			}
			return domain.NewError("update", domain.KindRequisition, existing.RequisitionID, domain.ErrInvalidStatus, detail)
		},
		audit: &auditTemplate[domain.PurchaseRequisition]{noun: requisitionNoun, createVerb: logdetail.VerbAdded, updateVerb: logdetail.VerbUpdated},
	})}
}

// ByStatus lists requisitions in status.
func (s *RequisitionStore) ByStatus(ctx context.Context, status domain.RequisitionStatus) ([]domain.PurchaseRequisition, error) {
	return s.Filter(ctx, func(r domain.PurchaseRequisition) bool { return r.Status == status })
}

// BySalesManager lists requisitions raised by userID.
func (s *RequisitionStore) BySalesManager(ctx context.Context, userID string) ([]domain.PurchaseRequisition, error) {
	return s.Filter(ctx, func(r domain.PurchaseRequisition) bool { return r.SalesManagerID == userID })
}

// Approve moves a Pending requisition to Approved.
func (s *RequisitionStore) Approve(ctx context.Context, id string) (domain.PurchaseRequisition, error) {
	r, err := s.decide(ctx, "approve", id, domain.RequisitionApproved)
	if err != nil {
		return r, err
	}
	s.reg.audit.record(ctx, domain.ActionUpdate, logdetail.Record(logdetail.VerbApproved, requisitionNoun, id))
	return r, nil
}

// Reject moves a Pending requisition to Rejected. reason must not be blank and
// is kept in the audit entry.
func (s *RequisitionStore) Reject(ctx context.Context, id, reason string) (domain.PurchaseRequisition, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.PurchaseRequisition{}, domain.NewError("reject", domain.KindRequisition, id, domain.ErrInvalidInput, "a reason is required to reject a requisition")
	}
	r, err := s.decide(ctx, "reject", id, domain.RequisitionRejected)
	if err != nil {
		return r, err
	}
	s.reg.audit.record(ctx, domain.ActionUpdate, logdetail.Rejection(requisitionNoun, id, reason))
	return r, nil
}

func (s *RequisitionStore) decide(ctx context.Context, op, id string, to domain.RequisitionStatus) (domain.PurchaseRequisition, error) {
	r, err := s.replace(ctx, op, id, func(cur domain.PurchaseRequisition) (domain.PurchaseRequisition, error) {
		if cur.Status.Terminal() {
			return cur, domain.NewError(op, domain.KindRequisition, id, domain.ErrInvalidStatus,
				fmt.Sprintf("requisition is already %s", cur.Status))
		}
		cur.Status = to
		return cur, nil
	})
	if err != nil {
		return domain.PurchaseRequisition{}, err
	}
	return r, nil
}
