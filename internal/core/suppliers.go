package core

import (
	"strings"

	"stockroom/internal/codec"
	"stockroom/internal/logdetail"
	"stockroom/pkg/domain"
)

// SupplierStore holds suppliers. Names are unique, ignoring case.
type SupplierStore struct {
	*Table[domain.Supplier]
}

func newSupplierStore(reg *Registry) *SupplierStore {
	return &SupplierStore{Table: newTable(reg, schema[domain.Supplier]{
		codec:    codec.Suppliers,
		key:      func(s domain.Supplier) string { return s.SupplierID },
		setKey:   func(s *domain.Supplier, k string) { s.SupplierID = k },
		strategy: keySequential,
		prefix:   PrefixSupplier,
		prepare: func(s *domain.Supplier) error {
			s.SupplierName = strings.TrimSpace(s.SupplierName)
			return nil
		},
		validate: func(s domain.Supplier) string {
			if problem := missing("supplier name", s.SupplierName); problem != "" {
				return problem
			}
			if s.Email != "" && !strings.Contains(s.Email, "@") {
				return "email is not valid"
			}
			return ""
		},
		conflict: func(existing, candidate domain.Supplier) string {
			if strings.EqualFold(existing.SupplierName, candidate.SupplierName) {
				return "supplier name already used by " + existing.SupplierID
			}
			return ""
		},
		audit: &auditTemplate[domain.Supplier]{noun: "supplier", createVerb: logdetail.VerbAdded, updateVerb: logdetail.VerbUpdated},
	})}
}
