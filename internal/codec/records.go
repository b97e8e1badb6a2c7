package codec

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"stockroom/pkg/domain"
)

// Codec pairs the encoder and decoder for one record kind. Key returns the
// record's primary key, which must be unique within a table.
type Codec[T any] struct {
	Kind   domain.Kind
	Encode func(T) string
	Decode func(string) (T, error)
	Key    func(T) string
}

// EncodeAll encodes records in order.
func (c Codec[T]) EncodeAll(records []T) []string {
	lines := make([]string, 0, len(records))
	for _, r := range records {
		lines = append(lines, c.Encode(r))
	}
	return lines
}

// DecodeAll decodes a table. Blank lines are skipped; the first malformed line
// or repeated key aborts with a CorruptRecordError carrying its 1-based line
// number.
func (c Codec[T]) DecodeAll(lines []string) ([]T, error) {
	out := make([]T, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := c.Decode(line)
		if err != nil {
			if ce, ok := err.(*domain.CorruptRecordError); ok {
				ce.Line = i + 1
			}
			return nil, err
		}
		if c.Key != nil {
			key := c.Key(rec)
			if _, dup := seen[key]; dup {
				return nil, &domain.CorruptRecordError{Kind: c.Kind, Line: i + 1, Reason: "duplicate key " + key}
			}
			seen[key] = struct{}{}
		}
		out = append(out, rec)
	}
	return out, nil
}

// Per-kind codecs.
var (
	Items        = Codec[domain.Item]{Kind: domain.KindItem, Encode: EncodeItem, Decode: DecodeItem, Key: func(r domain.Item) string { return r.ItemCode }}
	Suppliers    = Codec[domain.Supplier]{Kind: domain.KindSupplier, Encode: EncodeSupplier, Decode: DecodeSupplier, Key: func(r domain.Supplier) string { return r.SupplierID }}
	Users        = Codec[domain.User]{Kind: domain.KindUser, Encode: EncodeUser, Decode: DecodeUser, Key: func(r domain.User) string { return r.UserID }}
	Stock        = Codec[domain.Stock]{Kind: domain.KindStock, Encode: EncodeStock, Decode: DecodeStock, Key: func(r domain.Stock) string { return r.ItemCode }}
	Orders       = Codec[domain.PurchaseOrder]{Kind: domain.KindPurchaseOrder, Encode: EncodeOrder, Decode: DecodeOrder, Key: func(r domain.PurchaseOrder) string { return r.OrderID }}
	Requisitions = Codec[domain.PurchaseRequisition]{Kind: domain.KindRequisition, Encode: EncodeRequisition, Decode: DecodeRequisition, Key: func(r domain.PurchaseRequisition) string { return r.RequisitionID }}
	Sales        = Codec[domain.SalesEntry]{Kind: domain.KindSalesEntry, Encode: EncodeSalesEntry, Decode: DecodeSalesEntry, Key: func(r domain.SalesEntry) string { return r.EntryID }}
	Logs         = Codec[domain.SystemLog]{Kind: domain.KindSystemLog, Encode: EncodeSystemLog, Decode: DecodeSystemLog, Key: func(r domain.SystemLog) string { return r.LogID }}
)

// ValidateLines decodes lines with the codec for kind, key uniqueness
// included, and discards the result.
func ValidateLines(kind domain.Kind, lines []string) error {
	var err error
	switch kind {
	case domain.KindItem:
		_, err = Items.DecodeAll(lines)
	case domain.KindSupplier:
		_, err = Suppliers.DecodeAll(lines)
	case domain.KindUser:
		_, err = Users.DecodeAll(lines)
	case domain.KindStock:
		_, err = Stock.DecodeAll(lines)
	case domain.KindPurchaseOrder:
		_, err = Orders.DecodeAll(lines)
	case domain.KindRequisition:
		_, err = Requisitions.DecodeAll(lines)
	case domain.KindSalesEntry:
		_, err = Sales.DecodeAll(lines)
	case domain.KindSystemLog:
		_, err = Logs.DecodeAll(lines)
	default:
		err = corrupt(kind, "unknown record kind")
	}
	return err
}

// EncodeItem writes itemCode, itemName, supplierId, stockQuantity and
// pricePerUnit. Rows written before quantity and price existed have three
// columns.
func EncodeItem(it domain.Item) string {
	return Join([]string{
		it.ItemCode,
		it.ItemName,
		it.SupplierID,
		strconv.Itoa(it.StockQuantity),
		FormatMoney(it.PricePerUnit),
	})
}

// DecodeItem parses an item row.
func DecodeItem(line string) (domain.Item, error) {
	r, err := newFieldReader(domain.KindItem, line, 5, 3)
	if err != nil {
		return domain.Item{}, err
	}
	it := domain.Item{ItemCode: r.str(0), ItemName: r.str(1), SupplierID: r.str(2), PricePerUnit: NormalizeMoney(decimal.Zero)}
	if r.width() == 5 {
		it.StockQuantity = r.count(3, "stockQuantity")
		it.PricePerUnit = r.amount(4, "pricePerUnit")
	}
	return it, r.err
}

// EncodeSupplier writes supplierId, supplierName, contactPerson and email.
func EncodeSupplier(s domain.Supplier) string {
	return Join([]string{s.SupplierID, s.SupplierName, s.ContactPerson, s.Email})
}

// DecodeSupplier parses a supplier row. Two-column rows carry only id and name.
func DecodeSupplier(line string) (domain.Supplier, error) {
	r, err := newFieldReader(domain.KindSupplier, line, 4, 2)
	if err != nil {
		return domain.Supplier{}, err
	}
	s := domain.Supplier{SupplierID: r.str(0), SupplierName: r.str(1)}
	if r.width() == 4 {
		s.ContactPerson = r.str(2)
		s.Email = r.str(3)
	}
	return s, nil
}

// EncodeUser writes userId, username, password, email and role. Four-column
// rows predate the email column.
func EncodeUser(u domain.User) string {
	return Join([]string{u.UserID, u.Username, u.Password, u.Email, string(u.Role)})
}

// DecodeUser parses a user row.
func DecodeUser(line string) (domain.User, error) {
	r, err := newFieldReader(domain.KindUser, line, 5, 4)
	if err != nil {
		return domain.User{}, err
	}
	u := domain.User{UserID: r.str(0), Username: r.str(1), Password: r.str(2)}
	roleCol := 3
	if r.width() == 5 {
		u.Email = r.str(3)
		roleCol = 4
	}
	role, ok := domain.ParseRole(r.str(roleCol))
	if !ok {
		r.fail("role", r.str(roleCol), "unknown role")
	}
	u.Role = role
	return u, r.err
}

// EncodeStock writes itemCode, itemName, quantity, location, lastUpdated and
// status. The status column is informational; it is always derived from quantity on
// read, and five-column rows omit it entirely.
func EncodeStock(s domain.Stock) string {
	return Join([]string{
		s.ItemCode,
		s.ItemName,
		strconv.Itoa(s.Quantity),
		s.Location,
		FormatTimestamp(s.LastUpdated),
		string(domain.DeriveStockStatus(s.Quantity)),
	})
}

// DecodeStock parses a stock row.
func DecodeStock(line string) (domain.Stock, error) {
	r, err := newFieldReader(domain.KindStock, line, 6, 5)
	if err != nil {
		return domain.Stock{}, err
	}
	s := domain.Stock{
		ItemCode:    r.str(0),
		ItemName:    r.str(1),
		Quantity:    r.count(2, "quantity"),
		Location:    r.str(3),
		LastUpdated: r.timestamp(4, "lastUpdated"),
	}
	if r.width() == 6 {
		if _, ok := parseStockStatus(r.str(5)); !ok {
			r.fail("status", r.str(5), "unknown stock status")
		}
	}
	s.Status = domain.DeriveStockStatus(s.Quantity)
	return s, r.err
}

func parseStockStatus(raw string) (domain.StockStatus, bool) {
	switch strings.ToLower(strings.NewReplacer(" ", "", "-", "", "_", "").Replace(raw)) {
	case "instock", "":
		return domain.StockInStock, true
	case "lowstock":
		return domain.StockLowStock, true
	case "outofstock":
		return domain.StockOutOfStock, true
	}
	return "", false
}

// EncodeOrder writes orderId, itemCode, itemName, supplierId, quantity,
// orderDate and status.
func EncodeOrder(o domain.PurchaseOrder) string {
	return Join([]string{
		o.OrderID,
		o.ItemCode,
		o.ItemName,
		o.SupplierID,
		strconv.Itoa(o.Quantity),
		FormatDate(o.OrderDate),
		string(o.Status),
	})
}

// DecodeOrder parses a purchase order row.
func DecodeOrder(line string) (domain.PurchaseOrder, error) {
	r, err := newFieldReader(domain.KindPurchaseOrder, line, 7)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	o := domain.PurchaseOrder{
		OrderID:    r.str(0),
		ItemCode:   r.str(1),
		ItemName:   r.str(2),
		SupplierID: r.str(3),
		Quantity:   r.count(4, "quantity"),
		OrderDate:  r.date(5, "orderDate"),
	}
	status, ok := ParseOrderStatus(r.str(6))
	if !ok {
		r.fail("status", r.str(6), "unknown order status")
	}
	o.Status = status
	return o, r.err
}

// ParseOrderStatus accepts canonical spellings plus the legacy "Approved",
// which earlier releases wrote for orders now called Completed.
func ParseOrderStatus(raw string) (domain.OrderStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending":
		return domain.OrderPending, true
	case "completed", "approved":
		return domain.OrderCompleted, true
	case "cancelled", "canceled":
		return domain.OrderCancelled, true
	}
	return "", false
}

// EncodeRequisition writes requisitionId, itemCode, itemName, quantity,
// requiredDate, salesManagerId and status.
func EncodeRequisition(p domain.PurchaseRequisition) string {
	return Join([]string{
		p.RequisitionID,
		p.ItemCode,
		p.ItemName,
		strconv.Itoa(p.Quantity),
		FormatDate(p.RequiredDate),
		p.SalesManagerID,
		string(p.Status),
	})
}

// DecodeRequisition parses a purchase requisition row.
func DecodeRequisition(line string) (domain.PurchaseRequisition, error) {
	r, err := newFieldReader(domain.KindRequisition, line, 7)
	if err != nil {
		return domain.PurchaseRequisition{}, err
	}
	p := domain.PurchaseRequisition{
		RequisitionID:  r.str(0),
		ItemCode:       r.str(1),
		ItemName:       r.str(2),
		Quantity:       r.count(3, "quantity"),
		RequiredDate:   r.date(4, "requiredDate"),
		SalesManagerID: r.str(5),
	}
	status, ok := ParseRequisitionStatus(r.str(6))
	if !ok {
		r.fail("status", r.str(6), "unknown requisition status")
	}
	p.Status = status
	return p, r.err
}

// ParseRequisitionStatus accepts the requisition states case-insensitively.
func ParseRequisitionStatus(raw string) (domain.RequisitionStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending":
		return domain.RequisitionPending, true
	case "approved":
		return domain.RequisitionApproved, true
	case "rejected":
		return domain.RequisitionRejected, true
	}
	return "", false
}

// EncodeSalesEntry writes entryId, date, itemId, itemName, quantity, category,
// pricePerUnit, totalPrice and salesManagerId. Eight-column rows predate the
// sales manager column.
func EncodeSalesEntry(e domain.SalesEntry) string {
	return Join([]string{
		e.EntryID,
		FormatDate(e.Date),
		e.ItemID,
		e.ItemName,
		strconv.Itoa(e.Quantity),
		e.Category,
		FormatMoney(e.PricePerUnit),
		FormatMoney(e.TotalPrice),
		e.SalesManagerID,
	})
}

// DecodeSalesEntry parses a sales entry row.
func DecodeSalesEntry(line string) (domain.SalesEntry, error) {
	r, err := newFieldReader(domain.KindSalesEntry, line, 9, 8)
	if err != nil {
		return domain.SalesEntry{}, err
	}
	e := domain.SalesEntry{
		EntryID:      r.str(0),
		Date:         r.date(1, "date"),
		ItemID:       r.str(2),
		ItemName:     r.str(3),
		Quantity:     r.count(4, "quantity"),
		Category:     r.str(5),
		PricePerUnit: r.amount(6, "pricePerUnit"),
		TotalPrice:   r.amount(7, "totalPrice"),
	}
	if r.width() == 9 {
		e.SalesManagerID = r.str(8)
	}
	return e, r.err
}

// EncodeSystemLog writes logId, userId, username, action, details, timestamp
// and userRole.
func EncodeSystemLog(l domain.SystemLog) string {
	return Join([]string{
		l.LogID,
		l.UserID,
		l.Username,
		string(l.Action),
		l.Details,
		FormatTimestamp(l.Timestamp),
		string(l.UserRole),
	})
}

// DecodeSystemLog parses a system log row.
func DecodeSystemLog(line string) (domain.SystemLog, error) {
	r, err := newFieldReader(domain.KindSystemLog, line, 7)
	if err != nil {
		return domain.SystemLog{}, err
	}
	l := domain.SystemLog{
		LogID:     r.str(0),
		UserID:    r.str(1),
		Username:  r.str(2),
		Details:   r.str(4),
		Timestamp: r.timestamp(5, "timestamp"),
	}
	action, ok := ParseAction(r.str(3))
	if !ok {
		r.fail("action", r.str(3), "unknown action")
	}
	l.Action = action
	if raw := r.str(6); raw != "" {
		role, ok := domain.ParseRole(raw)
		if !ok {
			r.fail("userRole", raw, "unknown role")
		}
		l.UserRole = role
	}
	return l, r.err
}

// ParseAction accepts audit actions case-insensitively.
func ParseAction(raw string) (domain.Action, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "create":
		return domain.ActionCreate, true
	case "update":
		return domain.ActionUpdate, true
	case "delete":
		return domain.ActionDelete, true
	}
	return "", false
}
