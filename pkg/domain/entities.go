// Package domain defines the persisted record kinds, value types, and error
// taxonomy shared by the stockroom record store and its callers.
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies a persisted record kind. Every kind is stored as its own
// logical table.
type Kind string

// Supported record kinds. The string value doubles as the table name used by
// the persistence backends.
const (
	// KindItem identifies catalogue items.
	KindItem Kind = "items"
	// KindSupplier identifies suppliers referenced by items and orders.
	KindSupplier Kind = "suppliers"
	// KindUser identifies application users.
	KindUser Kind = "users"
	// KindStock identifies per-item stock levels.
	KindStock Kind = "stock"
	// KindPurchaseOrder identifies purchase orders.
	KindPurchaseOrder Kind = "purchase_orders"
	// KindRequisition identifies purchase requisitions raised by sales.
	KindRequisition Kind = "purchase_requisitions"
	// KindSalesEntry identifies recorded sales.
	KindSalesEntry Kind = "sales_entries"
	// KindSystemLog identifies append-only audit log entries.
	KindSystemLog Kind = "system_logs"
)

// Kinds returns every record kind in a stable order.
func Kinds() []Kind {
	return []Kind{
		KindItem,
		KindSupplier,
		KindUser,
		KindStock,
		KindPurchaseOrder,
		KindRequisition,
		KindSalesEntry,
		KindSystemLog,
	}
}

// Label returns the human-readable noun used in audit details and errors.
func (k Kind) Label() string {
	switch k {
	case KindItem:
		return "item"
	case KindSupplier:
		return "supplier"
	case KindUser:
		return "user"
	case KindStock:
		return "stock"
	case KindPurchaseOrder:
		return "purchase order"
	case KindRequisition:
		return "purchase requisition"
	case KindSalesEntry:
		return "sales entry"
	case KindSystemLog:
		return "system log"
	default:
		return string(k)
	}
}

// Role enumerates the user roles recognised by the application.
type Role string

// Canonical roles.
const (
	RoleAdministrator    Role = "Administrator"
	RoleInventoryManager Role = "InventoryManager"
	RolePurchaseManager  Role = "PurchaseManager"
	RoleFinanceManager   Role = "FinanceManager"
	RoleSalesManager     Role = "SalesManager"
)

var roleAliases = map[string]Role{
	"administrator":    RoleAdministrator,
	"admin":            RoleAdministrator,
	"inventorymanager": RoleInventoryManager,
	"inventory":        RoleInventoryManager,
	"purchasemanager":  RolePurchaseManager,
	"purchasing":       RolePurchaseManager,
	"purchase":         RolePurchaseManager,
	"financemanager":   RoleFinanceManager,
	"finance":          RoleFinanceManager,
	"salesmanager":     RoleSalesManager,
	"sales":            RoleSalesManager,
}

// ParseRole maps canonical and legacy role spellings onto a Role.
func ParseRole(raw string) (Role, bool) {
	key := strings.ToLower(strings.NewReplacer(" ", "", "_", "").Replace(strings.TrimSpace(raw)))
	role, ok := roleAliases[key]
	return role, ok
}

// Valid reports whether the role is one of the canonical values.
func (r Role) Valid() bool {
	switch r {
	case RoleAdministrator, RoleInventoryManager, RolePurchaseManager, RoleFinanceManager, RoleSalesManager:
		return true
	}
	return false
}

// StockStatus is derived from a stock quantity and never set independently.
type StockStatus string

// Stock status values.
const (
	StockInStock    StockStatus = "InStock"
	StockLowStock   StockStatus = "LowStock"
	StockOutOfStock StockStatus = "OutOfStock"
)

// LowStockThreshold is the quantity below which stock is considered low.
const LowStockThreshold = 10

// DeriveStockStatus returns the status implied by quantity.
func DeriveStockStatus(quantity int) StockStatus {
	switch {
	case quantity <= 0:
		return StockOutOfStock
	case quantity < LowStockThreshold:
		return StockLowStock
	default:
		return StockInStock
	}
}

// OrderStatus is the purchase order state.
type OrderStatus string

// Purchase order states.
const (
	OrderPending   OrderStatus = "Pending"
	OrderCompleted OrderStatus = "Completed"
	OrderCancelled OrderStatus = "Cancelled"
)

// RequisitionStatus is the purchase requisition state. Approved and Rejected
// are terminal.
type RequisitionStatus string

// Purchase requisition states.
const (
	RequisitionPending  RequisitionStatus = "Pending"
	RequisitionApproved RequisitionStatus = "Approved"
	RequisitionRejected RequisitionStatus = "Rejected"
)

// Terminal reports whether no further transition is permitted.
func (s RequisitionStatus) Terminal() bool {
	return s == RequisitionApproved || s == RequisitionRejected
}

// Action is the audit log action.
type Action string

// Audit actions.
const (
	ActionCreate Action = "Create"
	ActionUpdate Action = "Update"
	ActionDelete Action = "Delete"
)

// Item is a catalogue entry supplied by a single supplier.
type Item struct {
	ItemCode      string
	ItemName      string
	SupplierID    string
	StockQuantity int
	PricePerUnit  decimal.Decimal
}

// Supplier is referenced by items and purchase orders.
type Supplier struct {
	SupplierID    string
	SupplierName  string
	ContactPerson string
	Email         string
}

// User is an application account. Password holds a bcrypt hash for records
// written by this package; legacy rows may still carry plaintext.
type User struct {
	UserID   string
	Username string
	Password string
	Email    string
	Role     Role
}

// Stock tracks the on-hand quantity of one item.
type Stock struct {
	ItemCode    string
	ItemName    string
	Quantity    int
	Location    string
	LastUpdated time.Time
	Status      StockStatus
}

// PurchaseOrder is an order placed with a supplier.
type PurchaseOrder struct {
	OrderID    string
	ItemCode   string
	ItemName   string
	SupplierID string
	Quantity   int
	OrderDate  time.Time
	Status     OrderStatus
}

// PurchaseRequisition is a request from sales to purchase an item.
type PurchaseRequisition struct {
	RequisitionID  string
	ItemCode       string
	ItemName       string
	Quantity       int
	RequiredDate   time.Time
	SalesManagerID string
	Status         RequisitionStatus
}

// SalesEntry records a sale. TotalPrice is always Quantity × PricePerUnit.
type SalesEntry struct {
	EntryID        string
	Date           time.Time
	ItemID         string
	ItemName       string
	Quantity       int
	Category       string
	PricePerUnit   decimal.Decimal
	TotalPrice     decimal.Decimal
	SalesManagerID string
}

// SystemLog is an immutable audit entry.
type SystemLog struct {
	LogID     string
	UserID    string
	Username  string
	Action    Action
	Details   string
	Timestamp time.Time
	UserRole  Role
}

// Actor identifies who performed a mutation. It is recorded on every audit
// entry.
type Actor struct {
	UserID   string
	Username string
	Role     Role
}

// SystemActor is recorded when no user is attached to the operation.
var SystemActor = Actor{UserID: "SYSTEM", Username: "system", Role: RoleAdministrator}

// ActorFor builds the actor for a user record.
func ActorFor(u User) Actor {
	return Actor{UserID: u.UserID, Username: u.Username, Role: u.Role}
}

// CategoryForItem derives the sales category from an item name.
func CategoryForItem(name string) string {
	lower := strings.ToLower(name)
	for _, rule := range categoryRules {
		for _, word := range rule.words {
			if strings.Contains(lower, word) {
				return rule.category
			}
		}
	}
	return "General"
}

var categoryRules = []struct {
	category string
	words    []string
}{
	{"Dairy", []string{"milk", "cheese", "yogurt", "eggs"}},
	{"Grains", []string{"bread", "rice", "pasta", "oats"}},
	{"Fruits", []string{"banana", "apple", "orange"}},
	{"Vegetables", []string{"tomato", "carrot", "potato", "spinach"}},
	{"Meat & Seafood", []string{"chicken", "beef", "salmon"}},
}
