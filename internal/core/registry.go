// Package core implements the stockroom record store: one table per record
// kind with CRUD and uniqueness checks, identifier generation, cross-record
// lookups, stock mutations and audit logging.
//
// A Registry owns every table. Callers open one registry per data source and
// share it for their lifetime; there is no package-level state.
package core

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"stockroom/pkg/domain"
)

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the diagnostic logger.
func WithLogger(logger Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics sets the operation metrics recorder.
func WithMetrics(metrics MetricsRecorder) Option {
	return func(r *Registry) {
		if metrics != nil {
			r.metrics = metrics
		}
	}
}

// WithClock overrides the time source used for timestamps and generated keys.
func WithClock(clock Clock) Option {
	return func(r *Registry) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithLockTimeout bounds how long an operation waits for a busy table.
func WithLockTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.lockTimeout = d
		}
	}
}

// WithPasswordCost sets the bcrypt cost used when hashing user passwords.
func WithPasswordCost(cost int) Option {
	return func(r *Registry) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			r.passwordCost = cost
		}
	}
}

// Registry is the entry point to every record store.
type Registry struct {
	store        domain.TableStore
	logger       Logger
	metrics      MetricsRecorder
	clock        Clock
	lockTimeout  time.Duration
	passwordCost int
	ids          *idGenerator

	items        *ItemStore
	suppliers    *SupplierStore
	users        *UserStore
	stock        *StockStore
	orders       *OrderStore
	requisitions *RequisitionStore
	sales        *SalesStore
	logs         *LogStore

	audit    *AuditLogger
	resolver *Resolver
	stockSvc *StockService
}

type loader interface {
	load(ctx context.Context) error
}

// Open builds a registry over store and loads every table. A table that fails
// to decode aborts Open with an error matching domain.ErrCorruptRecord.
func Open(ctx context.Context, store domain.TableStore, opts ...Option) (*Registry, error) {
	r := &Registry{
		store:        store,
		logger:       NopLogger{},
		metrics:      noopMetrics{},
		clock:        systemClock{},
		lockTimeout:  DefaultLockTimeout,
		passwordCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.ids = newIDGenerator(r.clock)

	r.logs = newLogStore(r)
	r.audit = &AuditLogger{reg: r}
	r.items = newItemStore(r)
	r.suppliers = newSupplierStore(r)
	r.users = newUserStore(r)
	r.stock = newStockStore(r)
	r.orders = newOrderStore(r)
	r.requisitions = newRequisitionStore(r)
	r.sales = newSalesStore(r)
	r.resolver = &Resolver{reg: r}
	r.stockSvc = &StockService{reg: r}

	tables := []loader{r.items, r.suppliers, r.users, r.stock, r.orders, r.requisitions, r.sales, r.logs}
	for _, tbl := range tables {
		if err := tbl.load(ctx); err != nil {
			return nil, err
		}
	}
	r.logger.Info("record store opened", "tables", len(tables))
	return r, nil
}

// Close releases the underlying table store.
func (r *Registry) Close() error { return r.store.Close() }

// TableStore returns the persistence backend.
func (r *Registry) TableStore() domain.TableStore { return r.store }

// Items returns the item store.
func (r *Registry) Items() *ItemStore { return r.items }

// Suppliers returns the supplier store.
func (r *Registry) Suppliers() *SupplierStore { return r.suppliers }

// Users returns the user store.
func (r *Registry) Users() *UserStore { return r.users }

// Stock returns the stock store.
func (r *Registry) Stock() *StockStore { return r.stock }

// Orders returns the purchase order store.
func (r *Registry) Orders() *OrderStore { return r.orders }

// Requisitions returns the purchase requisition store.
func (r *Registry) Requisitions() *RequisitionStore { return r.requisitions }

// Sales returns the sales entry store.
func (r *Registry) Sales() *SalesStore { return r.sales }

// Logs returns the system log store.
func (r *Registry) Logs() *LogStore { return r.logs }

// Audit returns the audit logger.
func (r *Registry) Audit() *AuditLogger { return r.audit }

// Resolver returns the cross-record resolver.
func (r *Registry) Resolver() *Resolver { return r.resolver }

// StockService returns the stock mutation service.
func (r *Registry) StockService() *StockService { return r.stockSvc }
