package core

import (
	"context"
	"strings"
	"time"

	"stockroom/internal/codec"
	"stockroom/internal/logdetail"
	"stockroom/pkg/domain"
)

// LogStore holds the append-only system log. It exposes no update or delete;
// entries are written through the AuditLogger.
type LogStore struct {
	table *Table[domain.SystemLog]
}

func newLogStore(reg *Registry) *LogStore {
	return &LogStore{table: newTable(reg, schema[domain.SystemLog]{
		codec:    codec.Logs,
		key:      func(l domain.SystemLog) string { return l.LogID },
		setKey:   func(l *domain.SystemLog, k string) { l.LogID = k },
		strategy: keyTimed,
		prefix:   PrefixLog,
		prepare: func(l *domain.SystemLog) error {
			if l.Timestamp.IsZero() {
				l.Timestamp = reg.clock.Now()
			}
			l.Timestamp = codec.NormalizeTimestamp(l.Timestamp)
			return nil
		},
		validate: func(l domain.SystemLog) string {
			switch l.Action {
			case domain.ActionCreate, domain.ActionUpdate, domain.ActionDelete:
			default:
				return "action " + string(l.Action) + " is not recognised"
			}
			if strings.ContainsAny(l.Details, "\r\n") {
				return "details must be a single line"
			}
			return ""
		},
	})}
}

func (s *LogStore) load(ctx context.Context) error { return s.table.load(ctx) }

// Kind returns domain.KindSystemLog.
func (s *LogStore) Kind() domain.Kind { return s.table.Kind() }

// List returns every entry in the order it was written.
func (s *LogStore) List(ctx context.Context) ([]domain.SystemLog, error) { return s.table.List(ctx) }

// Get returns the entry stored under logID.
func (s *LogStore) Get(ctx context.Context, logID string) (domain.SystemLog, error) {
	return s.table.Get(ctx, logID)
}

// ByUser lists the entries recorded for userID.
func (s *LogStore) ByUser(ctx context.Context, userID string) ([]domain.SystemLog, error) {
	return s.table.Filter(ctx, func(l domain.SystemLog) bool { return l.UserID == userID })
}

// InventoryLogs lists entries that record a stock quantity change.
func (s *LogStore) InventoryLogs(ctx context.Context) ([]domain.SystemLog, error) {
	return s.table.Filter(ctx, func(l domain.SystemLog) bool { return logdetail.Parse(l.Details).IsStockMovement() })
}

// StockMovement is one row of the stock history view.
type StockMovement struct {
	LogID     string
	ItemCode  string
	Kind      logdetail.Kind
	Quantity  int
	Reason    string
	Username  string
	Timestamp time.Time
}

// StockHistory returns the stock movements recorded in the log, oldest first.
// An empty itemCode returns the movements of every item.
func (s *LogStore) StockHistory(ctx context.Context, itemCode string) ([]StockMovement, error) {
	logs, err := s.InventoryLogs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]StockMovement, 0, len(logs))
	for _, l := range logs {
		d := logdetail.Parse(l.Details)
		if itemCode != "" && d.Key != itemCode {
			continue
		}
		out = append(out, StockMovement{
			LogID:     l.LogID,
			ItemCode:  d.Key,
			Kind:      d.Kind,
			Quantity:  d.Quantity,
			Reason:    d.Reason,
			Username:  l.Username,
			Timestamp: l.Timestamp,
		})
	}
	return out, nil
}

func (s *LogStore) append(ctx context.Context, entry domain.SystemLog) (domain.SystemLog, error) {
	return s.table.add(ctx, entry)
}
