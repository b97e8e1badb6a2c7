package core

import (
	"context"
	"strings"
	"time"

	"stockroom/internal/logdetail"
	"stockroom/pkg/domain"
)

// AuditLogger appends system log entries. It never reports failure to the
// caller: a failed append is logged and counted, and the mutation that caused
// it stands.
type AuditLogger struct {
	reg *Registry
}

// Append writes one entry. A zero timestamp is replaced with the current time.
func (a *AuditLogger) Append(ctx context.Context, userID, username string, action domain.Action, details string, ts time.Time, role domain.Role) {
	start := time.Now()
	// line breaks would be rejected by validation; keep the entry readable instead
	details = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(details)
	entry, err := a.reg.logs.append(context.WithoutCancel(ctx), domain.SystemLog{
		UserID:    userID,
		Username:  username,
		Action:    action,
		Details:   details,
		Timestamp: ts,
		UserRole:  role,
	})
	a.reg.metrics.Observe(ctx, "audit.append", err == nil, time.Since(start))
	if err != nil {
		a.reg.logger.Error("audit append failed", "action", action, "details", details, "error", err)
		return
	}
	a.reg.logger.Debug("audit entry appended", "log_id", entry.LogID, "action", action)
}

func (a *AuditLogger) record(ctx context.Context, action domain.Action, detail logdetail.Detail) {
	actor := ActorFrom(ctx)
	a.Append(ctx, actor.UserID, actor.Username, action, detail.String(), time.Time{}, actor.Role)
}
