package core_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"stockroom/internal/core"
	"stockroom/internal/infra/persistence/memory"
	"stockroom/pkg/domain"
)

var testEpoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// steppingClock advances one second on every reading.
func steppingClock() core.Clock {
	var n atomic.Int64
	return core.ClockFunc(func() time.Time {
		return testEpoch.Add(time.Duration(n.Add(1)) * time.Second)
	})
}

func newRegistry(t *testing.T, store domain.TableStore, opts ...core.Option) *core.Registry {
	t.Helper()
	if store == nil {
		store = memory.NewStore()
	}
	base := []core.Option{core.WithClock(steppingClock()), core.WithPasswordCost(bcrypt.MinCost)}
	reg, err := core.Open(context.Background(), store, append(base, opts...)...)
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}
	t.Cleanup(func() { _ = reg.Close() })
	return reg
}

func logCount(t *testing.T, reg *core.Registry) int {
	t.Helper()
	logs, err := reg.Logs().List(context.Background())
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	return len(logs)
}

func lastLog(t *testing.T, reg *core.Registry) domain.SystemLog {
	t.Helper()
	logs, err := reg.Logs().List(context.Background())
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) == 0 {
		t.Fatalf("expected at least one log entry")
	}
	return logs[len(logs)-1]
}

type logEntry struct {
	level string
	msg   string
	args  []any
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *recordingLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

func (l *recordingLogger) count(level, msg string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			n++
		}
	}
	return n
}

type observation struct {
	op      string
	success bool
}

type recordingMetrics struct {
	mu  sync.Mutex
	obs []observation
}

func (m *recordingMetrics) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.obs = append(m.obs, observation{op: op, success: success})
}

func (m *recordingMetrics) count(op string, success bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.obs {
		if o.op == op && o.success == success {
			n++
		}
	}
	return n
}

var errDiskFull = errors.New("disk full")

// failingStore wraps a memory store and fails saves of the kinds listed in
// failSave.
type failingStore struct {
	*memory.Store
	mu       sync.Mutex
	failSave map[domain.Kind]bool
}

func newFailingStore(kinds ...domain.Kind) *failingStore {
	fs := &failingStore{Store: memory.NewStore(), failSave: make(map[domain.Kind]bool)}
	for _, k := range kinds {
		fs.failSave[k] = true
	}
	return fs
}

func (s *failingStore) setFailing(kind domain.Kind, fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSave[kind] = fail
}

func (s *failingStore) Save(ctx context.Context, kind domain.Kind, lines []string) error {
	s.mu.Lock()
	fail := s.failSave[kind]
	s.mu.Unlock()
	if fail {
		return fmt.Errorf("save %s: %w", kind, errDiskFull)
	}
	return s.Store.Save(ctx, kind, lines)
}
