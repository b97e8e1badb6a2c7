package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"stockroom/internal/infra/persistence/memory"
	"stockroom/pkg/domain"
)

func TestStoreLockTimesOut(t *testing.T) {
	l := newStoreLock()
	if err := l.acquire(context.Background(), time.Second); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	start := time.Now()
	err := l.acquire(context.Background(), 20*time.Millisecond)
	if !errors.Is(err, domain.ErrBusy) {
		t.Fatalf("expected busy, got %v", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Fatalf("acquire returned before the timeout")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.acquire(ctx, time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}

	l.release()
	if err := l.acquire(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	l.release()
}

func TestBusyTableFailsFast(t *testing.T) {
	reg, err := Open(context.Background(), memory.NewStore(), WithLockTimeout(15*time.Millisecond))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := reg.items.lock.acquire(context.Background(), time.Second); err != nil {
		t.Fatalf("hold lock: %v", err)
	}

	_, err = reg.Items().List(context.Background())
	if !errors.Is(err, domain.ErrBusy) {
		t.Fatalf("expected busy error, got %v", err)
	}
	var de *domain.Error
	if !errors.As(err, &de) || de.Op != "list" || de.Kind != domain.KindItem {
		t.Fatalf("expected error carrying op and kind, got %v", err)
	}

	// other tables stay available while items is held
	if _, err := reg.Suppliers().List(context.Background()); err != nil {
		t.Fatalf("suppliers list: %v", err)
	}
	reg.items.lock.release()
	if _, err := reg.Items().List(context.Background()); err != nil {
		t.Fatalf("list after release: %v", err)
	}
}
