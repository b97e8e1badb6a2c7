package core

import (
	"context"
	"time"

	"stockroom/pkg/domain"
)

// DefaultLockTimeout bounds how long an operation waits for a busy store.
const DefaultLockTimeout = 500 * time.Millisecond

// storeLock serialises the operations of one store. Acquisition gives up after
// the configured timeout instead of blocking forever.
type storeLock struct {
	ch chan struct{}
}

func newStoreLock() *storeLock {
	return &storeLock{ch: make(chan struct{}, 1)}
}

func (l *storeLock) acquire(ctx context.Context, timeout time.Duration) error {
	select {
	case l.ch <- struct{}{}:
		return nil
	default:
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case l.ch <- struct{}{}:
		return nil
	case <-timer.C:
		return domain.ErrBusy
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *storeLock) release() {
	<-l.ch
}
