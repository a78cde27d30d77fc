package ledger

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLockTimeout is returned when the store-wide lock could not be taken in time.
// The operation is dropped; callers should ask the user to try again.
var ErrLockTimeout = errors.New("ledger busy, try again")

// Locker serialises every mutation of the record store.
type Locker interface {
	// Lock blocks until the lock is held, the wait bound elapses or ctx is done.
	Lock(ctx context.Context) (unlock func(), err error)
}

// MutexLocker is an in-process Locker with a bounded wait.
type MutexLocker struct {
	sem     chan struct{}
	timeout time.Duration
}

// NewMutexLocker returns a Locker for a single service instance.
func NewMutexLocker(timeout time.Duration) *MutexLocker {
	return &MutexLocker{sem: make(chan struct{}, 1), timeout: timeout}
}

func (l *MutexLocker) Lock(ctx context.Context) (func(), error) {
	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case l.sem <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-l.sem }) }, nil
	case <-timer.C:
		return nil, ErrLockTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
