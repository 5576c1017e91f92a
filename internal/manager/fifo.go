package manager

import (
	"context"
	"sync"
)

// fifoLock is a mutual-exclusion lock that hands ownership to waiters
// strictly in the order they called Lock. Ownership passes directly from
// Unlock to the oldest waiter, so a newcomer can never overtake the queue.
type fifoLock struct {
	mu      sync.Mutex
	held    bool
	waiters []chan struct{}
}

// Lock blocks until the caller owns the lock or ctx is done.
func (l *fifoLock) Lock(ctx context.Context) error {
	return l.wait(ctx, l.enqueue())
}

// enqueue takes the caller's place in line without blocking. The returned
// channel is closed once the caller owns the lock.
func (l *fifoLock) enqueue() chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch := make(chan struct{})
	if !l.held && len(l.waiters) == 0 {
		l.held = true
		close(ch)
		return ch
	}
	l.waiters = append(l.waiters, ch)
	return ch
}

// wait blocks until the ticket from enqueue is granted or ctx is done. On
// cancellation the ticket leaves the line.
func (l *fifoLock) wait(ctx context.Context, ch chan struct{}) error {
	select {
	case <-ch:
		return nil
	default:
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		for i, w := range l.waiters {
			if w == ch {
				l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
				l.mu.Unlock()
				return ctx.Err()
			}
		}
		l.mu.Unlock()
		// Unlock handed us ownership while we were giving up; pass it on.
		l.Unlock()
		return ctx.Err()
	}
}

// Unlock releases the lock, handing it to the oldest waiter if there is one.
func (l *fifoLock) Unlock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.waiters) > 0 {
		next := l.waiters[0]
		l.waiters = l.waiters[1:]
		close(next)
		return
	}
	l.held = false
}

// Waiting returns the number of callers blocked in Lock.
func (l *fifoLock) Waiting() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.waiters)
}

// Held reports whether someone owns the lock.
func (l *fifoLock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}
