package manager

import (
	"context"
	"time"
)

// beginGeneration admits the request and waits for the single in-flight
// slot. Returns a release func to be called once the session is no longer
// in use.
//
// Admission is bounded by MaxQueueDepth, counting the running request. When
// the queue is full the caller waits up to maxWait for room, then gets
// tooBusy. An admitted request waits for the session as long as its own
// context allows, and requests are served in the order they were admitted.
func (m *Manager) beginGeneration(ctx context.Context) (func(), error) {
	// Fast path: respect an already-canceled context
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if st := m.State(); st != StateReady {
		return nil, ErrDependencyUnavailable("model session is " + string(st))
	}

	start := time.Now()
	ticket, err := m.admit(ctx)
	if err != nil {
		return nil, err
	}
	if err := m.slot.wait(ctx, ticket); err != nil {
		m.queue.Release(1)
		return nil, err
	}
	queueWaitSeconds.Observe(time.Since(start).Seconds())

	// Close may have run while we were queued.
	if st := m.State(); st != StateReady {
		m.slot.Unlock()
		m.queue.Release(1)
		return nil, ErrDependencyUnavailable("model session is " + string(st))
	}
	return func() {
		m.slot.Unlock()
		m.queue.Release(1)
	}, nil
}

// admit reserves a queue slot and a place in line for the session. The slot
// and the place are taken under admitMu, so two arrivals cannot swap order
// between the two. A request that had to wait for room is placed in line
// when room frees up.
func (m *Manager) admit(ctx context.Context) (chan struct{}, error) {
	m.admitMu.Lock()
	if m.queue.TryAcquire(1) {
		ticket := m.slot.enqueue()
		m.admitMu.Unlock()
		return ticket, nil
	}
	m.admitMu.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, m.maxWait)
	defer cancel()
	if err := m.queue.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, tooBusyError{reason: "queue full"}
	}
	m.admitMu.Lock()
	defer m.admitMu.Unlock()
	return m.slot.enqueue(), nil
}
