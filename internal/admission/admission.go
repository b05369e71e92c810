// Package admission bounds the number of client sessions the proxy forwards
// concurrently, using a counting semaphore at accept time so that accept
// suspends while the configured cap is held.
package admission

import "context"

// Admitter is a counting semaphore bounding concurrent sessions. A limit of
// 0 means unbounded: Acquire always succeeds immediately.
type Admitter struct {
	slots chan struct{}
}

// New creates an Admitter allowing up to limit concurrent sessions. limit<=0
// disables admission control entirely.
func New(limit int) *Admitter {
	if limit <= 0 {
		return &Admitter{}
	}
	return &Admitter{slots: make(chan struct{}, limit)}
}

// Acquire blocks until a slot is available or ctx is done. It returns a
// release function that must be called exactly once to free the slot.
func (a *Admitter) Acquire(ctx context.Context) (release func(), err error) {
	if a.slots == nil {
		return func() {}, nil
	}
	select {
	case a.slots <- struct{}{}:
		return func() { <-a.slots }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Active reports the number of slots currently held.
func (a *Admitter) Active() int {
	if a.slots == nil {
		return 0
	}
	return len(a.slots)
}

// Limit reports the configured concurrency cap, or 0 if unbounded.
func (a *Admitter) Limit() int {
	if a.slots == nil {
		return 0
	}
	return cap(a.slots)
}
