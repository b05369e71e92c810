// Package selector implements backend selection policies over a pool's
// healthy-backend snapshot. The only implementation today is round-robin;
// Backend.Weight is reserved for a future weighted policy that this package
// does not implement.
package selector

import (
	"math"
	"sync/atomic"

	"l4lb/internal/backend"
)

// Pool is the subset of *pool.BackendPool the selector depends on.
type Pool interface {
	GetHealthyBackends() []*backend.Backend
}

// RoundRobin returns the next healthy backend on each call, cycling through
// the pool's current healthy snapshot. The internal counter is a signed
// 32-bit fetch-and-add initialised so the first selection yields index 0;
// wraparound is made benign by masking off the sign bit before the modulo,
// which is the portable fix for doing unsigned-style indexing with a signed
// atomic.
type RoundRobin struct {
	pool    Pool
	counter atomic.Int32
}

// New creates a round-robin selector over pool.
func New(pool Pool) *RoundRobin {
	rr := &RoundRobin{pool: pool}
	rr.counter.Store(-1)
	return rr
}

// SelectBackend returns the next healthy backend, or (nil, false) if the
// pool currently has none.
func (rr *RoundRobin) SelectBackend() (*backend.Backend, bool) {
	healthy := rr.pool.GetHealthyBackends()
	if len(healthy) == 0 {
		return nil, false
	}

	n := rr.counter.Add(1)
	idx := int(n & math.MaxInt32) % len(healthy)
	return healthy[idx], true
}
