// Package environment provides the external collaborator the crdt
// package never constructs itself: a Source of fresh Timestamps and the
// replica identity a process derives its Source from.
package environment

import (
	"sync"

	"github.com/amaydixit11/deltacrdt/internal/core"
)

// Clock issues strictly increasing Timestamps for one replica. It
// satisfies crdt.Source. Unlike the teacher's Lamport clock, Clock does
// not merge remote counters into its own state on receipt — the
// CRDT's causal context (the VersionVector) is what accumulates
// observed history; the clock only needs to keep minting values this
// replica has never used before.
type Clock struct {
	mu      sync.Mutex
	replica core.ReplicaID
	counter int64
}

// NewClock returns a Clock that mints Timestamps for replica, starting
// just after startAt (use 0 for a fresh replica).
func NewClock(replica core.ReplicaID, startAt int64) *Clock {
	return &Clock{replica: replica, counter: startAt}
}

// Next returns the next unused Timestamp for this replica.
func (c *Clock) Next() core.Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counter++
	return core.Timestamp{Counter: c.counter, Replica: c.replica}
}

// Observe advances the clock's counter past ts.Counter if ts was issued
// by this same replica, e.g. when restoring state from storage.
func (c *Clock) Observe(ts core.Timestamp) {
	if ts.Replica != c.replica {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if ts.Counter > c.counter {
		c.counter = ts.Counter
	}
}

// Replica returns the replica identity this clock issues timestamps for.
func (c *Clock) Replica() core.ReplicaID {
	return c.replica
}
