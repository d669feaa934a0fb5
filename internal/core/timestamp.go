// Package core provides the causal-metadata primitives shared by every
// CRDT in this module: timestamps and version vectors.
package core

import "encoding/json"

// ReplicaID is a totally ordered opaque name for a replica. Any
// comparable, lexicographically orderable string works; callers are
// free to use a hostname, a UUID string, or a derived identity.
type ReplicaID string

// Timestamp is a Lamport-style pair (Counter, ReplicaID) with a total
// lexicographic order: Counter first, then ReplicaID. A single replica
// must never issue two timestamps with the same Counter; across
// replicas, Counter collisions are broken by ReplicaID.
type Timestamp struct {
	Counter int64
	Replica ReplicaID
}

// timestampWire is the §6.1/§6.2 wire shape: {"id":{"name":"<rid>"},"cnt":<i32>}.
type timestampWire struct {
	ID struct {
		Name ReplicaID `json:"name"`
	} `json:"id"`
	Cnt int64 `json:"cnt"`
}

// MarshalJSON encodes t as {"id":{"name":"<rid>"},"cnt":<cnt>}.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	var w timestampWire
	w.ID.Name = t.Replica
	w.Cnt = t.Counter
	return json.Marshal(w)
}

// UnmarshalJSON decodes a timestamp previously produced by MarshalJSON.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var w timestampWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	t.Replica = w.ID.Name
	t.Counter = w.Cnt
	return nil
}

// Zero is the timestamp that precedes every timestamp a conforming
// Source will ever issue.
var Zero = Timestamp{}

// Compare returns -1, 0, or 1 as t orders before, equal to, or after
// other. The order is total: Counter decides first, ReplicaID breaks
// ties.
func (t Timestamp) Compare(other Timestamp) int {
	switch {
	case t.Counter < other.Counter:
		return -1
	case t.Counter > other.Counter:
		return 1
	case t.Replica < other.Replica:
		return -1
	case t.Replica > other.Replica:
		return 1
	default:
		return 0
	}
}

// After reports whether t strictly follows other in the total order.
func (t Timestamp) After(other Timestamp) bool {
	return t.Compare(other) > 0
}

// Equal reports whether t and other denote the same timestamp.
func (t Timestamp) Equal(other Timestamp) bool {
	return t.Compare(other) == 0
}

// IsZero reports whether t is the Zero timestamp.
func (t Timestamp) IsZero() bool {
	return t == Zero
}
