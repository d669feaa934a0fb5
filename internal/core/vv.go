package core

import (
	"encoding/json"
	"math"
)

// minCounter stands in for "−∞" when a replica has never been
// observed: it compares below every real Counter a Source can issue.
const minCounter = math.MinInt64

// VersionVector summarizes every timestamp a replica has observed, one
// counter per origin replica. A missing key denotes Counter = −∞, so
// Contains and LessEqual are total functions over any ReplicaID.
//
// The zero value is a valid, empty VersionVector.
type VersionVector struct {
	counters map[ReplicaID]int64
}

// NewVersionVector returns an empty version vector.
func NewVersionVector() *VersionVector {
	return &VersionVector{counters: make(map[ReplicaID]int64)}
}

func (v *VersionVector) at(id ReplicaID) int64 {
	if v == nil || v.counters == nil {
		return minCounter
	}
	c, ok := v.counters[id]
	if !ok {
		return minCounter
	}
	return c
}

// Contains reports whether ts has already been observed by v, i.e.
// v[ts.Replica] >= ts.Counter.
func (v *VersionVector) Contains(ts Timestamp) bool {
	return v.at(ts.Replica) >= ts.Counter
}

// Add records ts as observed: v[ts.Replica] = max(v[ts.Replica], ts.Counter).
func (v *VersionVector) Add(ts Timestamp) {
	if v.counters == nil {
		v.counters = make(map[ReplicaID]int64)
	}
	if ts.Counter > v.at(ts.Replica) {
		v.counters[ts.Replica] = ts.Counter
	}
}

// Max mutates v into the pointwise maximum of v and other.
func (v *VersionVector) Max(other *VersionVector) {
	if other == nil {
		return
	}
	if v.counters == nil {
		v.counters = make(map[ReplicaID]int64)
	}
	for id, c := range other.counters {
		if c > v.at(id) {
			v.counters[id] = c
		}
	}
}

// LessEqual reports whether v is dominated pointwise by other: for
// every ReplicaID present in either vector, v[id] <= other[id].
func (v *VersionVector) LessEqual(other *VersionVector) bool {
	seen := make(map[ReplicaID]struct{}, len(v.counters)+len(other.counters))
	for id := range v.counters {
		seen[id] = struct{}{}
	}
	for id := range other.counters {
		seen[id] = struct{}{}
	}
	for id := range seen {
		if v.at(id) > other.at(id) {
			return false
		}
	}
	return true
}

// Clone returns an independent deep copy of v.
func (v *VersionVector) Clone() *VersionVector {
	out := NewVersionVector()
	for id, c := range v.counters {
		out.counters[id] = c
	}
	return out
}

// Entries returns a snapshot copy of the vector's (ReplicaID, counter)
// pairs, for encoding and iteration.
func (v *VersionVector) Entries() map[ReplicaID]int64 {
	out := make(map[ReplicaID]int64, len(v.counters))
	for id, c := range v.counters {
		out[id] = c
	}
	return out
}

// Equal reports whether v and other hold the same observed counters,
// ignoring entries pinned at minCounter (absent is equivalent to −∞).
func (v *VersionVector) Equal(other *VersionVector) bool {
	return v.LessEqual(other) && other.LessEqual(v)
}

// versionVectorWire is the §6.2 wire shape: {"entries":{"<rid>":<cnt>}}.
type versionVectorWire struct {
	Entries map[ReplicaID]int64 `json:"entries"`
}

// MarshalJSON encodes v as {"entries":{"<rid>":<cnt>, ...}}.
func (v *VersionVector) MarshalJSON() ([]byte, error) {
	return json.Marshal(versionVectorWire{Entries: v.Entries()})
}

// UnmarshalJSON decodes a version vector previously produced by MarshalJSON.
func (v *VersionVector) UnmarshalJSON(data []byte) error {
	var w versionVectorWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	v.counters = make(map[ReplicaID]int64, len(w.Entries))
	for id, c := range w.Entries {
		v.counters[id] = c
	}
	return nil
}
