package crdt

import (
	"encoding/json"

	"github.com/amaydixit11/deltacrdt/internal/core"
)

// LWWRegister is a single-value register resolved by last-writer-wins:
// the stored (value, timestamp) pair is always the assignment with the
// greatest timestamp ever observed.
type LWWRegister[T any] struct {
	value T
	ts    core.Timestamp
	set   bool
}

// NewLWWRegister returns an empty register holding the zero value of T
// at core.Zero.
func NewLWWRegister[T any]() *LWWRegister[T] {
	return &LWWRegister[T]{}
}

// Assign stores val if ts is newer than the currently stored
// timestamp. It returns a delta: a copy of the register reflecting
// exactly this assignment on success, or an empty (unset) register if
// the assignment lost to a stale or duplicate timestamp.
func (r *LWWRegister[T]) Assign(val T, ts core.Timestamp) *LWWRegister[T] {
	if r.set && !ts.After(r.ts) {
		return &LWWRegister[T]{}
	}
	r.value, r.ts, r.set = val, ts, true
	return &LWWRegister[T]{value: val, ts: ts, set: true}
}

// Get returns the current value.
func (r *LWWRegister[T]) Get() T {
	return r.value
}

// Timestamp returns the timestamp of the current value.
func (r *LWWRegister[T]) Timestamp() core.Timestamp {
	return r.ts
}

// Merge folds other into r, keeping whichever side has the greater
// timestamp. An empty delta (other.set == false) is a no-op.
func (r *LWWRegister[T]) Merge(other *LWWRegister[T]) {
	if !other.set {
		return
	}
	if !r.set || other.ts.After(r.ts) {
		r.value, r.ts, r.set = other.value, other.ts, true
	}
}

// GenerateDelta returns an empty delta if vv already covers this
// register's timestamp, otherwise a full copy.
func (r *LWWRegister[T]) GenerateDelta(vv *core.VersionVector) *LWWRegister[T] {
	if !r.set || vv.Contains(r.ts) {
		return &LWWRegister[T]{}
	}
	return &LWWRegister[T]{value: r.value, ts: r.ts, set: true}
}

// lwwRegisterWire is the §6.2 wire shape:
// {"_type":"LWWRegister","_metadata":{"uid":...,"cnt":...},"value":<v>}
type lwwRegisterWire[T any] struct {
	Type     string `json:"_type"`
	Metadata struct {
		UID core.ReplicaID `json:"uid"`
		Cnt int64          `json:"cnt"`
	} `json:"_metadata"`
	Value T `json:"value"`
}

// ToJSON encodes the register per §6.2.
func (r *LWWRegister[T]) ToJSON() ([]byte, error) {
	var w lwwRegisterWire[T]
	w.Type = "LWWRegister"
	w.Metadata.UID = r.ts.Replica
	w.Metadata.Cnt = r.ts.Counter
	w.Value = r.value
	return json.Marshal(w)
}

// FromJSONLWWRegister decodes a register previously produced by ToJSON.
func FromJSONLWWRegister[T any](data []byte) (*LWWRegister[T], error) {
	if err := validateWire("LWWRegister", lwwRegisterSchema, data); err != nil {
		return nil, err
	}
	var w lwwRegisterWire[T]
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &ErrMalformedJSON{Type: "LWWRegister", Reason: err.Error()}
	}
	if w.Type != "" && w.Type != "LWWRegister" {
		return nil, &ErrUnexpectedType{Want: "LWWRegister", Got: w.Type}
	}
	return &LWWRegister[T]{
		value: w.Value,
		ts:    core.Timestamp{Counter: w.Metadata.Cnt, Replica: w.Metadata.UID},
		set:   true,
	}, nil
}
