package crdt

import (
	"encoding/json"

	"github.com/amaydixit11/deltacrdt/internal/core"
)

// mvEntry pairs a value with the timestamp of the assignment that
// produced it.
type mvEntry[T any] struct {
	value T
	ts    core.Timestamp
}

// MVRegister is a multi-value register: concurrent assignments are
// all retained until a causally-aware assignment or merge resolves
// them, at which point Get returns every value still live.
type MVRegister[T any] struct {
	entries []mvEntry[T]
	cc      *core.VersionVector
}

// NewMVRegister returns an empty register with an empty causal context.
func NewMVRegister[T any]() *MVRegister[T] {
	return &MVRegister[T]{cc: core.NewVersionVector()}
}

func (r *MVRegister[T]) vv() *core.VersionVector {
	if r.cc == nil {
		r.cc = core.NewVersionVector()
	}
	return r.cc
}

// Assign replaces the register's contents with val at ts, provided ts
// has not already been observed. A stale/duplicate ts is a no-op that
// returns an empty delta.
func (r *MVRegister[T]) Assign(val T, ts core.Timestamp) *MVRegister[T] {
	if r.vv().Contains(ts) {
		return &MVRegister[T]{cc: core.NewVersionVector()}
	}
	r.entries = []mvEntry[T]{{value: val, ts: ts}}
	r.vv().Add(ts)

	delta := &MVRegister[T]{
		entries: []mvEntry[T]{{value: val, ts: ts}},
		cc:      core.NewVersionVector(),
	}
	delta.cc.Add(ts)
	return delta
}

// Get returns every concurrently-retained value.
func (r *MVRegister[T]) Get() []T {
	out := make([]T, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.value
	}
	return out
}

// Merge folds delta into r following §4.4: an entry survives the merge
// when either its timestamp was never observed by the other side, or
// the other side independently retained an entry at that exact
// timestamp.
func (r *MVRegister[T]) Merge(delta *MVRegister[T]) {
	kept := make([]mvEntry[T], 0, len(r.entries)+len(delta.entries))

	hasTS := func(entries []mvEntry[T], ts core.Timestamp) bool {
		for _, e := range entries {
			if e.ts.Equal(ts) {
				return true
			}
		}
		return false
	}

	for _, e := range r.entries {
		if !delta.vv().Contains(e.ts) || hasTS(delta.entries, e.ts) {
			kept = append(kept, e)
		}
	}
	for _, e := range delta.entries {
		if !r.vv().Contains(e.ts) {
			kept = append(kept, e)
		}
	}

	r.entries = dedupeByTS(kept)
	r.vv().Max(delta.cc)
}

func dedupeByTS[T any](entries []mvEntry[T]) []mvEntry[T] {
	seen := make(map[core.Timestamp]struct{}, len(entries))
	out := entries[:0:0]
	for _, e := range entries {
		if _, ok := seen[e.ts]; ok {
			continue
		}
		seen[e.ts] = struct{}{}
		out = append(out, e)
	}
	return out
}

// GenerateDelta returns an empty delta if vv already dominates this
// register's causal context, otherwise a full copy.
func (r *MVRegister[T]) GenerateDelta(vv *core.VersionVector) *MVRegister[T] {
	if r.vv().LessEqual(vv) {
		return &MVRegister[T]{cc: core.NewVersionVector()}
	}
	entries := make([]mvEntry[T], len(r.entries))
	copy(entries, r.entries)
	return &MVRegister[T]{entries: entries, cc: r.cc.Clone()}
}

// mvRegisterWire is the §6.2 wire shape. The i-th element of Value
// corresponds to the i-th element of Metadata.Entries.
type mvRegisterWire[T any] struct {
	Type     string `json:"_type"`
	Metadata struct {
		Entries       []core.Timestamp     `json:"entries"`
		CausalContext map[core.ReplicaID]int64 `json:"causalContext"`
	} `json:"_metadata"`
	Value []T `json:"value"`
}

// ToJSON encodes the register per §6.2.
func (r *MVRegister[T]) ToJSON() ([]byte, error) {
	var w mvRegisterWire[T]
	w.Type = "MVRegister"
	w.Metadata.Entries = make([]core.Timestamp, len(r.entries))
	w.Value = make([]T, len(r.entries))
	for i, e := range r.entries {
		w.Metadata.Entries[i] = e.ts
		w.Value[i] = e.value
	}
	w.Metadata.CausalContext = r.vv().Entries()
	return json.Marshal(w)
}

// FromJSONMVRegister decodes a register previously produced by ToJSON.
func FromJSONMVRegister[T any](data []byte) (*MVRegister[T], error) {
	if err := validateWire("MVRegister", mvRegisterSchema, data); err != nil {
		return nil, err
	}
	var w mvRegisterWire[T]
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &ErrMalformedJSON{Type: "MVRegister", Reason: err.Error()}
	}
	if w.Type != "" && w.Type != "MVRegister" {
		return nil, &ErrUnexpectedType{Want: "MVRegister", Got: w.Type}
	}
	if len(w.Metadata.Entries) != len(w.Value) {
		return nil, &ErrMalformedJSON{Type: "MVRegister", Reason: "entries/value length mismatch"}
	}
	r := NewMVRegister[T]()
	for i, ts := range w.Metadata.Entries {
		r.entries = append(r.entries, mvEntry[T]{value: w.Value[i], ts: ts})
	}
	for id, c := range w.Metadata.CausalContext {
		r.cc.Add(core.Timestamp{Counter: c, Replica: id})
	}
	return r, nil
}
