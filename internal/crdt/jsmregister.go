package crdt

import "encoding/json"

// Ordered is the constraint satisfied by any type with a total order
// under Go's built-in comparison operators.
type Ordered interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64 | ~string
}

// JSMRegister is a join-semilattice register: the value type itself
// carries the merge operator (max under its total order), so no
// timestamps or causal context are needed. Used when the application
// value is already monotone, e.g. counters or version numbers.
type JSMRegister[T Ordered] struct {
	value T
}

// NewJSMRegister returns a register initialized to val.
func NewJSMRegister[T Ordered](val T) *JSMRegister[T] {
	return &JSMRegister[T]{value: val}
}

// Assign raises the register's value to max(current, val).
func (r *JSMRegister[T]) Assign(val T) {
	if val > r.value {
		r.value = val
	}
}

// Get returns the current value.
func (r *JSMRegister[T]) Get() T {
	return r.value
}

// Merge raises the register's value to max(r, other).
func (r *JSMRegister[T]) Merge(other *JSMRegister[T]) {
	r.Assign(other.value)
}

// GenerateDelta always returns a full copy: the value's own order
// already makes merge idempotent and monotone, so no causal context is
// needed to decide what to send.
func (r *JSMRegister[T]) GenerateDelta() *JSMRegister[T] {
	return &JSMRegister[T]{value: r.value}
}

type jsmRegisterWire[T Ordered] struct {
	Type  string `json:"_type"`
	Value T      `json:"value"`
}

// ToJSON encodes the register as {"_type":"JSMRegister","value":<v>}.
func (r *JSMRegister[T]) ToJSON() ([]byte, error) {
	return json.Marshal(jsmRegisterWire[T]{Type: "JSMRegister", Value: r.value})
}

// FromJSONJSMRegister decodes a register previously produced by ToJSON.
func FromJSONJSMRegister[T Ordered](data []byte) (*JSMRegister[T], error) {
	if err := validateWire("JSMRegister", jsmRegisterSchema, data); err != nil {
		return nil, err
	}
	var w jsmRegisterWire[T]
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &ErrMalformedJSON{Type: "JSMRegister", Reason: err.Error()}
	}
	if w.Type != "" && w.Type != "JSMRegister" {
		return nil, &ErrUnexpectedType{Want: "JSMRegister", Got: w.Type}
	}
	return &JSMRegister[T]{value: w.Value}, nil
}
