// Package crdt implements the delta-state CRDT algebras: LWWRegister,
// MVRegister, LWWMap, MVMap, JSMRegister, and Immutable. Every type
// here exposes the same shape — Merge, GenerateDelta, ToJSON/FromJSON
// — so callers can treat any of them as a replicated value that
// converges regardless of delivery order, duplication, or the
// communication pattern between replicas.
//
// Concurrent in-process mutation of a single instance is undefined;
// callers must serialize access to one instance themselves. None of
// these types hold an internal lock — the library assumes one logical
// actor drives one instance at a time, leaving cross-replica
// concurrency to the merge algebra where it belongs.
package crdt

import (
	"fmt"

	"github.com/amaydixit11/deltacrdt/internal/core"
)

// Delta is the uniform merge input: a value of the same concrete CRDT
// type as the receiver, or the type's own empty-delta sentinel. There
// is no dynamic dispatch in this Go port — the compiler rejects
// cross-type merges — so ErrUnexpectedType below only ever surfaces
// from the JSON decode path, where the wire discriminator is checked
// at runtime.
type Delta any

// ErrUnexpectedType is returned when a decoded delta's "_type"
// discriminator does not match the CRDT being merged into.
type ErrUnexpectedType struct {
	Want, Got string
}

func (e *ErrUnexpectedType) Error() string {
	return fmt.Sprintf("crdt: unexpected delta type: want %s, got %s", e.Want, e.Got)
}

// ErrMalformedJSON is returned when wire JSON does not satisfy the
// shape required by the CRDT being decoded.
type ErrMalformedJSON struct {
	Type   string
	Reason string
}

func (e *ErrMalformedJSON) Error() string {
	return fmt.Sprintf("crdt: malformed %s JSON: %s", e.Type, e.Reason)
}

// ErrInvariantViolation is the typed value for an internal consistency
// check failure. No function in this package returns it.
type ErrInvariantViolation struct {
	Detail string
}

func (e *ErrInvariantViolation) Error() string {
	return "crdt: invariant violation: " + e.Detail
}

// TypeTag partitions the key namespace of LWWMap and MVMap so the same
// string key can hold independent values of different types.
type TypeTag string

const (
	TagBoolean TypeTag = "BOOLEAN"
	TagDouble  TypeTag = "DOUBLE"
	TagInteger TypeTag = "INTEGER"
	TagString  TypeTag = "STRING"
)

// mapKey is the internal composite key for LWWMap/MVMap: the caller's
// string key partitioned by TypeTag, joined on the wire with "%"
// (see §6.2 of the spec).
type mapKey struct {
	Key string
	Tag TypeTag
}

func (k mapKey) wire() string {
	return k.Key + "%" + string(k.Tag)
}

// TaggedValue is the value half of an LWWMap/MVMap entry: either a
// present value of one of the four supported scalar types, or a
// tombstone recording that the key was deleted.
type TaggedValue struct {
	Tag       TypeTag
	Bool      bool
	Double    float64
	Int       int32
	Str       string
	Tombstone bool
}

func boolValue(b bool) TaggedValue     { return TaggedValue{Tag: TagBoolean, Bool: b} }
func doubleValue(f float64) TaggedValue { return TaggedValue{Tag: TagDouble, Double: f} }
func intValue(i int32) TaggedValue     { return TaggedValue{Tag: TagInteger, Int: i} }
func stringValue(s string) TaggedValue { return TaggedValue{Tag: TagString, Str: s} }

func tombstone(tag TypeTag) TaggedValue {
	return TaggedValue{Tag: tag, Tombstone: true}
}

// Source is the environment contract every CRDT's mutators rely on to
// mint timestamps. It is an external collaborator (see internal/environment):
// the core never constructs one itself.
type Source interface {
	// Next returns a timestamp strictly greater, by Timestamp.Compare,
	// than every timestamp this Source has previously returned.
	Next() core.Timestamp
}
